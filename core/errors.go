package core

import (
	"errors"
	"fmt"
)

// Caller errors. The request can be fixed and retried.
var (
	// ErrValidation indicates missing or malformed caller input.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownSlot indicates a secret slot name that is not configured.
	ErrUnknownSlot = fmt.Errorf("%w: unknown secret slot", ErrValidation)
)

// Lookup errors.
var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBlobNotFound is returned by BlobStore.Read when the named blob is absent.
	// Components normalize it: the registry treats it as empty, the vault as ErrNotFound.
	ErrBlobNotFound = errors.New("blob does not exist")
)

// Cryptographic errors.
var (
	// ErrDecryption indicates a stored record that is malformed or fails authentication.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidKey indicates the vault key is missing or is not 64 hex characters.
	ErrInvalidKey = errors.New("invalid vault key: expected 64 hex characters")
)

// ErrStorage wraps any backend failure other than a missing blob.
var ErrStorage = errors.New("storage failure")

// StorageError wraps err so that errors.Is(err, ErrStorage) holds while keeping the cause reachable.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, cause: err}
}

type storageError struct {
	op    string
	cause error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.op, e.cause)
}

func (e *storageError) Is(target error) bool { return target == ErrStorage }

func (e *storageError) Unwrap() error { return e.cause }
