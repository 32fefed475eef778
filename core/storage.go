package core

import "context"

type (
	// BlobStore is the flat-file substrate: whole-content reads and writes of named blobs.
	// Implementations do no locking of their own.
	BlobStore interface {
		// Read returns the full content of the blob, or ErrBlobNotFound if it does not exist.
		Read(ctx context.Context, name string) ([]byte, error)

		// Write replaces the full content of the blob, creating it if needed.
		Write(ctx context.Context, name string, data []byte) error

		// Append adds data to the end of the blob, creating it if needed.
		Append(ctx context.Context, name string, data []byte) error
	}

	// UpdateFunc receives the current content (nil and found=false when the blob is absent)
	// and returns the replacement. Returning an error aborts the write.
	UpdateFunc func(current []byte, found bool) ([]byte, error)

	// LockedBlobStore serializes access per blob name so that read-modify-write
	// cycles cannot interleave within the process.
	LockedBlobStore interface {
		BlobStore

		// Update runs fn against the current content and writes its result, holding the blob's lock throughout.
		Update(ctx context.Context, name string, fn UpdateFunc) error
	}
)
