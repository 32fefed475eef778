package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"gameboard-server/core"
	"io"
	"strings"
)

const (
	nonceSize = 16
	tagSize   = 16

	recordSeparator = ":"
)

// newAEAD returns AES-256-GCM configured for 16-byte nonces.
func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", core.ErrInvalidKey, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidKey, err)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// sealRecord encrypts plaintext under a fresh random nonce and formats
// the result as hex(nonce):hex(tag):hex(ciphertext).
func sealRecord(aead cipher.AEAD, plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, recordSeparator), nil
}

// openRecord parses and authenticates a record produced by sealRecord.
// Every failure is reported as core.ErrDecryption.
func openRecord(aead cipher.AEAD, record string) ([]byte, error) {
	fields := strings.Split(strings.TrimSpace(record), recordSeparator)
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", core.ErrDecryption, len(fields))
	}

	nonce, err := hex.DecodeString(fields[0])
	if err != nil || len(nonce) != nonceSize {
		return nil, fmt.Errorf("%w: malformed nonce", core.ErrDecryption)
	}
	tag, err := hex.DecodeString(fields[1])
	if err != nil || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: malformed authentication tag", core.ErrDecryption)
	}
	ciphertext, err := hex.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext", core.ErrDecryption)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", core.ErrDecryption)
	}
	return plaintext, nil
}
