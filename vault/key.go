package vault

import (
	"encoding/hex"
	"fmt"
	"gameboard-server/core"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ParseKey decodes a 64-character hex string into a 256-bit key.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: key is not set", core.ErrInvalidKey)
	}
	if len(s) != hex.EncodedLen(KeySize) {
		return nil, fmt.Errorf("%w: got %d characters", core.ErrInvalidKey, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidKey, err)
	}
	return key, nil
}
