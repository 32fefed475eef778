// Package vault stores API keys encrypted at rest.
//
// Each named slot maps to one blob holding a single record
// hex(nonce):hex(tag):hex(ciphertext) sealed with AES-256-GCM. Setting a slot
// replaces its record; there is no history and no delete.
package vault

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"gameboard-server/core"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	SlotChat  = "chat"
	SlotImage = "image"
)

// DefaultSlots returns a fresh copy of the built-in slot to blob-name mapping.
func DefaultSlots() map[string]string {
	return map[string]string{
		SlotChat:  "chat_key.enc",
		SlotImage: "image_key.enc",
	}
}

type Vault struct {
	store core.LockedBlobStore
	aead  cipher.AEAD
	slots map[string]string
}

// New builds a vault over store. key must be 32 bytes; slots maps slot names to blob names.
func New(store core.LockedBlobStore, key []byte, slots map[string]string) (*Vault, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, errors.New("vault requires at least one slot")
	}

	copied := make(map[string]string, len(slots))
	for slot, name := range slots {
		if slot == "" || name == "" {
			return nil, fmt.Errorf("invalid slot mapping %q -> %q", slot, name)
		}
		copied[slot] = name
	}

	return &Vault{store: store, aead: aead, slots: copied}, nil
}

// Slots returns the configured slot names in sorted order.
func (v *Vault) Slots() []string {
	names := make([]string, 0, len(v.slots))
	for slot := range v.slots {
		names = append(names, slot)
	}
	sort.Strings(names)
	return names
}

// Has reports whether slot is configured.
func (v *Vault) Has(slot string) bool {
	_, ok := v.slots[slot]
	return ok
}

func (v *Vault) blobName(slot string) (string, error) {
	name, ok := v.slots[slot]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownSlot, slot)
	}
	return name, nil
}

// SetSecret encrypts plaintext and overwrites the slot's record.
func (v *Vault) SetSecret(ctx context.Context, slot, plaintext string) error {
	log := logrus.WithField("slot", slot)

	name, err := v.blobName(slot)
	if err != nil {
		log.Warn("Rejected secret for unknown slot")
		return err
	}
	if plaintext == "" {
		return fmt.Errorf("%w: secret value is required", core.ErrValidation)
	}

	record, err := sealRecord(v.aead, []byte(plaintext))
	if err != nil {
		log.WithError(err).Error("Failed to encrypt secret")
		return core.StorageError("encrypt "+slot, err)
	}

	if err := v.store.Write(ctx, name, []byte(record)); err != nil {
		log.WithError(err).Error("Failed to persist secret")
		return err
	}

	log.Info("Secret stored")
	return nil
}

// GetSecret reads and decrypts the slot's record.
func (v *Vault) GetSecret(ctx context.Context, slot string) (string, error) {
	log := logrus.WithField("slot", slot)

	name, err := v.blobName(slot)
	if err != nil {
		log.Warn("Requested secret for unknown slot")
		return "", err
	}

	data, err := v.store.Read(ctx, name)
	if err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			log.Debug("Secret is not set")
			return "", fmt.Errorf("%w: secret %q is not set", core.ErrNotFound, slot)
		}
		log.WithError(err).Error("Failed to read secret")
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: secret %q is not set", core.ErrNotFound, slot)
	}

	plaintext, err := openRecord(v.aead, string(data))
	if err != nil {
		log.WithError(err).Error("Stored secret failed to decrypt")
		return "", err
	}
	return string(plaintext), nil
}
