// Package presence tracks who is currently on the board.
//
// The registry has no in-memory state: the blob is the registry. Every
// mutation is a full read-modify-write of that blob under the store's
// per-name lock. Expired entries are only dropped when someone registers;
// List never evicts, so it may return entries older than the TTL.
package presence

import (
	"context"
	"errors"
	"fmt"
	"gameboard-server/core"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBlobName = "gameBoard.txt"
	DefaultTTL      = 5 * time.Minute
)

// Notifier is told about the full entry list after every successful mutation.
type Notifier interface {
	PresenceChanged(entries []core.PresenceEntry)
}

type Registry struct {
	store    core.LockedBlobStore
	name     string
	ttl      time.Duration
	now      func() time.Time
	notifier Notifier
}

type Option func(*Registry)

func WithBlobName(name string) Option {
	return func(r *Registry) { r.name = name }
}

func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

func NewRegistry(store core.LockedBlobStore, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		name:  DefaultBlobName,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetNotifier replaces the notifier. It must be called before the registry is shared.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// TTL returns the configured entry lifetime.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

func validateField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", core.ErrValidation, field)
	}
	if strings.ContainsAny(value, ",\r\n") {
		return fmt.Errorf("%w: %s must not contain commas or line breaks", core.ErrValidation, field)
	}
	return nil
}

// Register evicts stale entries and appends a new one stamped with the current time.
func (r *Registry) Register(ctx context.Context, nickname, participantID string) (core.PresenceEntry, error) {
	if err := validateField("nickname", nickname); err != nil {
		return core.PresenceEntry{}, err
	}
	if err := validateField("id", participantID); err != nil {
		return core.PresenceEntry{}, err
	}

	log := logrus.WithFields(logrus.Fields{"nickname": nickname, "participant_id": participantID})

	now := r.now()
	entry := core.PresenceEntry{
		Nickname:      strings.TrimSpace(nickname),
		ParticipantID: strings.TrimSpace(participantID),
		JoinedAt:      now.UnixMilli(),
	}

	var (
		after   []core.PresenceEntry
		evicted int
	)
	err := r.store.Update(ctx, r.name, func(current []byte, _ bool) ([]byte, error) {
		live, dropped := evictStale(current, now, r.ttl)
		after, evicted = append(live, entry), dropped
		return encodeAll(after), nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to register participant")
		return core.PresenceEntry{}, err
	}

	log.WithFields(logrus.Fields{"evicted": evicted, "active": len(after)}).Info("Participant registered")
	r.notify(after)
	return entry, nil
}

// Unregister removes every entry whose id field equals participantID exactly.
func (r *Registry) Unregister(ctx context.Context, participantID string) error {
	if strings.TrimSpace(participantID) == "" {
		return fmt.Errorf("%w: id is required", core.ErrValidation)
	}
	participantID = strings.TrimSpace(participantID)
	log := logrus.WithField("participant_id", participantID)

	var after []core.PresenceEntry
	err := r.store.Update(ctx, r.name, func(current []byte, found bool) ([]byte, error) {
		if !found {
			return nil, fmt.Errorf("%w: participant %q", core.ErrNotFound, participantID)
		}

		lines := splitLines(current)
		kept := make([]string, 0, len(lines))
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if fields := strings.Split(line, fieldSeparator); len(fields) >= 2 && fields[1] == participantID {
				continue
			}
			kept = append(kept, line)
		}
		if len(kept) == countNonBlank(lines) {
			return nil, fmt.Errorf("%w: participant %q", core.ErrNotFound, participantID)
		}

		next := []byte(strings.Join(kept, lineSeparator))
		after = decodeAll(next)
		return next, nil
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Warn("Participant not found for removal")
		} else {
			log.WithError(err).Error("Failed to unregister participant")
		}
		return err
	}

	log.Info("Participant removed")
	r.notify(after)
	return nil
}

// List returns every non-blank entry in file order without evicting anything.
func (r *Registry) List(ctx context.Context) ([]core.PresenceEntry, error) {
	data, err := r.store.Read(ctx, r.name)
	if err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			return []core.PresenceEntry{}, nil
		}
		logrus.WithError(err).Error("Failed to read presence registry")
		return nil, err
	}
	return decodeAll(data), nil
}

// Clear empties the registry. Clearing an empty registry is not an error.
func (r *Registry) Clear(ctx context.Context) error {
	if err := r.store.Write(ctx, r.name, []byte{}); err != nil {
		logrus.WithError(err).Error("Failed to clear presence registry")
		return err
	}

	logrus.Info("Presence registry cleared")
	r.notify([]core.PresenceEntry{})
	return nil
}

func (r *Registry) notify(entries []core.PresenceEntry) {
	if r.notifier != nil {
		r.notifier.PresenceChanged(entries)
	}
}

func countNonBlank(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
