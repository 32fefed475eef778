package memory

import (
	"context"
	"gameboard-server/core"
	"sync"

	"github.com/sirupsen/logrus"
)

// memStore keeps blobs in process memory. Contents are copied in and out.
type memStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Read(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[name]
	if !ok {
		logrus.WithField("blob", name).Debug("Blob not found in memory")
		return nil, core.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *memStore) Write(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[name] = append([]byte{}, data...)
	return nil
}

func (s *memStore) Append(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[name] = append(s.blobs[name], data...)
	return nil
}
