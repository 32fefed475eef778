// Package guard serializes access to a BlobStore per blob name.
//
// Every Read, Write, Append and Update on the same name runs under the same
// mutex, so an Update's read-modify-write cycle is never interleaved with
// another mutation of that blob inside this process. Locks are not shared
// across processes.
package guard

import (
	"context"
	"errors"
	"gameboard-server/core"
	"io"
	"sync"
)

type Store struct {
	backend core.BlobStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wraps backend.
func New(backend core.BlobStore) *Store {
	return &Store{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) lock(name string) func() {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	defer s.lock(name)()
	return s.backend.Read(ctx, name)
}

func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	defer s.lock(name)()
	return s.backend.Write(ctx, name, data)
}

func (s *Store) Append(ctx context.Context, name string, data []byte) error {
	defer s.lock(name)()
	return s.backend.Append(ctx, name, data)
}

func (s *Store) Update(ctx context.Context, name string, fn core.UpdateFunc) error {
	defer s.lock(name)()

	current, err := s.backend.Read(ctx, name)
	found := true
	if err != nil {
		if !errors.Is(err, core.ErrBlobNotFound) {
			return err
		}
		current, found = nil, false
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return core.StorageError("update "+name, err)
	}
	return s.backend.Write(ctx, name, next)
}

// Close closes the backend when it holds resources such as a database handle.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
