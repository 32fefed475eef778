package guard

import (
	"context"
	"errors"
	"fmt"
	"gameboard-server/core"
	"gameboard-server/stores/memory"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestUpdate_MissingBlob(t *testing.T) {
	store := New(memory.NewStore())
	ctx := context.Background()

	var sawFound bool
	var sawData []byte
	err := store.Update(ctx, "blob", func(current []byte, found bool) ([]byte, error) {
		sawFound, sawData = found, current
		return []byte("created"), nil
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if sawFound || sawData != nil {
		t.Errorf("fn saw found=%v data=%q, want found=false data=nil", sawFound, sawData)
	}

	got, _ := store.Read(ctx, "blob")
	if string(got) != "created" {
		t.Errorf("Read() = %q, want %q", got, "created")
	}
}

func TestUpdate_AbortsOnError(t *testing.T) {
	store := New(memory.NewStore())
	ctx := context.Background()
	_ = store.Write(ctx, "blob", []byte("original"))

	sentinel := errors.New("abort")
	err := store.Update(ctx, "blob", func(current []byte, found bool) ([]byte, error) {
		return []byte("replacement"), sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Update() error = %v, want sentinel", err)
	}

	got, _ := store.Read(ctx, "blob")
	if string(got) != "original" {
		t.Errorf("blob changed after aborted update: %q", got)
	}
}

func TestUpdate_CancelledContextSkipsWrite(t *testing.T) {
	store := New(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	_ = store.Write(ctx, "blob", []byte("original"))

	err := store.Update(ctx, "blob", func(current []byte, found bool) ([]byte, error) {
		cancel()
		return []byte("replacement"), nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Update() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, core.ErrStorage) {
		t.Errorf("Update() error = %v, want ErrStorage", err)
	}

	got, _ := store.Read(context.Background(), "blob")
	if string(got) != "original" {
		t.Errorf("blob changed after cancelled update: %q", got)
	}
}

type failingStore struct {
	core.BlobStore
	readErr error
}

func (f failingStore) Read(ctx context.Context, name string) ([]byte, error) {
	return nil, f.readErr
}

func TestUpdate_PropagatesReadError(t *testing.T) {
	readErr := core.StorageError("read blob", errors.New("disk on fire"))
	store := New(failingStore{BlobStore: memory.NewStore(), readErr: readErr})

	called := false
	err := store.Update(context.Background(), "blob", func(current []byte, found bool) ([]byte, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, core.ErrStorage) {
		t.Errorf("Update() error = %v, want ErrStorage", err)
	}
	if called {
		t.Error("fn was called despite read failure")
	}
}

// Concurrent increments must not lose updates.
func TestUpdate_ConcurrentNoLostUpdates(t *testing.T) {
	store := New(memory.NewStore())
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "counter", func(current []byte, found bool) ([]byte, error) {
				n := 0
				if found {
					n, _ = strconv.Atoi(string(current))
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			if err != nil {
				t.Errorf("Update() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := store.Read(ctx, "counter")
	if string(got) != strconv.Itoa(workers) {
		t.Errorf("counter = %s, want %d", got, workers)
	}
}

func TestUpdate_DifferentNamesDoNotBlock(t *testing.T) {
	store := New(memory.NewStore())
	ctx := context.Background()

	inner := make(chan error, 1)
	err := store.Update(ctx, "a", func(current []byte, found bool) ([]byte, error) {
		// Holding a's lock must not prevent writing b.
		inner <- store.Write(ctx, "b", []byte("b"))
		return []byte("a"), nil
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := <-inner; err != nil {
		t.Fatalf("nested Write() failed: %v", err)
	}

	for _, name := range []string{"a", "b"} {
		got, err := store.Read(ctx, name)
		if err != nil || string(got) != name {
			t.Errorf("Read(%q) = %q, %v", name, got, err)
		}
	}
}

func TestAppend_Concurrent(t *testing.T) {
	store := New(memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(ctx, "log", []byte(fmt.Sprintf("%d\n", i)))
		}(i)
	}
	wg.Wait()

	got, _ := store.Read(ctx, "log")
	if lines := strings.Count(string(got), "\n"); lines != 20 {
		t.Errorf("appended lines = %d, want 20", lines)
	}
}

type closingStore struct {
	core.BlobStore
	closed bool
}

func (c *closingStore) Close() error {
	c.closed = true
	return nil
}

func TestClose(t *testing.T) {
	backend := &closingStore{BlobStore: memory.NewStore()}
	if err := New(backend).Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !backend.closed {
		t.Error("Close() did not reach the backend")
	}

	if err := New(memory.NewStore()).Close(); err != nil {
		t.Errorf("Close() on backend without Close = %v, want nil", err)
	}
}
