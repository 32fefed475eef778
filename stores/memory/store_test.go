package memory

import (
	"context"
	"errors"
	"gameboard-server/core"
	"testing"
)

func TestRead_Missing(t *testing.T) {
	store := NewStore()

	if _, err := store.Read(context.Background(), "missing"); !errors.Is(err, core.ErrBlobNotFound) {
		t.Errorf("Read() error = %v, want ErrBlobNotFound", err)
	}
}

func TestWriteAppendRead(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Write(ctx, "blob", []byte("one")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := store.Append(ctx, "blob", []byte(",two")); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	got, err := store.Read(ctx, "blob")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if string(got) != "one,two" {
		t.Errorf("Read() = %q, want %q", got, "one,two")
	}
}

func TestWrite_EmptyIsFound(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Write(ctx, "blob", nil); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if _, err := store.Read(ctx, "blob"); err != nil {
		t.Errorf("Read() of empty blob error = %v, want nil", err)
	}
}

func TestIsolation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	input := []byte("abc")
	_ = store.Write(ctx, "blob", input)
	input[0] = 'X'

	got, _ := store.Read(ctx, "blob")
	if string(got) != "abc" {
		t.Errorf("stored content changed through caller slice: %q", got)
	}

	got[1] = 'Y'
	again, _ := store.Read(ctx, "blob")
	if string(again) != "abc" {
		t.Errorf("stored content changed through returned slice: %q", again)
	}
}
