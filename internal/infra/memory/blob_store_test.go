package memory

import (
	"context"
	"errors"
	"testing"

	"codeconnect/internal/domain"
)

func TestBlobStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	if _, err := store.Read(ctx, "quiz_scores"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Write(ctx, "quiz_scores", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := store.Read(ctx, "quiz_scores")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `[{"id":"1"}]` {
		t.Fatalf("unexpected data: %s", data)
	}

	if err := store.Delete(ctx, "quiz_scores"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Read(ctx, "quiz_scores"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected key removed, got %v", err)
	}
}

func TestBlobStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	original := []byte(`{"a":1}`)
	if err := store.Write(ctx, "k", original); err != nil {
		t.Fatalf("write: %v", err)
	}
	original[0] = 'X'

	data, err := store.Read(ctx, "k")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("stored blob aliased caller slice: %s", data)
	}
}
