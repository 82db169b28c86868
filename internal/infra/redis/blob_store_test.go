package redis

import (
	"context"
	"errors"
	"testing"

	"codeconnect/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewBlobStore(client)
	ctx := context.Background()

	if _, err := store.Read(ctx, "quiz_scores"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	blob := []byte(`[{"id":"1","quizName":"Python Basics","score":85}]`)
	if err := store.Write(ctx, "quiz_scores", blob); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !mr.Exists("codeconnect:blob:quiz_scores") {
		t.Fatalf("expected namespaced redis key to be set")
	}

	data, err := store.Read(ctx, "quiz_scores")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(blob) {
		t.Fatalf("round trip mismatch: %s", data)
	}

	if err := store.Delete(ctx, "quiz_scores"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("codeconnect:blob:quiz_scores") {
		t.Fatalf("expected redis key removed")
	}
}
