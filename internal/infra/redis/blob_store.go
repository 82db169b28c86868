package redis

import (
	"context"
	"errors"
	"fmt"

	"codeconnect/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BlobStore persists collection blobs in Redis, one string value per key.
// Keys are stored without expiry: the durable store outlives sessions.
type BlobStore struct {
	client *redis.Client
}

func NewBlobStore(client *redis.Client) *BlobStore {
	return &BlobStore{client: client}
}

func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis read %s: %w", key, err)
	}
	return data, nil
}

func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis write %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) key(key string) string {
	return "codeconnect:blob:" + key
}
