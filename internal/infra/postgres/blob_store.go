package postgres

import (
	"context"
	"errors"
	"fmt"

	"codeconnect/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BlobStore persists collection blobs in a Postgres blobs table, one JSONB
// row per key. The schema is managed by the migrations package.
type BlobStore struct {
	pool *pgxpool.Pool
}

func NewBlobStore(pool *pgxpool.Pool) *BlobStore {
	return &BlobStore{pool: pool}
}

func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM blobs WHERE key=$1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg read %s: %w", key, err)
	}
	return data, nil
}

func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		key, data)
	if err != nil {
		return fmt.Errorf("pg write %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM blobs WHERE key=$1`, key); err != nil {
		return fmt.Errorf("pg delete %s: %w", key, err)
	}
	return nil
}
