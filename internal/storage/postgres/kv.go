package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

var _ storage.KeyValueStore = (*KVStore)(nil)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_cache (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// KVStore keeps client cache records in a single Postgres table.
type KVStore struct {
	pool *pgxpool.Pool
}

// NewKVStore connects and ensures the kv_cache table exists.
func NewKVStore(ctx context.Context, databaseURL string) (*KVStore, error) {
	pool, err := connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, kvSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &KVStore{pool: pool}, nil
}

// Close releases database resources.
func (s *KVStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_cache WHERE key = $1;`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_cache (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, []string{key})
}

func (s *KVStore) MultiRemove(ctx context.Context, keys []string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_cache WHERE key = ANY($1);`, keys); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}
