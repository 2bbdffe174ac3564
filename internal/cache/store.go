// Package cache persists dashboard snapshots and keeps them scoped to the
// identity that fetched them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hongminglow/fieldops-dashboard/internal/metrics"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// Store reads and writes the single dashboard snapshot record.
// It enforces no expiry; staleness policy belongs to the caller.
type Store struct {
	kv     storage.KeyValueStore
	logger *slog.Logger
}

// NewStore wraps kv. A nil logger uses slog.Default().
func NewStore(kv storage.KeyValueStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Write serializes snap and replaces the stored record.
func (s *Store) Write(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		metrics.CacheWrites.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, KeyDashboard, string(data)); err != nil {
		metrics.CacheWrites.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("write snapshot: %w", err)
	}
	metrics.CacheWrites.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}

// Read returns the stored snapshot. A missing, unreadable or corrupt
// record reports ok=false rather than an error.
func (s *Store) Read(ctx context.Context) (models.Snapshot, bool) {
	raw, err := s.kv.Get(ctx, KeyDashboard)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("dashboard cache read failed", slog.String("error", err.Error()))
		}
		metrics.CacheReads.WithLabelValues(metrics.ResultMiss).Inc()
		return models.Snapshot{}, false
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("dashboard cache record is corrupt", slog.String("error", err.Error()))
		metrics.CacheReads.WithLabelValues(metrics.ResultCorrupt).Inc()
		return models.Snapshot{}, false
	}
	metrics.CacheReads.WithLabelValues(metrics.ResultHit).Inc()
	return snap, true
}

// Clear removes the record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, KeyDashboard); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
