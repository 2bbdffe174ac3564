package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hongminglow/fieldops-dashboard/internal/metrics"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// ErrPurgeFailed means cached data of a previous identity may still be
// reachable. Sign-in must not continue past it.
var ErrPurgeFailed = errors.New("identity cache purge failed")

// Resetter is in-memory state that must be emptied on a purge.
type Resetter interface {
	Reset()
}

// Guard tracks which identity populated the cache and purges everything
// when a different identity signs in.
type Guard struct {
	kv     storage.KeyValueStore
	logger *slog.Logger

	mu        sync.Mutex
	resetters []Resetter
}

// NewGuard returns a guard over kv. A nil logger uses slog.Default().
func NewGuard(kv storage.KeyValueStore, logger *slog.Logger, resetters ...Resetter) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{kv: kv, logger: logger, resetters: resetters}
}

// Register adds in-memory state to reset on every purge.
func (g *Guard) Register(r Resetter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetters = append(g.resetters, r)
}

// CurrentIdentity returns the recorded identity, if any.
func (g *Guard) CurrentIdentity(ctx context.Context) (string, bool, error) {
	id, err := g.kv.Get(ctx, KeyIdentity)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// OnIdentitySwitch purges cached and in-memory state when newID differs
// from the recorded identity, then records newID. When it returns nil no
// data of any other identity is reachable through the cache.
func (g *Guard) OnIdentitySwitch(ctx context.Context, newID string) error {
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return errors.New("identity id is required")
	}

	last, found, err := g.CurrentIdentity(ctx)
	if err != nil {
		return fmt.Errorf("%w: read identity marker: %v", ErrPurgeFailed, err)
	}
	if found && last != newID {
		g.logger.Info("identity changed, purging cache",
			slog.String("previous", last), slog.String("current", newID))
		if err := g.purge(ctx, PurgeKeys); err != nil {
			return err
		}
	}

	if err := g.kv.Set(ctx, KeyIdentity, newID); err != nil {
		return fmt.Errorf("%w: record identity: %v", ErrPurgeFailed, err)
	}
	return nil
}

// ClearAllCache purges every identity-owned record and the identity marker.
func (g *Guard) ClearAllCache(ctx context.Context) error {
	keys := append(append([]string(nil), PurgeKeys...), KeyIdentity)
	return g.purge(ctx, keys)
}

// purge resets in-memory state before removing keys. A load that already
// passed its generation check finishes its cache write before Reset returns,
// so MultiRemove sees and removes that write.
func (g *Guard) purge(ctx context.Context, keys []string) error {
	g.mu.Lock()
	resetters := append([]Resetter(nil), g.resetters...)
	g.mu.Unlock()
	for _, r := range resetters {
		r.Reset()
	}
	if err := g.kv.MultiRemove(ctx, keys); err != nil {
		g.logger.Error("cache purge failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrPurgeFailed, err)
	}
	metrics.IdentityPurges.Inc()
	return nil
}
