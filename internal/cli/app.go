package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hongminglow/fieldops-dashboard/internal/cache"
	"github.com/hongminglow/fieldops-dashboard/internal/config"
	"github.com/hongminglow/fieldops-dashboard/internal/dashboard"
	"github.com/hongminglow/fieldops-dashboard/internal/gateway"
	"github.com/hongminglow/fieldops-dashboard/internal/session"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/badger"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/file"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/memory"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/postgres"
)

// App is the wired dashboard client: one durable store shared by the
// snapshot cache, the identity guard and the session records.
type App struct {
	Config  config.Client
	Logger  *slog.Logger
	API     *gateway.HTTPClient
	Cache   *cache.Store
	Guard   *cache.Guard
	Session *session.Manager
	State   *dashboard.State

	closeKV func() error
}

// NewApp opens the configured cache backend and wires the client.
func NewApp(ctx context.Context, cfg config.Client, logger *slog.Logger) (*App, error) {
	kv, closeKV, err := openKV(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := newApp(cfg, kv, logger)
	app.closeKV = closeKV
	return app, nil
}

func newApp(cfg config.Client, kv storage.KeyValueStore, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	store := cache.NewStore(kv, logger)
	guard := cache.NewGuard(kv, logger)
	sessions := session.NewManager(kv, guard, session.Options{
		DefaultLocale: cfg.DefaultLocale,
		MaxAttempts:   cfg.MaxLoginAttempts,
		Logger:        logger,
	})
	api := gateway.NewHTTPClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	state := dashboard.New(dashboard.Options{
		Fetcher:       gateway.New(api, logger),
		Cache:         store,
		Identity:      sessions,
		DefaultLocale: cfg.DefaultLocale,
		Logger:        logger,
	})
	guard.Register(state)

	return &App{
		Config:  cfg,
		Logger:  logger,
		API:     api,
		Cache:   store,
		Guard:   guard,
		Session: sessions,
		State:   state,
		closeKV: func() error { return nil },
	}
}

// Close releases the cache backend.
func (a *App) Close() error {
	if a.closeKV == nil {
		return nil
	}
	return a.closeKV()
}

func openKV(ctx context.Context, cfg config.Client, logger *slog.Logger) (storage.KeyValueStore, func() error, error) {
	switch cfg.CacheBackend {
	case config.BackendFile:
		kv, err := file.NewKVStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file cache: %w", err)
		}
		return kv, func() error { return nil }, nil
	case config.BackendBadger:
		if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create badger dir: %w", err)
		}
		bcfg := badger.DefaultConfig(cfg.CacheDir)
		bcfg.Logger = logger.With(slog.String("component", "badger"))
		kv, err := badger.Open(bcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger cache: %w", err)
		}
		return kv, kv.Close, nil
	case config.BackendPostgres:
		kv, err := postgres.NewKVStore(ctx, cfg.CacheDatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres cache: %w", err)
		}
		return kv, func() error { kv.Close(); return nil }, nil
	case config.BackendMemory:
		return memory.NewKVStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
