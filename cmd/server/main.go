package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/fieldops-dashboard/internal/config"
	"github.com/hongminglow/fieldops-dashboard/internal/http/handlers"
	"github.com/hongminglow/fieldops-dashboard/internal/server"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/memory"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("init database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	if cfg.BootstrapUsername != "" {
		created, err := handlers.EnsureSuperAdmin(ctx, store, cfg.BootstrapUsername, cfg.BootstrapEmail, cfg.BootstrapPassword)
		if err != nil {
			logger.Error("bootstrap super admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if created {
			logger.Info("bootstrap super admin created", slog.String("username", cfg.BootstrapUsername))
		}
	}

	srv := server.New(cfg, store, logger)

	go func() {
		logger.Info("field-data API listening", slog.String("addr", cfg.HTTPAddress()))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn("graceful shutdown error", slog.String("error", err.Error()))
	}
}

// openStore connects to Postgres, or keeps everything in memory when
// DATABASE_URL is the literal "memory".
func openStore(ctx context.Context, databaseURL string) (storage.FieldStore, func(), error) {
	if databaseURL == "memory" {
		return memory.NewFieldStore(), func() {}, nil
	}
	store, err := postgres.NewFieldStore(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; relying on existing environment")
	}
}
