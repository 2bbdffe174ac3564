package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

// Config holds runtime configuration for the field-data API server.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string
	LogLevel    slog.Level

	// Optional super admin created on startup when no account with that
	// username exists yet.
	BootstrapUsername string
	BootstrapEmail    string
	BootstrapPassword string
}

// Load reads server configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "fieldops-api"),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:    parseLevel(os.Getenv("LOG_LEVEL")),

		BootstrapUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
		BootstrapEmail:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	cfg.JWTTTL = time.Duration(positiveInt(os.Getenv("JWT_TTL_MINUTES"), 60)) * time.Minute

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Cache backends accepted by CACHE_BACKEND.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Client holds runtime configuration for the dashboard client.
type Client struct {
	APIBaseURL       string
	CacheBackend     string
	CacheDir         string
	CacheDatabaseURL string
	DefaultLocale    models.LocaleHint
	HTTPTimeout      time.Duration
	MaxLoginAttempts int
	DashboardAddr    string
	LogLevel         slog.Level
}

// LoadClient reads client configuration from the environment.
func LoadClient() (Client, error) {
	cfg := Client{
		APIBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/"),
		CacheBackend:     strings.ToLower(fallback(os.Getenv("CACHE_BACKEND"), BackendFile)),
		CacheDir:         strings.TrimSpace(os.Getenv("CACHE_DIR")),
		CacheDatabaseURL: strings.TrimSpace(os.Getenv("CACHE_DATABASE_URL")),
		DefaultLocale: models.LocaleHint{
			StateID:    fallback(os.Getenv("DEFAULT_STATE_ID"), "1"),
			DistrictID: fallback(os.Getenv("DEFAULT_DISTRICT_ID"), "1"),
			AssemblyID: fallback(os.Getenv("DEFAULT_ASSEMBLY_ID"), "1"),
		},
		HTTPTimeout:      time.Duration(positiveInt(os.Getenv("HTTP_TIMEOUT_SECONDS"), 30)) * time.Second,
		MaxLoginAttempts: positiveInt(os.Getenv("MAX_LOGIN_ATTEMPTS"), 5),
		DashboardAddr:    fallback(os.Getenv("DASHBOARD_ADDR"), "127.0.0.1:8090"),
		LogLevel:         parseLevel(os.Getenv("LOG_LEVEL")),
	}

	if cfg.APIBaseURL == "" {
		return Client{}, errors.New("API_BASE_URL is required")
	}
	switch cfg.CacheBackend {
	case BackendFile, BackendBadger:
		if cfg.CacheDir == "" {
			dir, err := DataDir()
			if err != nil {
				return Client{}, err
			}
			cfg.CacheDir = filepath.Join(dir, cfg.CacheBackend)
		}
	case BackendPostgres:
		if cfg.CacheDatabaseURL == "" {
			return Client{}, errors.New("CACHE_DATABASE_URL is required for the postgres cache backend")
		}
	case BackendMemory:
	default:
		return Client{}, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

// DataDir returns the XDG data directory for the client.
// It respects XDG_DATA_HOME if set, otherwise falls back to ~/.local/share/fieldops.
func DataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "fieldops"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "fieldops"), nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(fallback(value, "info"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
