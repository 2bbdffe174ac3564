// Package session keeps the signed-in identity's client-side artifacts:
// the API token, a profile copy, saved credentials for offline unlock,
// the failed-login counter and the last-login marker.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/fieldops-dashboard/internal/auth"
	"github.com/hongminglow/fieldops-dashboard/internal/cache"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// ErrNotSignedIn means no token is stored.
var ErrNotSignedIn = errors.New("not signed in")

// ErrLocked means too many failed logins have been recorded.
var ErrLocked = errors.New("too many failed login attempts")

type savedCredentials struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// Options configures a Manager.
type Options struct {
	DefaultLocale models.LocaleHint
	MaxAttempts   int
	Logger        *slog.Logger
	Now           func() time.Time
}

// Manager reads and writes the session records and runs the identity
// guard at sign-in.
type Manager struct {
	kv          storage.KeyValueStore
	guard       *cache.Guard
	locale      models.LocaleHint
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewManager returns a Manager over kv.
func NewManager(kv storage.KeyValueStore, guard *cache.Guard, opts Options) *Manager {
	m := &Manager{
		kv:          kv,
		guard:       guard,
		locale:      opts.DefaultLocale,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = 5
	}
	return m
}

// SignIn records a freshly issued token. The identity guard runs first; if
// it cannot purge a previous identity's data, nothing is written.
func (m *Manager) SignIn(ctx context.Context, token, username, password string) (models.Identity, error) {
	id, err := auth.IdentityFromToken(token)
	if err != nil {
		return models.Identity{}, err
	}
	if err := m.guard.OnIdentitySwitch(ctx, id.ID); err != nil {
		return models.Identity{}, err
	}

	profile, err := json.Marshal(id)
	if err != nil {
		return models.Identity{}, fmt.Errorf("encode profile: %w", err)
	}
	if err := m.kv.Set(ctx, cache.KeyAuthToken, id.Token); err != nil {
		return models.Identity{}, fmt.Errorf("save token: %w", err)
	}
	if err := m.kv.Set(ctx, cache.KeyUserProfile, string(profile)); err != nil {
		return models.Identity{}, fmt.Errorf("save profile: %w", err)
	}
	if password != "" {
		if err := m.saveCredentials(ctx, username, password); err != nil {
			return models.Identity{}, err
		}
	}
	if err := m.kv.Remove(ctx, cache.KeyLoginAttempts); err != nil {
		return models.Identity{}, fmt.Errorf("reset login attempts: %w", err)
	}
	if err := m.kv.Set(ctx, cache.KeyLastLogin, m.now().UTC().Format(time.RFC3339)); err != nil {
		return models.Identity{}, fmt.Errorf("save last login: %w", err)
	}

	m.logger.Info("signed in", slog.String("user", id.ID), slog.String("role", id.Role.String()))
	id.Locale = id.Locale.WithDefaults(m.locale)
	return id, nil
}

// SignOut purges every identity-owned record.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.guard.ClearAllCache(ctx)
}

// Current returns the signed-in identity with locale defaults applied.
func (m *Manager) Current(ctx context.Context) (models.Identity, error) {
	token, err := m.kv.Get(ctx, cache.KeyAuthToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, ErrNotSignedIn
		}
		return models.Identity{}, fmt.Errorf("read token: %w", err)
	}
	id, err := auth.IdentityFromToken(token)
	if err != nil {
		return models.Identity{}, err
	}
	id.Locale = id.Locale.WithDefaults(m.locale)
	return id, nil
}

func (m *Manager) saveCredentials(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	data, err := json.Marshal(savedCredentials{Username: strings.TrimSpace(username), PasswordHash: string(hash)})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := m.kv.Set(ctx, cache.KeySavedCredentials, string(data)); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// VerifyOffline checks username and password against the saved credentials.
// It reports false when nothing is saved.
func (m *Manager) VerifyOffline(ctx context.Context, username, password string) (bool, error) {
	raw, err := m.kv.Get(ctx, cache.KeySavedCredentials)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read credentials: %w", err)
	}
	var saved savedCredentials
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return false, nil
	}
	if !strings.EqualFold(saved.Username, strings.TrimSpace(username)) {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte(password)) == nil, nil
}

// Attempts returns the failed-login count.
func (m *Manager) Attempts(ctx context.Context) (int, error) {
	raw, err := m.kv.Get(ctx, cache.KeyLoginAttempts)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read login attempts: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// RecordFailedAttempt increments the failed-login count and returns it.
func (m *Manager) RecordFailedAttempt(ctx context.Context) (int, error) {
	n, err := m.Attempts(ctx)
	if err != nil {
		return 0, err
	}
	n++
	if err := m.kv.Set(ctx, cache.KeyLoginAttempts, strconv.Itoa(n)); err != nil {
		return 0, fmt.Errorf("save login attempts: %w", err)
	}
	if n >= m.maxAttempts {
		m.logger.Warn("login attempts exhausted", slog.Int("attempts", n))
	}
	return n, nil
}

// CheckLocked returns ErrLocked once the failed-login limit is reached.
func (m *Manager) CheckLocked(ctx context.Context) error {
	n, err := m.Attempts(ctx)
	if err != nil {
		return err
	}
	if n >= m.maxAttempts {
		return ErrLocked
	}
	return nil
}

// LastLogin returns the time of the last successful sign-in.
func (m *Manager) LastLogin(ctx context.Context) (time.Time, bool, error) {
	raw, err := m.kv.Get(ctx, cache.KeyLastLogin)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read last login: %w", err)
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return at, true, nil
}
