// Package dashboard owns the in-memory dashboard snapshot and reconciles it
// with the durable cache and the field-data API.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hongminglow/fieldops-dashboard/internal/gateway"
	"github.com/hongminglow/fieldops-dashboard/internal/metrics"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/stats"
)

// Fetcher retrieves a full bundle for one caller.
type Fetcher interface {
	Fetch(ctx context.Context, req gateway.Request) (models.Bundle, error)
}

// SnapshotCache is the durable snapshot record.
type SnapshotCache interface {
	Read(ctx context.Context) (models.Snapshot, bool)
	Write(ctx context.Context, snap models.Snapshot) error
	Clear(ctx context.Context) error
}

// ErrStateReset is returned by a load that was in flight when the state was
// reset; its result is discarded.
var ErrStateReset = errors.New("dashboard state was reset during load")

// IdentityProvider resolves the signed-in caller.
type IdentityProvider interface {
	Current(ctx context.Context) (models.Identity, error)
}

// Status is the outcome of the most recent load to settle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

// View is the read-only shape the UI renders.
type View struct {
	Users          []models.SystemUser   `json:"users"`
	Voters         []models.VoterRecord  `json:"voters"`
	Booths         []models.PollingBooth `json:"booths"`
	Constituencies []models.Constituency `json:"constituencies"`
	Admins         []models.SystemUser   `json:"admins"`
	BoothBoys      []models.SystemUser   `json:"boothBoys"`
	Stats          models.DerivedStats   `json:"stats"`
	Loading        bool                  `json:"loading"`
	Error          string                `json:"error,omitempty"`
	Status         Status                `json:"status"`
	LastUpdated    time.Time             `json:"lastUpdated"`
}

// Options configures a State.
type Options struct {
	Fetcher  Fetcher
	Cache    SnapshotCache
	Identity IdentityProvider
	// DefaultLocale fills locale fields missing from the caller's profile.
	DefaultLocale models.LocaleHint
	Logger        *slog.Logger
	Now           func() time.Time
}

// State is the dashboard state container.
//
// Loads are not serialized: when two loads overlap, the one that completes
// last overwrites both the in-memory snapshot and the durable record.
type State struct {
	fetcher  Fetcher
	cache    SnapshotCache
	identity IdentityProvider
	locale   models.LocaleHint
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	generation uint64
	snapshot   models.Snapshot
	stats      models.DerivedStats
	inFlight   int
	status     Status
	errMsg     string
}

// New returns an empty State.
func New(opts Options) *State {
	s := &State{
		fetcher:  opts.Fetcher,
		cache:    opts.Cache,
		identity: opts.Identity,
		locale:   opts.DefaultLocale,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.resetLocked()
	return s
}

// LoadCachedDashboardData installs the durable snapshot, if any, without
// touching the network. A miss leaves the state unchanged and is not an error.
func (s *State) LoadCachedDashboardData(ctx context.Context) (models.Snapshot, bool) {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	snap, ok := s.cache.Read(ctx)
	if !ok {
		return models.Snapshot{}, false
	}
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return models.Snapshot{}, false
	}
	s.installLocked(snap)
	s.mu.Unlock()
	metrics.DashboardLoads.WithLabelValues("cache", metrics.ResultOK).Inc()
	return snap.Clone(), true
}

// LoadDashboardData returns the cached snapshot when one exists and
// forceRefresh is false. Otherwise it fetches from the network, stamps the
// result, writes it through the cache and installs it. On failure the
// previous snapshot stays in place and the error is recorded in the view.
func (s *State) LoadDashboardData(ctx context.Context, forceRefresh bool) (models.Snapshot, error) {
	gen := s.begin()

	if !forceRefresh {
		if snap, ok := s.cache.Read(ctx); ok {
			s.mu.Lock()
			if s.generation != gen {
				s.mu.Unlock()
				return models.Snapshot{}, ErrStateReset
			}
			s.installLocked(snap)
			s.settleLocked(StatusFulfilled, "")
			s.mu.Unlock()
			metrics.DashboardLoads.WithLabelValues("cache", metrics.ResultOK).Inc()
			return snap.Clone(), nil
		}
	}

	snap, err := s.fetch(ctx)
	if err != nil {
		return models.Snapshot{}, s.reject(gen, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Info("discarding dashboard load that outlived a reset")
		return models.Snapshot{}, ErrStateReset
	}
	if err := s.cache.Write(ctx, snap); err != nil {
		s.settleLocked(StatusRejected, err.Error())
		metrics.DashboardLoads.WithLabelValues("network", metrics.ResultError).Inc()
		s.logger.Error("dashboard cache write failed", slog.String("error", err.Error()))
		return models.Snapshot{}, err
	}
	s.installLocked(snap)
	s.settleLocked(StatusFulfilled, "")
	metrics.DashboardLoads.WithLabelValues("network", metrics.ResultOK).Inc()
	s.logger.Info("dashboard refreshed",
		slog.Int("users", len(snap.Users)),
		slog.Int("voters", len(snap.Voters)),
		slog.Int("booths", len(snap.Booths)),
		slog.Int("constituencies", len(snap.Constituencies)))
	return snap.Clone(), nil
}

func (s *State) fetch(ctx context.Context) (models.Snapshot, error) {
	if s.identity == nil {
		return models.Snapshot{}, errors.New("no identity provider configured")
	}
	who, err := s.identity.Current(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("resolve identity: %w", err)
	}
	bundle, err := s.fetcher.Fetch(ctx, gateway.Request{
		Role:   who.Role,
		Locale: who.Locale.WithDefaults(s.locale),
		Token:  who.Token,
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.NewSnapshot(bundle, s.now().UTC()), nil
}

// AddNewUser appends a user created elsewhere to the current snapshot,
// persists the result and re-derives the stats without a reload.
func (s *State) AddNewUser(ctx context.Context, user models.SystemUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot.Clone()
	next.Users = append(next.Users, user)
	if err := s.cache.Write(ctx, next); err != nil {
		s.logger.Error("persist new user failed", slog.String("user", user.ID), slog.String("error", err.Error()))
		return err
	}
	s.installLocked(next)
	return nil
}

// ClearDashboardData empties the in-memory snapshot and the durable record.
func (s *State) ClearDashboardData(ctx context.Context) error {
	s.Reset()
	return s.cache.Clear(ctx)
}

// Reset empties the in-memory state only.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// View returns a copy of the current state.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot.Clone()
	return View{
		Users:          snap.Users,
		Voters:         snap.Voters,
		Booths:         snap.Booths,
		Constituencies: snap.Constituencies,
		Admins:         stats.Admins(snap.Users),
		BoothBoys:      stats.BoothBoys(snap.Users),
		Stats:          s.stats,
		Loading:        s.inFlight > 0,
		Error:          s.errMsg,
		Status:         s.status,
		LastUpdated:    snap.LastUpdated,
	}
}

func (s *State) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	s.status = StatusPending
	s.errMsg = ""
	return s.generation
}

func (s *State) reject(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return err
	}
	s.settleLocked(StatusRejected, err.Error())
	metrics.DashboardLoads.WithLabelValues("network", metrics.ResultError).Inc()
	s.logger.Warn("dashboard load failed", slog.String("error", err.Error()))
	return err
}

func (s *State) settleLocked(status Status, msg string) {
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.status = status
	s.errMsg = msg
}

func (s *State) installLocked(snap models.Snapshot) {
	s.snapshot = snap.Clone()
	s.stats = stats.Compute(s.snapshot)
}

func (s *State) resetLocked() {
	s.generation++
	s.snapshot = models.Snapshot{
		Users:          []models.SystemUser{},
		Voters:         []models.VoterRecord{},
		Booths:         []models.PollingBooth{},
		Constituencies: []models.Constituency{},
	}
	s.stats = models.DerivedStats{}
	s.inFlight = 0
	s.status = StatusIdle
	s.errMsg = ""
}
