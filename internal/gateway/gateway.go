// Package gateway fetches the collections of one dashboard snapshot from
// the field-data API.
package gateway

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/fieldops-dashboard/internal/metrics"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

// Client performs one authenticated JSON read and decodes the payload into out.
type Client interface {
	Get(ctx context.Context, path string, query url.Values, token string, out any) error
}

// Request identifies the caller of one fetch.
type Request struct {
	Role   models.Role
	Locale models.LocaleHint
	Token  string
}

// Gateway issues the four reads of a fetch plan concurrently.
type Gateway struct {
	client Client
	logger *slog.Logger
}

// New returns a gateway over client. A nil logger uses slog.Default().
func New(client Client, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: client, logger: logger}
}

// Fetch runs the plan for req.Role. It succeeds only if all four reads
// succeed; the first failure cancels the others and no partial bundle is
// returned.
func (g *Gateway) Fetch(ctx context.Context, req Request) (models.Bundle, error) {
	plan := PlanFor(req.Role)
	start := time.Now()
	defer func() { metrics.GatewayFetchDuration.Observe(time.Since(start).Seconds()) }()

	var (
		users          []models.SystemUser
		voters         []models.VoterRecord
		booths         []models.PollingBooth
		constituencies []models.Constituency
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return g.get(egCtx, plan.Users, req, &users) })
	eg.Go(func() error { return g.get(egCtx, plan.Voters, req, &voters) })
	eg.Go(func() error { return g.get(egCtx, plan.Booths, req, &booths) })
	eg.Go(func() error { return g.get(egCtx, plan.Constituencies, req, &constituencies) })

	if err := eg.Wait(); err != nil {
		g.logger.Warn("dashboard fetch failed",
			slog.String("plan", plan.Name), slog.String("role", req.Role.String()), slog.String("error", err.Error()))
		return models.Bundle{}, err
	}

	g.logger.Debug("dashboard fetch complete",
		slog.String("plan", plan.Name),
		slog.Int("users", len(users)),
		slog.Int("voters", len(voters)),
		slog.Int("booths", len(booths)),
		slog.Int("constituencies", len(constituencies)),
		slog.Duration("took", time.Since(start)))

	return models.Bundle{
		Users:          nonNil(users),
		Voters:         nonNil(voters),
		Booths:         nonNil(booths),
		Constituencies: nonNil(constituencies),
	}, nil
}

func (g *Gateway) get(ctx context.Context, ep Endpoint, req Request, out any) error {
	if err := g.client.Get(ctx, ep.Path, ep.query(req.Locale), req.Token, out); err != nil {
		return wrapEndpoint(ep.Name, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
