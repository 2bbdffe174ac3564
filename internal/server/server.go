package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hongminglow/fieldops-dashboard/internal/auth"
	"github.com/hongminglow/fieldops-dashboard/internal/config"
	"github.com/hongminglow/fieldops-dashboard/internal/http/handlers"
	"github.com/hongminglow/fieldops-dashboard/internal/middleware"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up the field-data API: middleware, auth and read routes.
func New(cfg config.Config, store storage.FieldStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	handlers.NewHealthHandler("fieldops-api", time.Now()).Register(mux)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handlers.NewAuthHandler(store, tokenManager, logger).Register(mux)
	handlers.NewFieldHandler(store, tokenManager, logger).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, mux))
	return wrap(cfg.HTTPAddress(), handler)
}

// NewDashboard serves the client's dashboard view and Prometheus metrics on addr.
func NewDashboard(addr string, state handlers.DashboardState, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	handlers.NewHealthHandler("fieldops-dashboard", time.Now()).Register(mux)
	handlers.NewDashboardHandler(state, logger).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	return wrap(addr, middleware.Logging(logger, mux))
}

// wrap applies the shared timeouts. WriteTimeout covers a dashboard refresh
// waiting on four upstream reads.
func wrap(addr string, handler http.Handler) *Server {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
