package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hongminglow/fieldops-dashboard/internal/dashboard"
	"github.com/hongminglow/fieldops-dashboard/internal/http/respond"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

// DashboardState is the part of dashboard.State the local view server uses.
type DashboardState interface {
	View() dashboard.View
	LoadDashboardData(ctx context.Context, forceRefresh bool) (models.Snapshot, error)
}

// DashboardHandler exposes the client's dashboard state over local HTTP.
type DashboardHandler struct {
	state  DashboardState
	logger *slog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(state DashboardState, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{state: state, logger: logger}
}

// Register wires GET /dashboard and POST /dashboard/refresh.
func (h *DashboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/dashboard", h.handleView)
	mux.HandleFunc("/dashboard/refresh", h.handleRefresh)
}

func (h *DashboardHandler) handleView(w http.ResponseWriter, r *http.Request) {
	if !respond.AllowMethod(w, r, http.MethodGet) {
		return
	}
	respond.JSON(w, http.StatusOK, "ok", h.state.View())
}

// handleRefresh runs a load and answers with the resulting view. A failed
// load still returns the view so the caller sees the stale snapshot together
// with the error.
func (h *DashboardHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !respond.AllowMethod(w, r, http.MethodPost) {
		return
	}
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = parsed
	}
	// A client hanging up must not cancel a load other views are waiting on.
	if _, err := h.state.LoadDashboardData(context.WithoutCancel(r.Context()), force); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, dashboard.ErrStateReset) {
			status = http.StatusConflict
		}
		h.logger.Warn("dashboard refresh failed", slog.Bool("force", force), slog.String("error", err.Error()))
		respond.JSON(w, status, err.Error(), h.state.View())
		return
	}
	respond.JSON(w, http.StatusOK, "ok", h.state.View())
}
