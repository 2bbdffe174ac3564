package handlers

import (
	"net/http"
	"time"

	"github.com/hongminglow/fieldops-dashboard/internal/http/respond"
)

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	service   string
	startedAt time.Time
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(service string, startedAt time.Time) *HealthHandler {
	return &HealthHandler{service: service, startedAt: startedAt}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	if !respond.AllowMethod(w, r, http.MethodGet) {
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"service": h.service,
		"status":  "ok",
		"uptime":  time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
