package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/fieldops-dashboard/internal/auth"
	"github.com/hongminglow/fieldops-dashboard/internal/http/respond"
	"github.com/hongminglow/fieldops-dashboard/internal/middleware"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// FieldHandler serves the collections a dashboard snapshot is built from.
// General routes are open to any signed-in user; /admin routes are scoped to
// what the calling admin created or was assigned.
type FieldHandler struct {
	store  storage.FieldStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewFieldHandler constructs the handler.
func NewFieldHandler(store storage.FieldStore, tokens *auth.TokenManager, logger *slog.Logger) *FieldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldHandler{store: store, tokens: tokens, logger: logger}
}

// Register attaches the read routes to the mux behind bearer authentication.
func (h *FieldHandler) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"/users":                h.handleUsers,
		"/voters":               h.handleVoters,
		"/booths":               h.handleBooths,
		"/assemblies":           h.handleAssemblies,
		"/admin/users":          h.adminOnly(h.handleAdminUsers),
		"/admin/voters":         h.adminOnly(h.handleAdminVoters),
		"/admin/booths":         h.adminOnly(h.handleAdminBooths),
		"/admin/constituencies": h.adminOnly(h.handleAdminConstituencies),
	}
	for path, fn := range routes {
		mux.Handle(path, middleware.RequireAuth(h.tokens, fn))
	}
}

func (h *FieldHandler) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFrom(r.Context())
		if !ok || !models.ParseRole(claims.Role).IsAdmin() {
			respond.Error(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

func (h *FieldHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logger, "users", h.store.ListUsers)
}

func (h *FieldHandler) handleVoters(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logger, "voters", h.store.ListVoters)
}

func (h *FieldHandler) handleBooths(w http.ResponseWriter, r *http.Request) {
	locale, ok := localeFrom(w, r, true)
	if !ok {
		return
	}
	serveList(w, r, h.logger, "booths", func(ctx context.Context) ([]models.PollingBooth, error) {
		return h.store.ListBoothsByLocale(ctx, locale)
	})
}

func (h *FieldHandler) handleAssemblies(w http.ResponseWriter, r *http.Request) {
	locale, ok := localeFrom(w, r, false)
	if !ok {
		return
	}
	serveList(w, r, h.logger, "assemblies", func(ctx context.Context) ([]models.Constituency, error) {
		return h.store.ListConstituenciesByLocale(ctx, locale)
	})
}

func (h *FieldHandler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	serveList(w, r, h.logger, "admin users", func(ctx context.Context) ([]models.SystemUser, error) {
		return h.store.ListUsersCreatedBy(ctx, claims.Subject)
	})
}

func (h *FieldHandler) handleAdminVoters(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logger, "admin voters", func(ctx context.Context) ([]models.VoterRecord, error) {
		booths, err := h.assignedBooths(ctx)
		if err != nil {
			return nil, err
		}
		if len(booths) == 0 {
			return []models.VoterRecord{}, nil
		}
		return h.store.ListVotersInBooths(ctx, booths)
	})
}

func (h *FieldHandler) handleAdminBooths(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, h.logger, "admin booths", func(ctx context.Context) ([]models.PollingBooth, error) {
		booths, err := h.assignedBooths(ctx)
		if err != nil {
			return nil, err
		}
		if len(booths) == 0 {
			return []models.PollingBooth{}, nil
		}
		return h.store.ListBoothsByIDs(ctx, booths)
	})
}

func (h *FieldHandler) handleAdminConstituencies(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	serveList(w, r, h.logger, "admin constituencies", func(ctx context.Context) ([]models.Constituency, error) {
		return h.store.ListConstituenciesAssignedTo(ctx, claims.Subject)
	})
}

// assignedBooths reads the caller's booth assignment from the store rather
// than the token so reassignments apply without a new login.
func (h *FieldHandler) assignedBooths(ctx context.Context) ([]string, error) {
	claims, _ := middleware.ClaimsFrom(ctx)
	account, err := h.store.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return account.AssignedBoothIDs, nil
}

func serveList[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, list func(context.Context) ([]T, error)) {
	if !respond.AllowMethod(w, r, http.MethodGet) {
		return
	}
	items, err := list(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "caller account not found")
			return
		}
		logger.Error("list failed", slog.String("collection", name), slog.String("error", err.Error()))
		respond.Error(w, http.StatusInternalServerError, "failed to load "+name)
		return
	}
	if items == nil {
		items = []T{}
	}
	respond.JSON(w, http.StatusOK, "ok", items)
}

// localeFrom reads state_id, district_id and, when withAssembly is set,
// assembly_id. All requested parameters are mandatory.
func localeFrom(w http.ResponseWriter, r *http.Request, withAssembly bool) (models.LocaleHint, bool) {
	q := r.URL.Query()
	locale := models.LocaleHint{
		StateID:    strings.TrimSpace(q.Get("state_id")),
		DistrictID: strings.TrimSpace(q.Get("district_id")),
	}
	missing := locale.StateID == "" || locale.DistrictID == ""
	message := "state_id and district_id are required"
	if withAssembly {
		locale.AssemblyID = strings.TrimSpace(q.Get("assembly_id"))
		missing = missing || locale.AssemblyID == ""
		message = "state_id, district_id and assembly_id are required"
	}
	if missing {
		respond.Error(w, http.StatusBadRequest, message)
		return models.LocaleHint{}, false
	}
	return locale, true
}
