package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/fieldops-dashboard/internal/auth"
	"github.com/hongminglow/fieldops-dashboard/internal/http/respond"
	"github.com/hongminglow/fieldops-dashboard/internal/middleware"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/models/dto"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// AuthHandler owns the login and user-creation endpoints.
type AuthHandler struct {
	store  storage.UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{store: store, tokens: tokens, logger: logger}
}

// Register attaches auth routes to the mux. /register requires a bearer
// token: accounts are only ever created by an existing admin.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/login", h.handleLogin)
	mux.Handle("/register", middleware.RequireAuth(h.tokens, http.HandlerFunc(h.handleRegister)))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !respond.AllowMethod(w, r, http.MethodPost) {
		return
	}
	caller, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	phone := req.NormalizedPhone()
	if phone == "" {
		respond.Error(w, http.StatusBadRequest, "phone is required")
		return
	}
	target := models.ParseRole(req.Role)
	if target == models.RoleUnknown {
		respond.Error(w, http.StatusBadRequest, "role must be admin or booth_boy")
		return
	}
	if !models.ParseRole(caller.Role).CanCreate(target) {
		respond.Error(w, http.StatusForbidden, fmt.Sprintf("%s may not create %s accounts", models.ParseRole(caller.Role), target))
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	// New accounts inherit the creator's locale unless the request names one.
	locale := models.LocaleHint{StateID: req.StateID, DistrictID: req.DistrictID, AssemblyID: req.AssemblyID}.
		WithDefaults(caller.Identity().Locale)
	account := models.Account{
		SystemUser: models.SystemUser{
			Username:         strings.TrimSpace(req.Username),
			FullName:         strings.TrimSpace(req.FullName),
			Email:            strings.TrimSpace(req.Email),
			Phone:            phone,
			Role:             string(target),
			AssignedBoothIDs: req.AssignedBoothIDs,
			CreatedBy:        caller.Subject,
		},
		StateID:      locale.StateID,
		DistrictID:   locale.DistrictID,
		AssemblyID:   locale.AssemblyID,
		PasswordHash: passwordHash,
	}
	created, err := h.store.CreateUser(r.Context(), account)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		default:
			h.logger.Error("create user failed", slog.String("username", account.Username), slog.String("error", err.Error()))
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	h.logger.Info("user created",
		slog.String("id", created.ID),
		slog.String("role", created.Role),
		slog.String("created_by", created.CreatedBy),
	)
	respond.JSON(w, http.StatusCreated, "User created successfully", created.SystemUser)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !respond.AllowMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil || strings.TrimSpace(req.Identifier) == "" {
		respond.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}
	user, err := h.store.FindByUsernameOrEmail(r.Context(), strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.logger.Info("login failed: unknown identifier", slog.String("identifier", req.Identifier))
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed: fetch user", slog.String("identifier", req.Identifier), slog.String("error", err.Error()))
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error("generate token failed", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}

// EnsureSuperAdmin creates a super admin account unless one with the same
// username already exists. It returns true when an account was created.
func EnsureSuperAdmin(ctx context.Context, store storage.UserStore, username, email, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if _, err := store.FindByUsernameOrEmail(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("lookup bootstrap admin: %w", err)
	}
	if strings.TrimSpace(email) == "" {
		email = username + "@localhost"
	}
	if err := validatePassword(password); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash bootstrap password: %w", err)
	}
	_, err = store.CreateUser(ctx, models.Account{
		SystemUser: models.SystemUser{
			Username: username,
			FullName: username,
			Email:    email,
			Phone:    "-",
			Role:     string(models.RoleSuperAdmin),
		},
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return true, nil
}

func validatePassword(password string) error {
	if len(strings.TrimSpace(password)) < 8 || !utf8.ValidString(password) {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
