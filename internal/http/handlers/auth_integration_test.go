package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fieldops-dashboard/internal/auth"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/models/dto"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/postgres"
)

// TestAuthIntegration exercises login and user creation against a live Postgres.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")

	ctx := context.Background()
	store, err := postgres.NewFieldStore(ctx, dbURL)
	require.NoError(t, err, "init store")
	defer store.Close()

	tokens := auth.NewTokenManager(mustGetEnv(t, "JWT_SECRET"), mustGetEnv(t, "JWT_ISSUER"), mustGetTTL(t))

	mux := http.NewServeMux()
	NewAuthHandler(store, tokens, nil).Register(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	suffix := time.Now().UnixNano()
	rootName := fmt.Sprintf("root_%d", suffix)
	rootPassword := fmt.Sprintf("Root!%d", suffix)
	created, err := EnsureSuperAdmin(ctx, store, rootName, "", rootPassword)
	require.NoError(t, err)
	require.True(t, created)

	root := requestLogin(t, ts.URL, rootName, rootPassword)
	require.NotEmpty(t, strings.TrimSpace(root.Token), "login response missing token")

	username := fmt.Sprintf("apitest_%d", suffix)
	password := fmt.Sprintf("Pass!%d", suffix)
	user := requestRegister(t, ts.URL, root.Token, dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Phone:    fmt.Sprintf("+1555%07d", suffix%10_000_000),
		Password: password,
		Role:     string(models.RoleAdmin),
	})
	require.Equal(t, username, user.Username)
	require.Equal(t, root.User.ID, user.CreatedBy)

	loggedIn := requestLogin(t, ts.URL, username, password)
	require.Equal(t, user.ID, loggedIn.User.ID)
	t.Logf("created admin %s (id=%s) and logged in via /login", username, user.ID)
}

func requestRegister(t *testing.T, baseURL, token string, payload dto.RegisterRequest) models.SystemUser {
	t.Helper()
	var out models.SystemUser
	status := post(t, baseURL+"/register", token, payload, &out)
	require.Equal(t, http.StatusCreated, status, "register status")
	return out
}

func requestLogin(t *testing.T, baseURL, identifier, password string) dto.LoginResponse {
	t.Helper()
	var out dto.LoginResponse
	status := post(t, baseURL+"/login", "", dto.LoginRequest{Identifier: identifier, Password: password}, &out)
	require.Equal(t, http.StatusOK, status, "login status")
	return out
}

func post(t *testing.T, url, token string, payload, out any) int {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func mustGetTTL(t *testing.T) time.Duration {
	t.Helper()
	minutesStr := mustGetEnv(t, "JWT_TTL_MINUTES")
	minutes, err := strconv.Atoi(minutesStr)
	if err != nil || minutes <= 0 {
		t.Fatalf("invalid JWT_TTL_MINUTES value: %q", minutesStr)
	}
	return time.Duration(minutes) * time.Minute
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
		"../../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
