package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/fieldops-dashboard/internal/auth"
	"github.com/hongminglow/fieldops-dashboard/internal/dashboard"
	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/models/dto"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/memory"
	"github.com/hongminglow/fieldops-dashboard/internal/testutil"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	store  *memory.FieldStore
	tokens *auth.TokenManager
	mux    *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewFieldStore(),
		tokens: auth.NewTokenManager("test-secret", "fieldops-test", time.Hour),
		mux:    http.NewServeMux(),
	}
	NewAuthHandler(f.store, f.tokens, nil).Register(f.mux)
	NewFieldHandler(f.store, f.tokens, nil).Register(f.mux)
	NewHealthHandler("fieldops-api", time.Now()).Register(f.mux)
	return f
}

func (f *fixture) account(t *testing.T, id string, role models.Role, password string, booths ...string) (models.Account, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	acct, err := f.store.CreateUser(context.Background(), models.Account{
		SystemUser: models.SystemUser{
			ID:               id,
			Username:         id,
			Email:            id + "@example.com",
			Phone:            "+910000000000",
			Role:             string(role),
			AssignedBoothIDs: booths,
		},
		StateID:      "1",
		DistrictID:   "2",
		AssemblyID:   "3",
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	token, err := f.tokens.Generate(acct)
	require.NoError(t, err)
	return acct, token
}

func (f *fixture) do(t *testing.T, method, target, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.account(t, "asha", models.RoleAdmin, "correct-horse")

	rec, env := f.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Identifier: "asha", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "asha", resp.User.ID)

	claims, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "asha", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "3", claims.AssemblyID)

	rec, _ = f.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Identifier: "asha", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Identifier: "nobody", Password: "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRegisterRoleHierarchy(t *testing.T) {
	f := newFixture(t)
	_, rootToken := f.account(t, "root", models.RoleSuperAdmin, "rootpassword")
	_, adminToken := f.account(t, "asha", models.RoleAdmin, "ashapassword")
	_, boyToken := f.account(t, "ravi", models.RoleBoothBoy, "ravipassword")

	newUser := func(name, role string) dto.RegisterRequest {
		return dto.RegisterRequest{
			Username: name,
			FullName: "New " + name,
			Email:    name + "@example.com",
			Phone:    "+911111111111",
			Password: "longenough",
			Role:     role,
		}
	}

	tests := []struct {
		name   string
		token  string
		req    dto.RegisterRequest
		status int
	}{
		{"anonymous", "", newUser("a1", "booth_boy"), http.StatusUnauthorized},
		{"super admin creates admin", rootToken, newUser("a2", "admin"), http.StatusCreated},
		{"super admin creates booth boy", rootToken, newUser("a3", "booth_boy"), http.StatusCreated},
		{"admin creates booth boy", adminToken, newUser("a4", "BoothBoy"), http.StatusCreated},
		{"admin cannot create admin", adminToken, newUser("a5", "admin"), http.StatusForbidden},
		{"booth boy cannot create", boyToken, newUser("a6", "booth_boy"), http.StatusForbidden},
		{"unknown role", rootToken, newUser("a7", "volunteer"), http.StatusBadRequest},
		{"short password", rootToken, dto.RegisterRequest{Username: "a8", Email: "a8@x", Phone: "1", Password: "short", Role: "admin"}, http.StatusBadRequest},
		{"duplicate", rootToken, newUser("a2", "admin"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(t, http.MethodPost, "/register", tt.token, tt.req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	created, err := f.store.FindByUsernameOrEmail(context.Background(), "a4")
	require.NoError(t, err)
	assert.Equal(t, "asha", created.CreatedBy)
	assert.Equal(t, string(models.RoleBoothBoy), created.Role)
	assert.Equal(t, "3", created.AssemblyID, "locale inherited from creator")
}

func TestGeneralReads(t *testing.T) {
	f := newFixture(t)
	_, token := f.account(t, "ravi", models.RoleBoothBoy, "ravipassword")
	b := testutil.Bundle("x")
	f.store.AddVoters(b.Voters...)
	f.store.AddBooths(b.Booths...)
	f.store.AddBooths(models.PollingBooth{ID: "other", StateCode: "9", DistrictCode: "9", AssemblyID: "9"})
	f.store.AddConstituency(b.Constituencies[0], "1", "1")

	rec, env := f.do(t, http.MethodGet, "/booths?state_id=1&district_id=1&assembly_id=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var booths []models.PollingBooth
	require.NoError(t, json.Unmarshal(env.Data, &booths))
	assert.Equal(t, b.Booths, booths)

	rec, env = f.do(t, http.MethodGet, "/assemblies?state_id=1&district_id=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cons []models.Constituency
	require.NoError(t, json.Unmarshal(env.Data, &cons))
	assert.Equal(t, b.Constituencies, cons)

	rec, env = f.do(t, http.MethodGet, "/voters", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var voters []models.VoterRecord
	require.NoError(t, json.Unmarshal(env.Data, &voters))
	assert.Len(t, voters, 1)

	rec, _ = f.do(t, http.MethodGet, "/booths?state_id=1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminReadsAreScopedToCaller(t *testing.T) {
	f := newFixture(t)
	_, adminToken := f.account(t, "asha", models.RoleAdmin, "ashapassword", "b1")
	_, boyToken := f.account(t, "ravi", models.RoleBoothBoy, "ravipassword")
	ctx := context.Background()
	_, err := f.store.CreateUser(ctx, models.Account{SystemUser: models.SystemUser{
		ID: "mine", Username: "mine", Email: "mine@x", Role: "booth_boy", CreatedBy: "asha"}})
	require.NoError(t, err)
	_, err = f.store.CreateUser(ctx, models.Account{SystemUser: models.SystemUser{
		ID: "theirs", Username: "theirs", Email: "theirs@x", Role: "booth_boy", CreatedBy: "someone"}})
	require.NoError(t, err)
	f.store.AddBooths(models.PollingBooth{ID: "b1"}, models.PollingBooth{ID: "b2"})
	f.store.AddVoters(models.VoterRecord{EPIC: "E1", BoothID: "b1"}, models.VoterRecord{EPIC: "E2", BoothID: "b2"})
	f.store.AddConstituency(models.Constituency{ID: "c1", Name: "North"}, "1", "2")
	f.store.AddConstituency(models.Constituency{ID: "c2", Name: "South"}, "1", "2")
	f.store.AssignConstituency("asha", "c2")

	var users []models.SystemUser
	_, env := f.do(t, http.MethodGet, "/admin/users", adminToken, nil)
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "mine", users[0].ID)

	var voters []models.VoterRecord
	_, env = f.do(t, http.MethodGet, "/admin/voters", adminToken, nil)
	require.NoError(t, json.Unmarshal(env.Data, &voters))
	require.Len(t, voters, 1)
	assert.Equal(t, "E1", voters[0].EPIC)

	var booths []models.PollingBooth
	_, env = f.do(t, http.MethodGet, "/admin/booths", adminToken, nil)
	require.NoError(t, json.Unmarshal(env.Data, &booths))
	require.Len(t, booths, 1)
	assert.Equal(t, "b1", booths[0].ID)

	var cons []models.Constituency
	_, env = f.do(t, http.MethodGet, "/admin/constituencies", adminToken, nil)
	require.NoError(t, json.Unmarshal(env.Data, &cons))
	require.Len(t, cons, 1)
	assert.Equal(t, "c2", cons[0].ID)

	rec, _ := f.do(t, http.MethodGet, "/admin/users", boyToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "fieldops-api")
}

func TestEnsureSuperAdmin(t *testing.T) {
	store := memory.NewFieldStore()
	ctx := context.Background()

	created, err := EnsureSuperAdmin(ctx, store, "root", "", "rootpassword")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureSuperAdmin(ctx, store, "root", "", "rootpassword")
	require.NoError(t, err)
	assert.False(t, created)

	acct, err := store.FindByUsernameOrEmail(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, models.ParseRole(acct.Role))

	_, err = EnsureSuperAdmin(ctx, store, "other", "", "short")
	assert.Error(t, err)
}

type fakeDashboard struct {
	view    dashboard.View
	err     error
	force   []bool
	ctxErrs []error
}

func (f *fakeDashboard) View() dashboard.View { return f.view }

func (f *fakeDashboard) LoadDashboardData(ctx context.Context, force bool) (models.Snapshot, error) {
	f.force = append(f.force, force)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return models.Snapshot{}, f.err
}

func TestDashboardHandler(t *testing.T) {
	state := &fakeDashboard{view: dashboard.View{
		Status: dashboard.StatusFulfilled,
		Stats:  models.DerivedStats{TotalAdmins: 2},
	}}
	mux := http.NewServeMux()
	NewDashboardHandler(state, nil).Register(mux)

	serve := func(method, target string) (*httptest.ResponseRecorder, dashboard.View) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		var view dashboard.View
		if len(env.Data) > 0 {
			require.NoError(t, json.Unmarshal(env.Data, &view))
		}
		return rec, view
	}

	rec, view := serve(http.MethodGet, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, view.Stats.TotalAdmins)

	rec, _ = serve(http.MethodPost, "/dashboard/refresh?force=true")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = serve(http.MethodPost, "/dashboard/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{true, false}, state.force)

	rec, _ = serve(http.MethodPost, "/dashboard/refresh?force=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	state.err = errors.New("voters: upstream 502")
	rec, view = serve(http.MethodPost, "/dashboard/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, dashboard.StatusFulfilled, view.Status, "stale view still returned")

	rec, _ = serve(http.MethodGet, "/dashboard/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDashboardRefreshOutlivesClientDisconnect(t *testing.T) {
	state := &fakeDashboard{view: dashboard.View{Status: dashboard.StatusFulfilled}}
	mux := http.NewServeMux()
	NewDashboardHandler(state, nil).Register(mux)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/refresh?force=true", nil).WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, state.ctxErrs, 1)
	assert.NoError(t, state.ctxErrs[0])
}
