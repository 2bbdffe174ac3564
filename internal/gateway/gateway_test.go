package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/testutil"
)

type call struct {
	path  string
	query url.Values
	token string
}

// fakeClient serves canned payloads per path.
type fakeClient struct {
	mu       sync.Mutex
	calls    []call
	payloads map[string]any
	errs     map[string]error
	block    map[string]bool
	inFlight int
	maxSeen  int
	hold     time.Duration
}

func newFakeClient(b models.Bundle, plan FetchPlan) *fakeClient {
	return &fakeClient{
		payloads: map[string]any{
			plan.Users.Path:          b.Users,
			plan.Voters.Path:         b.Voters,
			plan.Booths.Path:         b.Booths,
			plan.Constituencies.Path: b.Constituencies,
		},
		errs:  map[string]error{},
		block: map[string]bool{},
	}
}

func (f *fakeClient) Get(ctx context.Context, path string, query url.Values, token string, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{path: path, query: query, token: token})
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	err, payload, block, hold := f.errs[path], f.payloads[path], f.block[path], f.hold
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if hold > 0 {
		time.Sleep(hold)
	}
	if err != nil {
		return err
	}
	data, _ := json.Marshal(payload)
	return json.Unmarshal(data, out)
}

func (f *fakeClient) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.path)
	}
	sort.Strings(out)
	return out
}

func TestPlanFor(t *testing.T) {
	assert.Equal(t, "admin", PlanFor(models.RoleAdmin).Name)
	assert.Equal(t, "admin", PlanFor(models.RoleSuperAdmin).Name)
	assert.Equal(t, "general", PlanFor(models.RoleBoothBoy).Name)
	assert.Equal(t, "general", PlanFor(models.RoleUnknown).Name)
}

func TestFetch_AdminPlan(t *testing.T) {
	want := testutil.Bundle("a")
	client := newFakeClient(want, adminPlan)
	gw := New(client, nil)

	got, err := gw.Fetch(context.Background(), Request{Role: models.ParseRole("Admin"), Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"/admin/booths", "/admin/constituencies", "/admin/users", "/admin/voters"}, client.paths())
	for _, c := range client.calls {
		assert.Equal(t, "tok", c.token)
		assert.Empty(t, c.query)
	}
}

func TestFetch_GeneralPlanUsesLocale(t *testing.T) {
	want := testutil.Bundle("g")
	client := newFakeClient(want, generalPlan)
	gw := New(client, nil)

	locale := models.LocaleHint{StateID: "29", DistrictID: "4", AssemblyID: "151"}
	got, err := gw.Fetch(context.Background(), Request{Role: models.RoleBoothBoy, Locale: locale, Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"/assemblies", "/booths", "/users", "/voters"}, client.paths())

	for _, c := range client.calls {
		switch c.path {
		case "/booths":
			assert.Equal(t, "29", c.query.Get("state_id"))
			assert.Equal(t, "4", c.query.Get("district_id"))
			assert.Equal(t, "151", c.query.Get("assembly_id"))
		case "/assemblies":
			assert.Equal(t, "29", c.query.Get("state_id"))
			assert.Equal(t, "4", c.query.Get("district_id"))
		}
	}
}

func TestFetch_RequestsRunConcurrently(t *testing.T) {
	client := newFakeClient(testutil.Bundle("a"), adminPlan)
	client.hold = 50 * time.Millisecond

	_, err := New(client, nil).Fetch(context.Background(), Request{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 4, client.maxSeen)
}

func TestFetch_FailFast(t *testing.T) {
	client := newFakeClient(testutil.Bundle("a"), generalPlan)
	boom := errors.New("connection reset")
	client.errs["/voters"] = boom
	client.block["/users"] = true
	client.block["/booths"] = true

	done := make(chan struct{})
	var (
		got models.Bundle
		err error
	)
	go func() {
		got, err = New(client, nil).Fetch(context.Background(), Request{Role: models.RoleBoothBoy})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not fail fast")
	}
	require.ErrorIs(t, err, boom)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "voters", reqErr.Endpoint)
	assert.Equal(t, models.Bundle{}, got)
}

func TestFetch_EmptyCollectionsAreNonNil(t *testing.T) {
	client := newFakeClient(models.Bundle{}, adminPlan)
	got, err := New(client, nil).Fetch(context.Background(), Request{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.NotNil(t, got.Users)
	assert.NotNil(t, got.Voters)
	assert.NotNil(t, got.Booths)
	assert.NotNil(t, got.Constituencies)
}
