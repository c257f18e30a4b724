package httphandler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/baghound/internal/adapter/driving/http"
	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// --- Mock implementations ---

type mockDirectory struct {
	accounts []model.Account
}

func (m *mockDirectory) Snapshot() []model.Account {
	return m.accounts
}

type mockEventSource struct {
	events []model.AuditEvent
}

func (m *mockEventSource) Recent(n int) []model.AuditEvent {
	if n > len(m.events) {
		n = len(m.events)
	}
	return m.events[:n]
}

type mockSchedulerStatus struct {
	running   bool
	cycles    uint64
	lastCycle time.Time
}

func (m *mockSchedulerStatus) Running() bool          { return m.running }
func (m *mockSchedulerStatus) Cycles() uint64         { return m.cycles }
func (m *mockSchedulerStatus) LastCycleAt() time.Time { return m.lastCycle }

func newTestServer(dir *mockDirectory, events *mockEventSource, sched *mockSchedulerStatus) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := httphandler.NewHandler(dir, events, sched, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, h)
	return httptest.NewServer(httphandler.ApplyMiddleware(mux, logger))
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// --- Tests ---

func TestHealth(t *testing.T) {
	srv := newTestServer(&mockDirectory{}, &mockEventSource{}, &mockSchedulerStatus{})
	defer srv.Close()

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/v1/health", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	last := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	srv := newTestServer(&mockDirectory{}, &mockEventSource{},
		&mockSchedulerStatus{running: true, cycles: 12, lastCycle: last})
	defer srv.Close()

	var body httphandler.StatusResponse
	resp := getJSON(t, srv.URL+"/api/v1/status", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Running)
	assert.Equal(t, uint64(12), body.Cycles)
	assert.Equal(t, "2026-03-01T08:00:00Z", body.LastCycleAt)
}

func TestStatusBeforeFirstCycle(t *testing.T) {
	srv := newTestServer(&mockDirectory{}, &mockEventSource{}, &mockSchedulerStatus{})
	defer srv.Close()

	var body httphandler.StatusResponse
	getJSON(t, srv.URL+"/api/v1/status", &body)

	assert.False(t, body.Running)
	assert.Empty(t, body.LastCycleAt)
}

func TestAccounts(t *testing.T) {
	until := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	dir := &mockDirectory{accounts: []model.Account{
		{
			Name:        "alice",
			State:       model.AccountStateActive,
			Credentials: model.Credentials{AccessToken: "secret-token"},
		},
		{
			Name:          "bob",
			State:         model.AccountStateCooldown,
			CooldownUntil: until,
		},
	}}
	srv := newTestServer(dir, &mockEventSource{}, &mockSchedulerStatus{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/accounts")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token", "credentials must never be serialized")

	var body []httphandler.AccountResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body, 2)
	assert.Equal(t, "alice", body[0].Name)
	assert.Equal(t, "active", body[0].State)
	assert.Empty(t, body[0].CooldownUntil)
	assert.Equal(t, "cooldown", body[1].State)
	assert.Equal(t, "2026-03-01T09:00:00Z", body[1].CooldownUntil)
}

func TestEvents(t *testing.T) {
	events := &mockEventSource{events: []model.AuditEvent{
		{
			Timestamp:   time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC),
			AccountName: "alice",
			ItemID:      "item-1",
			ItemName:    "Surprise Bag",
			StoreID:     "store-1",
			StoreName:   "Corner Bakery",
			EventType:   model.EventTypeReserved,
		},
	}}
	srv := newTestServer(&mockDirectory{}, events, &mockSchedulerStatus{})
	defer srv.Close()

	var body []httphandler.EventResponse
	resp := getJSON(t, srv.URL+"/api/v1/events", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body, 1)
	assert.Equal(t, "RESERVED", body[0].EventType)
	assert.Equal(t, "alice", body[0].AccountName)
	assert.Equal(t, "2026-03-01T08:15:00Z", body[0].Timestamp)
}

func TestEventsEmpty(t *testing.T) {
	srv := newTestServer(&mockDirectory{}, &mockEventSource{}, &mockSchedulerStatus{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw), "an empty list must encode as [], not null")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockDirectory{}, &mockEventSource{}, &mockSchedulerStatus{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/accounts", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(&mockDirectory{}, &mockEventSource{}, &mockSchedulerStatus{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/nope")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
