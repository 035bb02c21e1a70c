package webapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensosense-server-go/internal/domain/auth"
	"tensosense-server-go/internal/domain/auth/store"
	"tensosense-server-go/internal/domain/eventbus"
	"tensosense-server-go/internal/domain/eventbus/infrastructure"
	"tensosense-server-go/internal/domain/eventbus/repository"
	"tensosense-server-go/internal/domain/telemetry"
	"tensosense-server-go/internal/platform/config"
	"tensosense-server-go/internal/platform/storage"
	httptransport "tensosense-server-go/internal/transport/http"
	"tensosense-server-go/internal/transport/ws"
)

// bcrypt("password"), cost 10
const passwordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type discardSender struct{}

func (discardSender) Send([]byte) error       { return nil }
func (discardSender) Close(int, string) error { return nil }

type fixture struct {
	router  *httptransport.Router
	hub     *ws.Hub
	manager *auth.Manager
	events  repository.EventRepository
}

func newFixture(t *testing.T, protect bool) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.StaticDir = ""
	cfg.Telemetry.Capacity = 5

	manager, err := auth.NewManager(auth.Options{
		Store:  store.NewMemory(),
		Logger: nopLogger{},
		Token:  auth.NewAuthToken("test-secret"),
	})
	require.NoError(t, err)
	require.NoError(t, manager.Seed(context.Background(), []auth.User{
		{ID: 1, Username: "admin", PasswordHash: passwordHash, Role: "admin"},
	}))

	db, err := storage.Open(storage.Options{DSN: storage.MemoryDSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	events := infrastructure.NewEventRepository(db)

	hub := ws.NewHub(ws.HubOptions{Capacity: cfg.Telemetry.Capacity})

	opts := httptransport.Options{Config: cfg}
	if protect {
		opts.AuthMiddleware = httptransport.BearerAuth(manager)
	}
	router, err := httptransport.Build(opts)
	require.NoError(t, err)

	svc, err := NewService(Options{
		Config: cfg,
		Auth:   manager,
		Hub:    hub,
		Events: events,
	})
	require.NoError(t, err)
	svc.Register(context.Background(), router.API, router.Secured)

	return &fixture{router: router, hub: hub, manager: manager, events: events}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.Engine.ServeHTTP(rec, req)
	return rec
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(Options{})
	require.Error(t, err)
	_, err = NewService(Options{Config: config.DefaultConfig()})
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/login", `{"username":"admin","password":"password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, auth.Identity{ID: 1, Username: "admin", Role: "admin"}, resp.User)
	assert.Greater(t, resp.ExpiresAt, time.Now().Add(23*time.Hour).UnixMilli())

	identity, err := f.manager.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Username)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t, false)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "wrong password", body: `{"username":"admin","password":"nope"}`, status: http.StatusUnauthorized},
		{name: "unknown user", body: `{"username":"ghost","password":"password"}`, status: http.StatusUnauthorized},
		{name: "missing fields", body: `{"username":"admin"}`, status: http.StatusBadRequest},
		{name: "not json", body: `username=admin`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/login", tc.body, "")
			assert.Equal(t, tc.status, rec.Code)
			var body httptransport.ErrorResponse
			require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStatsAndData(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Nil(t, empty["lastUpdate"])
	assert.EqualValues(t, 0, empty["connectedDevices"])

	info, err := f.hub.Join(discardSender{}, auth.Identity{ID: 1, Username: "admin", Role: "admin"})
	require.NoError(t, err)
	for i := 1; i <= 8; i++ {
		_, err := f.hub.Ingest(info.ID, telemetry.Reading{Time: float64(i), Value: 9.8})
		require.NoError(t, err)
	}
	_, err = f.hub.Ingest(info.ID, telemetry.Reading{Time: 9, Value: 120})
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats ws.Stats
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.ConnectedDevices)
	assert.Equal(t, 5, stats.TotalAccelerationPoints)
	assert.Equal(t, 1, stats.TotalTensionPoints)
	require.NotNil(t, stats.LastUpdate)
	require.Len(t, stats.Devices, 1)
	assert.EqualValues(t, 9, stats.Devices[0].DataCount)
	assert.True(t, stats.Devices[0].Connected)

	rec = f.do(t, http.MethodGet, "/api/data?type=acceleration&limit=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var accel struct {
		Data             []telemetry.Sample `json:"data"`
		ConnectedDevices int                `json:"connectedDevices"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &accel))
	require.Len(t, accel.Data, 2)
	assert.Equal(t, 7.0, accel.Data[0].Time)
	assert.Equal(t, 8.0, accel.Data[1].Time)
	assert.Equal(t, 1, accel.ConnectedDevices)

	rec = f.do(t, http.MethodGet, "/api/data?limit=1000", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var both struct {
		Data map[string][]telemetry.Sample `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &both))
	assert.Len(t, both.Data["acceleration"], 5, "limit is capped to capacity")
	assert.Len(t, both.Data["tension"], 1)
}

func TestDataRejectsBadQuery(t *testing.T) {
	f := newFixture(t, false)

	for _, q := range []string{"?type=pressure", "?limit=abc", "?limit=0", "?limit=-3"} {
		rec := f.do(t, http.MethodGet, "/api/data"+q, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestProtectedEndpoints(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	res, err := f.manager.Login(context.Background(), "admin", "password")
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/stats", "", res.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/data", "", res.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool         `json:"success"`
		Data    HealthReport `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "ok", body.Data.Status)
	assert.GreaterOrEqual(t, body.Data.UptimeSeconds, 0.0)
	assert.Positive(t, body.Data.Goroutines)
}

func TestEvents(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, f.events.Store(ctx, repository.Event{
		EventType: eventbus.EventDeviceConnected, SessionID: "device_a", Username: "admin", CreatedAt: now,
	}))
	require.NoError(t, f.events.Store(ctx, repository.Event{
		EventType: eventbus.EventDeviceEvicted, SessionID: "device_a", Username: "admin", CreatedAt: now.Add(time.Minute),
	}))

	rec := f.do(t, http.MethodGet, "/api/events?type=device:evicted", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []repository.Event `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, eventbus.EventDeviceEvicted, list.Data[0].EventType)

	rec = f.do(t, http.MethodGet, "/api/events/session/device_a", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, eventbus.EventDeviceConnected, list.Data[0].EventType)

	rec = f.do(t, http.MethodGet, "/api/events/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Data map[string]int64 `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats.Data[eventbus.EventDeviceEvicted])

	rec = f.do(t, http.MethodGet, "/api/events?type=sample:accepted", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseLimit(t *testing.T) {
	n, err := parseLimit("", 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = parseLimit("", 100, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = parseLimit("5000", 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	_, err = parseLimit("x", 100, 1000)
	assert.Error(t, err)
}
