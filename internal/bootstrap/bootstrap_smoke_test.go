package bootstrap

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"tensosense-server-go/internal/domain/eventbus"
	platformconfig "tensosense-server-go/internal/platform/config"
	platformtesting "tensosense-server-go/internal/platform/testing"
	"tensosense-server-go/internal/transport/ws"
	"tensosense-server-go/internal/utils"
)

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:init-database",
		"auth:init-manager",
		"eventbus:init",
		"telemetry:init-hub",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitStepsRejectsUnmetDependency(t *testing.T) {
	steps := []initStep{{
		ID:        "b",
		DependsOn: []string{"a"},
		Execute:   func(context.Context, *appState) error { return nil },
	}}
	platformtesting.AssertError(t, executeInitSteps(context.Background(), steps, &appState{}))
	platformtesting.AssertError(t, executeInitSteps(context.Background(), nil, nil))
}

func TestExecuteInitGraph(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	state := &appState{config: cfg, configPath: "test", started: time.Now()}
	platformtesting.AssertNoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	defer state.cleanup()

	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.authManager == nil {
		t.Fatal("auth manager is nil after init")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	if state.hub == nil || state.reaper == nil {
		t.Fatal("hub not initialised")
	}
	if state.db != nil {
		t.Fatal("memory store without audit persistence should not open the database")
	}
}

func TestLoadConfigStepUsesLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9123\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	noEnv := func(string) (string, bool) { return "", false }
	state := &appState{
		loader: platformconfig.NewLoader().WithDotEnv(false).WithEnv(noEnv).WithPath(path),
	}
	if err := loadConfigStep(context.Background(), state); err != nil {
		t.Fatalf("loadConfigStep: %v", err)
	}
	if state.config.Server.Port != 9123 || state.configPath != path {
		t.Fatalf("unexpected config %d from %s", state.config.Server.Port, state.configPath)
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logCfg := &utils.LogCfg{
		LogLevel: "info",
		LogDir:   tmp,
		LogFile:  "graph.log",
		Quiet:    true,
	}
	logger, err := utils.NewLogger(logCfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logBootstrapGraph(InitGraph(), logger)
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, logCfg.LogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "initialisation graph") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	for _, step := range InitGraph() {
		if !strings.Contains(content, step.ID) {
			t.Fatalf("expected graph output to contain %q, got: %s", step.ID, content)
		}
	}
}

func TestOriginChecker(t *testing.T) {
	if originChecker(nil) != nil || originChecker([]string{"*"}) != nil {
		t.Fatal("wildcard should allow every origin")
	}

	check := originChecker([]string{"http://dashboard.local/"})
	req, _ := http.NewRequest(http.MethodGet, "/ws", nil)
	if !check(req) {
		t.Fatal("requests without Origin must pass")
	}
	req.Header.Set("Origin", "http://dashboard.local")
	if !check(req) {
		t.Fatal("listed origin rejected")
	}
	req.Header.Set("Origin", "http://evil.local")
	if check(req) {
		t.Fatal("unlisted origin accepted")
	}
}

func TestServeLoginStreamAndShutdown(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	cfg.Server.Port = 0
	cfg.EventBus.Persist = true

	state := &appState{config: cfg, configPath: "test", started: time.Now()}
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	defer state.cleanup()
	require.NotNil(t, state.db)
	require.NotNil(t, state.eventRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)
	require.NoError(t, startServices(state, group, groupCtx))
	require.NotNil(t, state.listenAddr)
	base := state.listenAddr.String()

	resp, err := http.Post("http://"+base+"/api/login", "application/json",
		strings.NewReader(`{"username":"admin","password":"password"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+cfg.Server.WebsocketPath+"?token="+login.Token, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() (string, []byte) {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, sonic.Unmarshal(payload, &env))
		return env.Type, payload
	}

	typ, _ := read()
	require.Equal(t, ws.TypeInitialData, typ)
	typ, payload := read()
	require.Equal(t, ws.TypeDeviceConnected, typ)
	var joined ws.DeviceConnected
	require.NoError(t, sonic.Unmarshal(payload, &joined))
	assert.Equal(t, "admin", joined.Username)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"time":100.0,"value":9.8}`)))
	typ, payload = read()
	require.Equal(t, ws.TypeAccelerationData, typ)
	var added ws.SampleAdded
	require.NoError(t, sonic.Unmarshal(payload, &added))
	assert.Equal(t, 100.0, added.Data.Time)
	assert.Equal(t, 9.8, added.Data.Value)

	cancel()
	require.NoError(t, group.Wait())
	assert.Zero(t, state.hub.Registry().Len())

	// drain the audit queue before reading the trail
	state.bus.Stop()
	events, err := state.eventRepo.FindBySessionID(context.Background(), joined.DeviceID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventbus.EventDeviceConnected, events[0].EventType)
	assert.Equal(t, eventbus.EventDeviceDisconnected, events[1].EventType)
}
