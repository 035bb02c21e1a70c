package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domainauth "tensosense-server-go/internal/domain/auth"
	authstore "tensosense-server-go/internal/domain/auth/store"
	"tensosense-server-go/internal/domain/eventbus"
	"tensosense-server-go/internal/domain/eventbus/infrastructure"
	"tensosense-server-go/internal/domain/eventbus/repository"
	platformconfig "tensosense-server-go/internal/platform/config"
	platformerrors "tensosense-server-go/internal/platform/errors"
	platformlogging "tensosense-server-go/internal/platform/logging"
	platformobservability "tensosense-server-go/internal/platform/observability"
	platformstorage "tensosense-server-go/internal/platform/storage"
	httptransport "tensosense-server-go/internal/transport/http"
	_ "tensosense-server-go/internal/transport/http/docs"
	httpwebapi "tensosense-server-go/internal/transport/http/webapi"
	"tensosense-server-go/internal/transport/ws"
	"tensosense-server-go/internal/utils"
)

const serviceName = "tensosense-server"

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configPath            string
	logProvider           *platformlogging.Logger
	logger                *utils.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	eventRepo             repository.EventRepository
	authManager           *domainauth.Manager
	bus                   *eventbus.AsyncEventBus
	audit                 *eventbus.AuditHandler
	hub                   *ws.Hub
	reaper                *ws.Reaper
	started               time.Time

	// listenAddr is filled once the HTTP listener is bound.
	listenAddr net.Addr
}

// Run starts the whole service lifecycle: load config, build dependencies,
// serve until a signal arrives and shut down gracefully.
func Run(ctx context.Context) error {
	state := &appState{started: time.Now()}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.cleanup()
		return err
	}
	defer state.cleanup()

	logBootstrapGraph(steps, state.logger)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)
	if err := startServices(state, group, groupCtx); err != nil {
		return err
	}

	return waitForShutdown(groupCtx, state.logger, group, state.config.Server.ShutdownTimeout+5*time.Second)
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("Bootstrap", "initialisation graph")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("Bootstrap", "  %s: %s", step.ID, step.Title)
			continue
		}
		logger.InfoTag("Bootstrap", "  %s: %s (after %s)", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}
	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialisation steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Open database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "auth:init-manager",
			Title:     "Initialise credential verifier",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindAuth,
			Execute:   initAuthStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Start event bus and audit handler",
			DependsOn: []string{"storage:init-database", "observability:setup-hooks"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "telemetry:init-hub",
			Title:     "Create ingestion hub",
			DependsOn: []string{"eventbus:init", "auth:init-manager"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initHubStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	if state.config != nil {
		// supplied by the caller
		return nil
	}
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	res, err := loader.Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load config", err)
	}
	state.config = res.Config
	state.configPath = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
		Quiet:    state.config.Log.Quiet,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Tagged()
	state.logger.InfoTag(
		"Bootstrap",
		"logging ready [%s] config=%s",
		state.config.Log.Level,
		state.configPath,
	)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
		Service: serviceName,
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logProvider.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

// needsDatabase reports whether any component is backed by the shared sqlite file.
func needsDatabase(cfg *platformconfig.Config) bool {
	sharedUsers := strings.EqualFold(cfg.Auth.Store.Type, authstore.DriverSQLite) && cfg.Auth.Store.SQL.DSN == ""
	return sharedUsers || cfg.EventBus.Persist
}

func initDatabaseStep(_ context.Context, state *appState) error {
	if !needsDatabase(state.config) {
		state.logger.DebugTag("Storage", "no component uses the database, skipping")
		return nil
	}
	db, err := platformstorage.Open(platformstorage.Options{
		Dir:  state.config.Storage.Dir,
		File: state.config.Storage.File,
	})
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("Storage", "database ready under %s", state.config.Storage.Dir)
	return nil
}

func initAuthStep(ctx context.Context, state *appState) error {
	cfg := state.config.Auth

	storeCfg := authstore.Config{
		Driver: cfg.Store.Type,
		Redis: &authstore.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		},
		SQLite: &authstore.SQLiteConfig{DSN: cfg.Store.SQL.DSN},
	}
	var deps authstore.Dependencies
	if cfg.Store.SQL.DSN == "" {
		deps.SQLiteDB = state.db
	}
	userStore, err := authstore.New(storeCfg, deps)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "auth:init-manager", "failed to create user store", err)
	}

	manager, err := domainauth.NewManager(domainauth.Options{
		Store:  userStore,
		Logger: state.logger,
		Hasher: domainauth.NewBcryptHasher(cfg.BcryptCost),
		Token:  domainauth.NewAuthToken(cfg.JWTSecret).WithTTL(cfg.TokenTTL),
	})
	if err != nil {
		_ = userStore.Close(ctx)
		return platformerrors.Wrap(platformerrors.KindAuth, "auth:init-manager", "failed to create auth manager", err)
	}
	state.authManager = manager

	users := make([]domainauth.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, domainauth.User{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
		})
	}
	if err := manager.Seed(ctx, users); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "auth:init-manager", "failed to seed users", err)
	}

	state.logger.InfoTag("Auth", "user store %s ready with %d seeded account(s)", storeCfg.Driver, len(users))
	return nil
}

func initEventBusStep(ctx context.Context, state *appState) error {
	cfg := state.config.EventBus

	if cfg.Persist && state.db != nil {
		state.eventRepo = infrastructure.NewEventRepository(state.db)
		if cfg.Retention > 0 {
			removed, err := state.eventRepo.DeleteOldEvents(ctx, time.Now().Add(-cfg.Retention))
			if err != nil {
				state.logger.WarnTag("Storage", "pruning audit events failed: %v", err)
			} else if removed > 0 {
				state.logger.InfoTag("Storage", "pruned %d audit event(s) older than %s", removed, cfg.Retention)
			}
		}
	}

	bus := eventbus.NewAsyncEventBus(cfg.Workers, cfg.QueueSize, state.logger)
	audit := eventbus.NewAuditHandler(state.logger, state.eventRepo)
	if err := audit.Register(bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "eventbus:init", "failed to subscribe audit handler", err)
	}
	bus.Start()

	state.bus = bus
	state.audit = audit
	return nil
}

func initHubStep(_ context.Context, state *appState) error {
	cfg := state.config.Telemetry

	state.hub = ws.NewHub(ws.HubOptions{
		Capacity:      cfg.Capacity,
		SnapshotLimit: cfg.SnapshotLimit,
		Threshold:     cfg.ClassifyThreshold,
		Publisher:     state.bus,
		Logger:        state.logger,
	})
	state.reaper = ws.NewReaper(state.hub, cfg.IdleTimeout, cfg.SweepInterval, state.logger)

	state.logger.InfoTag("Hub", "retention %d per kind, classify threshold %.1f, idle timeout %s",
		cfg.Capacity, cfg.ClassifyThreshold, cfg.IdleTimeout)
	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	state.reaper.Start()
	g.Go(func() error {
		<-groupCtx.Done()
		state.reaper.Stop()
		return nil
	})

	if _, err := startHTTPServer(state, g, groupCtx); err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "http:start", "failed to start HTTP server", err)
	}
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	var guard gin.HandlerFunc
	if config.Server.ProtectAPI {
		guard = httptransport.BearerAuth(state.authManager)
	}
	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: guard,
	})
	if err != nil {
		return nil, err
	}

	webapiService, err := httpwebapi.NewService(httpwebapi.Options{
		Config:  config,
		Logger:  logger,
		Auth:    state.authManager,
		Hub:     state.hub,
		Events:  state.eventRepo,
		Started: state.started,
	})
	if err != nil {
		logger.ErrorTag("HTTP", "dashboard API init failed: %v", err)
		return nil, err
	}
	webapiService.Register(groupCtx, httpRouter.API, httpRouter.Secured)
	httptransport.RegisterDocs(httpRouter.Engine, logger)

	wsRouter := ws.NewRouter(state.hub, state.authManager, logger, ws.RouterOptions{
		HandshakeTimeout: config.Server.HandshakeTimeout,
		CheckOrigin:      originChecker(config.Server.AllowedOrigins),
		Connection: ws.ConnectionOptions{
			SendBuffer:      config.Telemetry.SendBuffer,
			WriteTimeout:    config.Telemetry.WriteTimeout,
			MaxMessageBytes: config.Telemetry.MaxMessageBytes,
		},
		BaseContext: groupCtx,
	})
	httpRouter.Engine.GET(config.Server.WebsocketPath, gin.WrapF(wsRouter.Handle))

	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	state.listenAddr = listener.Addr()

	httpServer := &http.Server{
		Handler:           httpRouter.Engine,
		ReadHeaderTimeout: config.Server.HandshakeTimeout,
	}

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorTag("HTTP", "HTTP server shutdown failed: %v", err)
		}
		// hijacked websocket connections are not tracked by http.Server
		if err := wsRouter.Shutdown(shutdownCtx); err != nil {
			logger.WarnTag("WebSocket", "sessions did not drain: %v", err)
			return nil
		}
		logger.InfoTag("HTTP", "HTTP and websocket sessions closed")
		return nil
	})

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", listener.Addr())
		logger.InfoTag("HTTP", "websocket endpoint: ws://%s%s", listener.Addr(), config.Server.WebsocketPath)
		logger.InfoTag("HTTP", "API docs: http://%s/docs", listener.Addr())

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

// originChecker allows requests without an Origin header (devices) and
// browser origins listed in allowed; "*" or an empty list allows everything.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

func waitForShutdown(
	ctx context.Context,
	logger *utils.Logger,
	g *errgroup.Group,
	timeout time.Duration,
) error {
	<-ctx.Done()
	logger.InfoTag("Bootstrap", "shutting down: %v", context.Cause(ctx))

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Bootstrap", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("Bootstrap", "all services stopped")
	case <-time.After(timeout):
		logger.ErrorTag("Bootstrap", "shutdown timed out after %s", timeout)
		return errors.New("shutdown timed out")
	}
	return nil
}

// cleanup releases everything the init steps created, in reverse order.
func (s *appState) cleanup() {
	if s.reaper != nil {
		s.reaper.Stop()
	}
	if s.bus != nil {
		s.bus.Stop()
	}
	if s.authManager != nil {
		if err := s.authManager.Close(); err != nil {
			s.logger.ErrorTag("Auth", "closing auth manager failed: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.WarnTag("Storage", "closing database failed: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.observabilityShutdown(shutdownCtx); err != nil {
			s.logger.WarnTag("Bootstrap", "observability shutdown failed: %v", err)
		}
		cancel()
	}
	if s.logProvider != nil {
		_ = s.logProvider.Close()
	}
}
