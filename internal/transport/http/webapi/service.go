package webapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tensosense-server-go/internal/domain/auth"
	"tensosense-server-go/internal/domain/eventbus/repository"
	"tensosense-server-go/internal/domain/telemetry"
	"tensosense-server-go/internal/platform/config"
	platformerrors "tensosense-server-go/internal/platform/errors"
	httptransport "tensosense-server-go/internal/transport/http"
	"tensosense-server-go/internal/transport/ws"
	"tensosense-server-go/internal/utils"
)

// Authenticator checks credentials and issues session tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.LoginResult, error)
}

// HubReader is the read side of the ingestion hub.
type HubReader interface {
	Stats() ws.Stats
	History(kind telemetry.Kind, limit int) ws.History
}

// Options wires the dashboard API.
type Options struct {
	Config *config.Config
	Logger *utils.Logger
	Auth   Authenticator
	Hub    HubReader
	// Events is optional; the audit endpoints are only mounted when set.
	Events  repository.EventRepository
	Started time.Time
}

// Service serves login, polled stats, recent data and health.
type Service struct {
	logger   *utils.Logger
	auth     Authenticator
	hub      HubReader
	events   repository.EventRepository
	started  time.Time
	capacity int
	defLimit int
}

// NewService validates dependencies and builds the dashboard API.
func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "config is required")
	}
	if opts.Auth == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "authenticator is required")
	}
	if opts.Hub == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "hub is required")
	}
	started := opts.Started
	if started.IsZero() {
		started = time.Now()
	}
	capacity := opts.Config.Telemetry.Capacity
	if capacity <= 0 {
		capacity = telemetry.DefaultCapacity
	}
	defLimit := opts.Config.Telemetry.HistoryDefaultLimit
	if defLimit <= 0 {
		defLimit = 100
	}

	return &Service{
		logger:   opts.Logger,
		auth:     opts.Auth,
		hub:      opts.Hub,
		events:   opts.Events,
		started:  started,
		capacity: capacity,
		defLimit: defLimit,
	}, nil
}

// Register mounts login and health on public, the polled views on secured.
func (s *Service) Register(_ context.Context, public, secured *gin.RouterGroup) {
	public.POST("/login", s.handleLogin)
	public.GET("/health", s.handleHealth)

	secured.GET("/stats", s.handleStats)
	secured.GET("/data", s.handleData)

	if s.events != nil {
		secured.GET("/events", s.handleEvents)
		secured.GET("/events/stats", s.handleEventStats)
		secured.GET("/events/session/:id", s.handleSessionEvents)
	}

	s.logger.InfoTag("HTTP", "dashboard API routes registered")
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and the account it belongs to.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt int64         `json:"expiresAt"`
	User      auth.Identity `json:"user"`
}

// handleLogin exchanges credentials for a session token.
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Router /login [post]
func (s *Service) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.AbortWithError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidCredential) {
			httptransport.AbortWithError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.logger.ErrorTag("HTTP", "login for %s failed: %v", req.Username, err)
		httptransport.AbortWithError(c, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UnixMilli(),
		User:      res.User,
	})
}

// handleStats reports connected devices and buffer sizes.
// @Summary Hub statistics
// @Tags Telemetry
// @Produce json
// @Success 200 {object} ws.Stats
// @Router /stats [get]
func (s *Service) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.hub.Stats())
}

// handleData returns the newest retained samples.
// @Summary Recent samples
// @Tags Telemetry
// @Produce json
// @Param type query string false "acceleration or tension"
// @Param limit query int false "maximum samples per kind" default(100)
// @Success 200 {object} ws.History
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /data [get]
func (s *Service) handleData(c *gin.Context) {
	var kind telemetry.Kind
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		k, ok := telemetry.ParseKind(raw)
		if !ok {
			httptransport.AbortWithError(c, http.StatusBadRequest, "type must be acceleration or tension")
			return
		}
		kind = k
	}

	limit, err := parseLimit(c.Query("limit"), s.defLimit, s.capacity)
	if err != nil {
		httptransport.AbortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, s.hub.History(kind, limit))
}

func parseLimit(raw string, def, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return min(def, max), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, max), nil
}
