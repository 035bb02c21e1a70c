package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tensosense-server-go/internal/platform/observability"
	"tensosense-server-go/internal/utils"
)

// Router upgrades HTTP requests, gates them on a token and runs a Session
// per connection.
type Router struct {
	hub      *Hub
	verifier TokenVerifier
	logger   *utils.Logger

	upgrader *websocket.Upgrader
	connOpts ConnectionOptions
	baseCtx  context.Context
	sessions sync.WaitGroup
}

// RouterOptions configures the websocket router.
type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
	Connection       ConnectionOptions
	// BaseContext is the parent of every session context; cancelling it
	// closes all sessions with 1001.
	BaseContext context.Context
}

// NewRouter constructs a websocket router.
func NewRouter(hub *Hub, verifier TokenVerifier, logger *utils.Logger, opts RouterOptions) *Router {
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	upgrader := &websocket.Upgrader{
		HandshakeTimeout: timeout,
		CheckOrigin:      opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	base := opts.BaseContext
	if base == nil {
		base = context.Background()
	}

	return &Router{
		hub:      hub,
		verifier: verifier,
		logger:   logger,
		upgrader: upgrader,
		connOpts: opts.Connection,
		baseCtx:  base,
	}
}

// Handle upgrades the HTTP connection and launches a new websocket session.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	spanCtx, spanEnd := observability.StartSpan(req.Context(), "transport.websocket", "handle")
	var spanErr error
	defer func() {
		spanEnd(spanErr)
	}()

	token := ExtractToken(req)

	socket, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		spanErr = err
		observability.Count(spanCtx, "websocket.upgrade.error", map[string]string{
			"component": "transport.websocket",
		})
		r.logger.ErrorTag("WebSocket", "upgrade failed: %v", err)
		return
	}

	conn := NewConnection(req.RemoteAddr, socket, r.connOpts)
	session := NewSession(r.baseCtx, r.hub, conn, r.logger)

	if err := session.Authenticate(r.verifier, token); err != nil {
		spanErr = err
		observability.Count(spanCtx, "websocket.auth.rejected", map[string]string{
			"component": "transport.websocket",
		})
		r.logger.WarnTag("WebSocket", "rejected %s: %v", conn.GetID(), err)
		return
	}

	observability.Count(spanCtx, "websocket.connection.opened", map[string]string{
		"component": "transport.websocket",
		"device_id": session.ID(),
	})

	r.sessions.Add(1)
	go session.Run(func(runErr error) {
		defer r.sessions.Done()
		if runErr != nil {
			r.logger.WarnTag("WebSocket", "session %s ended: %v", session.ID(), runErr)
		}
		observability.Count(session.Context(), "websocket.connection.closed", map[string]string{
			"component": "transport.websocket",
			"device_id": session.ID(),
		})
	})
}

// Shutdown closes every session with 1001 and waits for their read loops to
// finish or ctx to expire.
func (r *Router) Shutdown(ctx context.Context) error {
	r.hub.CloseAll(CloseGoingAway, "server shutdown")

	done := make(chan struct{})
	go func() {
		r.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// ExtractToken reads the session token from ?token= or an Authorization
// bearer header.
func ExtractToken(req *http.Request) string {
	if token := strings.TrimSpace(req.URL.Query().Get("token")); token != "" {
		return token
	}
	header := req.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
