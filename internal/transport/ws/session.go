package ws

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"tensosense-server-go/internal/domain/auth/model"
	"tensosense-server-go/internal/domain/telemetry"
	"tensosense-server-go/internal/utils"
)

// State is a step of the per-connection ingestion lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TokenVerifier validates the credential presented at connect time.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// Session drives one websocket connection through
// Connecting -> Authenticated -> Streaming -> Closed.
type Session struct {
	hub    *Hub
	conn   *Connection
	logger *utils.Logger

	info  SessionInfo
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelCauseFunc
	closed atomic.Bool
}

// NewSession constructs a session in the Connecting state.
func NewSession(parent context.Context, hub *Hub, conn *Connection, logger *utils.Logger) *Session {
	sessionCtx, cancel := context.WithCancelCause(parent)
	return &Session{
		hub:    hub,
		conn:   conn,
		logger: logger,
		ctx:    sessionCtx,
		cancel: cancel,
	}
}

// Context returns the session context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// ID exposes the session identifier; empty until authenticated.
func (s *Session) ID() string {
	return s.info.ID
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Authenticate verifies token and joins the hub. On failure the connection is
// closed with a policy violation and no session is registered.
func (s *Session) Authenticate(verifier TokenVerifier, token string) error {
	identity, err := verifier.Verify(token)
	if err != nil {
		s.state.Store(int32(StateClosed))
		s.closed.Store(true)
		s.cancel(err)
		_ = s.conn.Close(ClosePolicyViolation, "authentication failed")
		return err
	}
	s.state.Store(int32(StateAuthenticated))

	info, err := s.hub.Join(s.conn, identity)
	if err != nil {
		s.state.Store(int32(StateClosed))
		s.closed.Store(true)
		s.cancel(err)
		_ = s.conn.Close(websocket.CloseInternalServerErr, "registration failed")
		return err
	}
	s.info = info
	s.state.Store(int32(StateStreaming))
	return nil
}

// Run reads frames until the connection fails or is closed, then leaves the hub.
// onDone receives the error that ended the session.
func (s *Session) Run(onDone func(error)) {
	var runErr error
	defer func() {
		s.Close(runErr)
		if onDone != nil {
			onDone(runErr)
		}
	}()

	go func() {
		select {
		case <-s.ctx.Done():
			_ = s.conn.Close(CloseGoingAway, "server shutdown")
		case <-s.conn.Done():
		}
	}()

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) && !s.conn.IsClosed() {
				runErr = err
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		reading, err := telemetry.DecodeReading(payload)
		if err != nil {
			s.logger.DebugTag("WebSocket", "dropping malformed message from %s: %v", s.info.ID, err)
			continue
		}
		if _, err := s.hub.Ingest(s.info.ID, reading); err != nil {
			// evicted while the socket was still draining
			if errors.Is(err, ErrSessionNotFound) {
				return
			}
			s.logger.WarnTag("WebSocket", "ingest from %s failed: %v", s.info.ID, err)
		}
	}
}

// Close leaves the hub and closes the connection. Safe to call more than once.
func (s *Session) Close(reason error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if reason == nil {
		reason = ErrSessionShutdown
	}
	s.state.Store(int32(StateClosed))
	s.cancel(reason)

	if _, err := s.hub.Leave(s.info.ID); err != nil {
		s.logger.DebugTag("WebSocket", "session %s already removed: %v", s.info.ID, err)
	}
	_ = s.conn.Close(CloseNormal, "")
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
