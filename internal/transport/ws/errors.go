package ws

import "errors"

var (
	// ErrSessionShutdown is emitted when the server requests a session shutdown.
	ErrSessionShutdown = errors.New("websocket session shutdown")
	// ErrSessionNotFound is returned for ids that are not (or no longer) registered.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDuplicateSession means the id generator collided with a live session.
	ErrDuplicateSession = errors.New("duplicate session id")
	// ErrConnectionClosed is returned when sending on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned when a client's outbound queue overflows.
	ErrSlowConsumer = errors.New("slow consumer")
)
