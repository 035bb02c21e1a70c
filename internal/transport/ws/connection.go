package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes used by the server.
const (
	CloseNormal           = websocket.CloseNormalClosure
	CloseGoingAway        = websocket.CloseGoingAway
	ClosePolicyViolation  = websocket.ClosePolicyViolation
	CloseTryAgainLater    = websocket.CloseTryAgainLater
	defaultSendBuffer     = 256
	defaultWriteTimeout   = 10 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// Sender is the outbound side of a session as seen by the hub. Send must not
// block; Close may be called more than once.
type Sender interface {
	Send(payload []byte) error
	Close(code int, reason string) error
}

// ConnectionOptions tunes the outbound queue and frame limits.
type ConnectionOptions struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

// Connection wraps a gorilla websocket connection. All writes happen on one
// pump goroutine fed by a bounded queue, so Send never waits on the network.
type Connection struct {
	id           string
	socket       *websocket.Conn
	out          chan []byte
	done         chan struct{}
	writeTimeout time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	closeCode int
	closeText string
}

// NewConnection creates a tracked websocket connection and starts its write pump.
func NewConnection(id string, socket *websocket.Conn, opts ConnectionOptions) *Connection {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaultMaxMessageSize
	}
	socket.SetReadLimit(opts.MaxMessageBytes)

	conn := &Connection{
		id:           id,
		socket:       socket,
		out:          make(chan []byte, opts.SendBuffer),
		done:         make(chan struct{}),
		writeTimeout: opts.WriteTimeout,
	}
	go conn.writePump()
	return conn
}

// Send queues a text frame. When the queue is full the connection is closed
// with 1013 and ErrSlowConsumer is returned.
func (c *Connection) Send(payload []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.out <- payload:
		return nil
	default:
		_ = c.Close(CloseTryAgainLater, "slow consumer")
		return ErrSlowConsumer
	}
}

// Close asks the write pump to send a close frame and tear the socket down.
// It does not wait for the network.
func (c *Connection) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = reason
		c.closed.Store(true)
		close(c.done)
	})
	return nil
}

// ReadMessage receives the next frame from the client.
func (c *Connection) ReadMessage() (int, []byte, error) {
	return c.socket.ReadMessage()
}

// Done is closed once Close has been requested.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// GetID returns the session identifier.
func (c *Connection) GetID() string {
	return c.id
}

// IsClosed reports whether the connection has already been closed.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

func (c *Connection) writePump() {
	defer c.socket.Close()

	for {
		select {
		case payload := <-c.out:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.closeOnce.Do(func() {
					c.closed.Store(true)
					close(c.done)
				})
				return
			}
		case <-c.done:
			if c.closeCode != 0 {
				msg := websocket.FormatCloseMessage(c.closeCode, c.closeText)
				err := c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
				if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
					return
				}
			}
			return
		}
	}
}
