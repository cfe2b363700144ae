package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrelay/pkg/types"
)

// Connection wraps a WebSocket connection with a transport-assigned handle
// and a single writer goroutine. All outbound frames go through the write
// channel so concurrent senders never interleave writes on the socket.
type Connection struct {
	id            string
	conn          *websocket.Conn
	writeCh       chan []byte
	writeTimeout  time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	mu            sync.RWMutex
	userID        string
	displayName   string
	authenticated bool
}

// NewConnection creates a connection wrapper with a fresh handle and starts
// its writer goroutine. A new physical connection always gets a new handle;
// handles are never reused across reconnects.
func NewConnection(conn *websocket.Conn, bufferSize int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.New().String(),
		conn:         conn,
		writeCh:      make(chan []byte, bufferSize),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// ID returns the opaque connection handle.
func (c *Connection) ID() string {
	return c.id
}

// Send frames event and data as an envelope and queues it for the writer.
// Best-effort: a closed connection or a full queue returns an error and the
// frame is dropped for this connection only.
func (c *Connection) Send(event string, data interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	frame, err := json.Marshal(types.Envelope{Event: event, Data: data})
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- frame:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// SetIdentity records the authenticated user. The state machine transitions
// to authenticated exactly once per connection.
func (c *Connection) SetIdentity(userID, displayName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = userID
	c.displayName = displayName
	c.authenticated = true
}

// UserID returns the authenticated user's ID, empty until authentication.
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// DisplayName returns the authenticated user's display name.
func (c *Connection) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayName
}

// IsAuthenticated reports whether the connection has authenticated.
func (c *Connection) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Close tears down the transport. Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
