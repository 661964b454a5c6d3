// Package transport owns the WebSocket channel: upgrading connections,
// pumping frames to and from gorilla/websocket, and sweeping dead
// channels. It knows nothing about rooms or calls beyond the room.Router
// it hands inbound frames to.
package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
	"github.com/ringline/signal-server/internal/v1/middleware"
	"github.com/ringline/signal-server/internal/v1/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	sendBuffer = 256
)

// wsConnection is the subset of *websocket.Conn this package uses,
// narrowed so tests can substitute an in-memory fake.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Connection is a single client's WebSocket channel. It implements
// room.Member so the room package can address it without importing this
// package.
type Connection struct {
	conn    wsConnection
	router  *room.Router
	send    chan []byte
	onClose func()

	id            string
	correlationID string

	mu          sync.RWMutex
	roomID      string
	displayName string

	alive atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewConnection wraps conn and wires it to router. onClose, if non-nil, is
// invoked exactly once when the connection is torn down, letting the Hub
// drop it from its heartbeat registry.
func NewConnection(conn wsConnection, router *room.Router, onClose func()) *Connection {
	c := &Connection{
		conn:          conn,
		router:        router,
		send:          make(chan []byte, sendBuffer),
		onClose:       onClose,
		id:            uuid.NewString(),
		correlationID: middleware.NewCorrelationID(),
		done:          make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// room.Member implementation.

func (c *Connection) ID() string { return c.id }

func (c *Connection) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayName
}

func (c *Connection) SetDisplayName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.displayName = name
}

func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) SetRoomID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

func (c *Connection) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send queues frame for delivery without blocking. A full buffer (a
// persistently slow or wedged peer) drops the frame rather than stalling
// the caller, which is typically holding a Room's lock.
func (c *Connection) Send(frame []byte) {
	if frame == nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		logging.Warn(context.Background(), "dropping frame, send buffer full", zap.String("connection_id", c.id))
	}
}

// Close requests shutdown with reason recorded only in logs; the peer
// never sees it. It is safe to call more than once and from any goroutine.
func (c *Connection) Close(reason string) {
	logging.Info(context.Background(), "closing connection", zap.String("connection_id", c.id), zap.String("reason", reason))
	c.shutdown()
	c.conn.Close()
}

func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.onClose != nil {
			c.onClose()
		}
	})
}

// markAliveThenClear atomically reports whether the connection was marked
// alive since the previous sweep, clearing the flag in the process. A pong
// from the peer sets it back via the handler installed in readPump.
func (c *Connection) markAliveThenClear() bool {
	return c.alive.Swap(false)
}

func (c *Connection) sendPing() error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// readPump owns the connection's lifetime: it runs until the socket errors
// or is closed, then unwinds membership and frees resources exactly once.
func (c *Connection) readPump() {
	ctx := context.Background()
	defer func() {
		c.shutdown()
		c.router.HandleDisconnect(ctx, c)
		c.conn.Close()
		metrics.ActiveConnections.Dec()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.router.Dispatch(ctx, c, data)
	}
}

// writePump serializes all writes to the socket onto a single goroutine,
// as gorilla/websocket requires.
func (c *Connection) writePump() {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
