package transport

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
	"github.com/ringline/signal-server/internal/v1/ratelimit"
	"github.com/ringline/signal-server/internal/v1/room"
)

// Hub upgrades incoming HTTP requests to WebSocket connections and keeps
// the registry the heartbeat supervisor sweeps. Room membership lives in
// room.Router; this registry exists purely for liveness sweeping, since a
// Connection can be open before it ever joins a room.
type Hub struct {
	router  *room.Router
	limiter *ratelimit.Limiter

	upgrader websocket.Upgrader

	mu          sync.Mutex
	connections map[string]*Connection
}

func NewHub(router *room.Router, limiter *ratelimit.Limiter) *Hub {
	return &Hub{
		router:      router,
		limiter:     limiter,
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// No origin allow-list: there are no accounts or stored data
			// behind this endpoint, only an ephemeral in-memory room.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWs upgrades the request and starts the connection's read/write
// pumps. It is rejected up front by the rate limiter if the source IP is
// connecting too fast.
func (h *Hub) ServeWs(c *gin.Context) {
	if !h.limiter.CheckWebSocket(c) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	var connection *Connection
	connection = NewConnection(conn, h.router, func() { h.unregister(connection.ID()) })
	h.register(connection)
	metrics.ActiveConnections.Inc()

	go connection.writePump()
	go connection.readPump()
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.ID()] = c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

// snapshot returns the live connection set for the heartbeat sweep,
// without holding the registry lock while pinging or closing them.
func (h *Hub) snapshot() []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		out = append(out, c)
	}
	return out
}
