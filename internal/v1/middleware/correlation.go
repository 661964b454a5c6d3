// Package middleware contains Gin middleware and small connection-scoped
// helpers shared by the rendezvous server.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ringline/signal-server/internal/v1/logging"
)

// HeaderXCorrelationID is the header key for the correlation ID.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID adds a correlation ID to the request context for the HTTP
// surface (health, metrics). The WebSocket upgrade path mints its own
// per-connection id in transport.NewConnection instead, since a single
// upgrade request fans out into a long-lived channel.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Header(HeaderXCorrelationID, correlationID)
		c.Set(string(logging.CorrelationIDKey), correlationID)
		c.Next()
	}
}

// NewCorrelationID mints a fresh correlation id, used for connections and
// anywhere else that needs one outside of an HTTP request.
func NewCorrelationID() string {
	return uuid.New().String()
}
