// Package health implements the server's sole external-collaborator
// surface: a fixed liveness probe. It holds no dependency checks because
// the rendezvous server has no datastore or upstream service to be
// unready for.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the health endpoints.
type Handler struct{}

// NewHandler creates a health Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Health handles GET /health, returning 200 "OK".
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Banner handles any other path, returning 200 with an unspecified text
// body. Registered as the router's NoRoute handler.
func (h *Handler) Banner(c *gin.Context) {
	c.String(http.StatusOK, "rendezvous signaling server")
}
