// Package ratelimit guards the /ws upgrade endpoint against connect
// storms. It is connection-admission hygiene, not authentication: it
// never inspects identity, only the source IP's recent connect rate.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/config"
	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
)

// Limiter caps new WebSocket upgrades per source IP.
type Limiter struct {
	wsConnect *limiter.Limiter
}

// New builds a Limiter from validated config, using an in-memory store.
// There is no Redis store here: a single process holds the entire Room
// registry, so there is nothing to synchronize across instances.
func New(cfg *config.Config) *Limiter {
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RateLimitWsConnectPerMinute),
	}
	store := memory.NewStore()
	return &Limiter{
		wsConnect: limiter.New(store, rate),
	}
}

// CheckWebSocket reports whether a new /ws upgrade from this request's
// source IP should be allowed. On rejection it writes the 429 response
// itself and returns false.
func (l *Limiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	result, err := l.wsConnect.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed, failing open", zap.Error(err))
		return true
	}

	metrics.FramesTotal.WithLabelValues("ws-connect", "checked").Inc()

	if result.Reached {
		metrics.FramesTotal.WithLabelValues("ws-connect", "rejected").Inc()
		c.Header("X-RateLimit-Retry-After", strconv.FormatInt(result.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
		return false
	}

	return true
}
