package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
)

// Heartbeat periodically sweeps a Hub's connections, pinging the live ones
// and reaping any that didn't answer the previous sweep's ping.
type Heartbeat struct {
	hub      *Hub
	interval time.Duration
}

func NewHeartbeat(hub *Hub, interval time.Duration) *Heartbeat {
	return &Heartbeat{hub: hub, interval: interval}
}

// Run blocks, sweeping every interval until ctx is canceled.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Heartbeat) sweep() {
	ctx := context.Background()
	for _, c := range h.hub.snapshot() {
		if c.IsClosed() {
			continue
		}
		if !c.markAliveThenClear() {
			logging.Info(ctx, "reaping unresponsive connection", zap.String("connection_id", c.ID()))
			metrics.HeartbeatReapedTotal.Inc()
			c.Close("missed heartbeat")
			continue
		}
		if err := c.sendPing(); err != nil {
			logging.Warn(ctx, "ping failed", zap.String("connection_id", c.ID()), zap.Error(err))
		}
	}
}
