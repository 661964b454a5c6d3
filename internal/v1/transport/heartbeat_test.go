package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringline/signal-server/internal/v1/config"
	"github.com/ringline/signal-server/internal/v1/ratelimit"
)

func TestHeartbeat_ReapsConnectionThatMissedPreviousSweep(t *testing.T) {
	router := testRouter()
	hub := NewHub(router, ratelimit.New(&config.Config{RateLimitWsConnectPerMinute: 1000}))

	conn := newMockWSConnection()
	var closed int
	c := NewConnection(conn, router, func() { closed++ })
	hub.register(c)

	hb := NewHeartbeat(hub, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hb.Run(ctx)

	// First sweep finds it alive, clears the flag and pings; second sweep
	// finds it still cleared (no pong arrived) and reaps it.
	require.Eventually(t, func() bool { return c.IsClosed() }, time.Second, time.Millisecond)
	assert.Equal(t, 1, closed)
}

func TestHeartbeat_SurvivesWhenPeerPongsBetweenSweeps(t *testing.T) {
	router := testRouter()
	hub := NewHub(router, ratelimit.New(&config.Config{RateLimitWsConnectPerMinute: 1000}))

	conn := newMockWSConnection()
	c := NewConnection(conn, router, nil)
	hub.register(c)
	go c.readPump()

	hb := NewHeartbeat(hub, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				conn.triggerPong()
				time.Sleep(3 * time.Millisecond)
			}
		}
	}()
	go hb.Run(ctx)

	time.Sleep(80 * time.Millisecond)
	close(stop)

	assert.False(t, c.IsClosed())
	c.Close("test done")
}
