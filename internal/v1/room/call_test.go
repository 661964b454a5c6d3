package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringline/signal-server/internal/v1/config"
)

func fastRingConfig() *config.Config {
	return &config.Config{
		RingResendInterval: 10 * time.Millisecond,
		RingResendMaxCount: 2,
	}
}

func TestCall_RingResendsThenTimesOut(t *testing.T) {
	ctx := context.Background()
	rt := NewRouter(fastRingConfig())

	alice := newFakeMember("a1")
	bob := newFakeMember("b1")
	join(t, ctx, rt, alice, "r1", "alice")
	join(t, ctx, rt, bob, "r1", "bob")

	rt.Dispatch(ctx, alice, mustJSON(t, map[string]string{"type": "invite"}))

	require.Eventually(t, func() bool {
		return len(alice.framesOfType("end")) == 1
	}, time.Second, time.Millisecond)

	ended := alice.framesOfType("end")
	assert.Equal(t, "timeout", ended[0]["reason"])

	// at least the initial ring plus two resends
	assert.GreaterOrEqual(t, len(bob.framesOfType("ring")), 3)
}

func TestCall_RingAckStopsFurtherResends(t *testing.T) {
	ctx := context.Background()
	rt := NewRouter(fastRingConfig())

	alice := newFakeMember("a1")
	bob := newFakeMember("b1")
	join(t, ctx, rt, alice, "r1", "alice")
	join(t, ctx, rt, bob, "r1", "bob")

	rt.Dispatch(ctx, alice, mustJSON(t, map[string]string{"type": "invite"}))
	callID, _ := alice.lastFrame()["call_id"].(string)

	rt.Dispatch(ctx, bob, mustJSON(t, map[string]string{"type": "ring-ack", "call_id": callID}))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, alice.framesOfType("end"))
	assert.Len(t, bob.framesOfType("ring"), 1)
}
