package room

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/ringline/signal-server/internal/v1/config"
	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
)

// callState is the Call's position in its RINGING -> CONNECTING -> ENDED
// lifecycle. A Call never moves backward.
type callState int

const (
	callRinging callState = iota
	callConnecting
	callEnded
)

// pendingFrame is an offer/answer/ice frame received before the Call has
// started, held until accept flushes the queue in arrival order.
type pendingFrame struct {
	dest    string
	payload []byte
}

// Call is the two-party state machine scoped to a single Room's at-most-one
// active call. All mutation happens with the owning Room's mutex held; the
// ring timer callback re-acquires it before touching anything here.
type Call struct {
	id       string
	callerID string
	calleeID string

	state   callState
	acked   bool
	started bool

	participants set.Set[string]
	pending      []pendingFrame

	ringCount int
	timer     *time.Timer
}

func newCall(callerID, calleeID string) *Call {
	return &Call{
		id:           uuid.NewString(),
		callerID:     callerID,
		calleeID:     calleeID,
		state:        callRinging,
		participants: set.New(callerID, calleeID),
	}
}

func (c *Call) otherParticipant(memberID string) (string, bool) {
	switch memberID {
	case c.callerID:
		return c.calleeID, true
	case c.calleeID:
		return c.callerID, true
	default:
		return "", false
	}
}

// armRingTimer schedules the next ring resend, or the timeout transition
// once the resend budget is exhausted. It always re-validates against
// room.call before touching state, so a stale timer from an ended or
// superseded call is a silent no-op.
func (c *Call) armRingTimer(r *Room, cfg *config.Config) {
	if c.ringCount >= cfg.RingResendMaxCount {
		c.timer = time.AfterFunc(cfg.RingResendInterval, func() { c.fireTimeout(r) })
		return
	}
	c.timer = time.AfterFunc(cfg.RingResendInterval, func() { c.fireResend(r, cfg) })
}

func (c *Call) cancelRingTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Call) fireResend(r *Room, cfg *config.Config) {
	ctx := context.Background()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.call != c || c.started || c.state != callRinging {
		return
	}
	c.ringCount++
	metrics.RingResendsTotal.Inc()

	if callee, ok := r.members[c.calleeID]; ok {
		from := ""
		if caller, ok := r.members[c.callerID]; ok {
			from = caller.DisplayName()
		}
		callee.Send(ringFrame(ctx, c.id, from))
	}
	c.armRingTimer(r, cfg)
}

func (c *Call) fireTimeout(r *Room) {
	ctx := context.Background()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.call != c || c.started || c.state != callRinging {
		return
	}
	logging.Info(ctx, "ring resend budget exhausted, ending call", zap.String("call_id", c.id))
	r.endCallLocked(ctx, "timeout")
}

// enqueueOrRelay buffers an offer/answer/ice frame while the call hasn't
// started, or forwards it immediately once it has.
func (c *Call) enqueueOrRelay(ctx context.Context, r *Room, dest string, frame []byte) {
	if frame == nil {
		return
	}
	if !c.started {
		c.pending = append(c.pending, pendingFrame{dest: dest, payload: frame})
		return
	}
	if m, ok := r.members[dest]; ok {
		m.Send(frame)
	}
}

// flushPending delivers buffered signaling frames in arrival order once the
// call transitions to CONNECTING.
func (c *Call) flushPending(r *Room) {
	for _, p := range c.pending {
		if m, ok := r.members[p.dest]; ok {
			m.Send(p.payload)
		}
	}
	c.pending = nil
}

// decodeRelayPayload extracts whichever of sdp/candidate is present on an
// inbound offer/answer/ice frame, passed through byte-for-byte.
func decodeRelayPayload(f inFrame) (sdp, candidate json.RawMessage) {
	return f.SDP, f.Candidate
}
