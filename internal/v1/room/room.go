package room

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/config"
	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
)

// Room holds the membership and at-most-one active Call for a single room
// key. All state transitions happen under mu, matching the single-threaded-
// per-room discipline the rest of this package assumes.
type Room struct {
	id  string
	cfg *config.Config

	mu        sync.Mutex
	members   map[string]Member
	nameIndex map[string]string // display name -> member id
	call      *Call
}

func newRoom(id string, cfg *config.Config) *Room {
	return &Room{
		id:        id,
		cfg:       cfg,
		members:   make(map[string]Member),
		nameIndex: make(map[string]string),
	}
}

func (r *Room) memberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Join admits member under name, lazily sweeping dead entries and evicting
// any existing holder of the same name. Evicting a holder that is mid-call
// always ends that call with reason "left": the remaining participant has
// no way to continue talking to a connection that was just cut off.
func (r *Room) Join(ctx context.Context, member Member, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.members {
		if m.IsClosed() {
			delete(r.members, id)
			delete(r.nameIndex, m.DisplayName())
		}
	}

	if existingID, ok := r.nameIndex[name]; ok && existingID != member.ID() {
		if evictee, ok := r.members[existingID]; ok {
			if r.call != nil && r.call.participants.Has(existingID) {
				r.endCallLocked(ctx, "left")
			}
			delete(r.members, existingID)
			delete(r.nameIndex, name)
			evictee.SetRoomID("")
			evictee.Close("replaced by another connection with the same name")
			r.broadcastLocked(ctx, peerLeftFrame(ctx, name), "")
		}
	}

	peers := make([]string, 0, len(r.members))
	for _, m := range r.members {
		peers = append(peers, m.DisplayName())
	}

	member.SetDisplayName(name)
	member.SetRoomID(r.id)
	r.members[member.ID()] = member
	r.nameIndex[name] = member.ID()

	member.Send(roomStateFrame(ctx, r.id, peers))
	r.broadcastLocked(ctx, peerJoinedFrame(ctx, name), member.ID())

	metrics.RoomMembers.WithLabelValues(r.id).Set(float64(len(r.members)))
	logging.Info(ctx, "member joined room", zap.String("room_id", r.id), zap.String("name", name))
}

// Leave removes member from the room, ending any call it participated in
// first. It reports whether the room is now empty so the caller can decide
// whether to drop it from the registry.
func (r *Room) Leave(ctx context.Context, member Member) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[member.ID()]; !ok {
		return len(r.members) == 0
	}

	if r.call != nil && r.call.participants.Has(member.ID()) {
		r.endCallLocked(ctx, "left")
	}

	name := member.DisplayName()
	delete(r.members, member.ID())
	delete(r.nameIndex, name)
	member.SetRoomID("")

	r.broadcastLocked(ctx, peerLeftFrame(ctx, name), "")
	metrics.RoomMembers.WithLabelValues(r.id).Set(float64(len(r.members)))
	logging.Info(ctx, "member left room", zap.String("room_id", r.id), zap.String("name", name))

	return len(r.members) == 0
}

// Invite starts a call from caller to the first other member found. Busy
// responses never mutate state.
func (r *Room) Invite(ctx context.Context, caller Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.call != nil {
		caller.Send(busyFrame(ctx, "call-active"))
		return
	}

	var calleeID string
	for id := range r.members {
		if id != caller.ID() {
			calleeID = id
			break
		}
	}
	if calleeID == "" {
		caller.Send(busyFrame(ctx, "no-peer"))
		return
	}
	callee := r.members[calleeID]

	call := newCall(caller.ID(), calleeID)
	r.call = call
	metrics.ActiveCalls.Inc()

	caller.Send(inviteOkFrame(ctx, call.id))
	callee.Send(ringFrame(ctx, call.id, caller.DisplayName()))
	call.armRingTimer(r, r.cfg)

	logging.Info(ctx, "call invited", zap.String("room_id", r.id), zap.String("call_id", call.id))
}

// RingAck cancels the resend timer for callID and tells the caller the
// callee's device is ringing. Repeated acks are idempotent no-ops.
func (r *Room) RingAck(ctx context.Context, member Member, callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.callMatches(callID) || r.call.started || r.call.acked {
		return
	}
	r.call.acked = true
	r.call.cancelRingTimer()

	if caller, ok := r.members[r.call.callerID]; ok {
		caller.Send(ringingFrame(ctx, callID))
	}
}

// Accept transitions a RINGING call to CONNECTING, flushing any offer/
// answer/ice frames buffered while the callee's device was ringing.
func (r *Room) Accept(ctx context.Context, member Member, callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.callMatches(callID) || r.call.started {
		return
	}
	c := r.call
	c.cancelRingTimer()
	c.started = true
	c.state = callConnecting

	if caller, ok := r.members[c.callerID]; ok {
		caller.Send(startFrame(ctx, callID, "initiator"))
	}
	if callee, ok := r.members[c.calleeID]; ok {
		callee.Send(startFrame(ctx, callID, "callee"))
	}
	c.flushPending(r)

	logging.Info(ctx, "call accepted", zap.String("room_id", r.id), zap.String("call_id", callID))
}

// Decline ends a call that has not yet started.
func (r *Room) Decline(ctx context.Context, member Member, callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.callMatches(callID) || r.call.started {
		return
	}
	r.endCallLocked(ctx, "declined")
}

// Hangup ends a call regardless of whether it has started.
func (r *Room) Hangup(ctx context.Context, member Member, callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.callMatches(callID) {
		return
	}
	r.endCallLocked(ctx, "hangup")
}

// Relay forwards (or, pre-accept, buffers) an offer/answer/ice frame to the
// other participant in callID. Frames from a non-participant, or
// referencing a call that no longer matches, are dropped silently.
func (r *Room) Relay(ctx context.Context, member Member, callID, typ string, sdp, candidate []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.callMatches(callID) {
		return
	}
	dest, ok := r.call.otherParticipant(member.ID())
	if !ok {
		return
	}
	frame := relayFrame(ctx, typ, callID, sdp, candidate)
	r.call.enqueueOrRelay(ctx, r, dest, frame)
}

// callMatches requires mu to already be held.
func (r *Room) callMatches(callID string) bool {
	return r.call != nil && r.call.id == callID
}

// endCallLocked tears down the active call and broadcasts its end to every
// current room member. Requires mu to already be held.
func (r *Room) endCallLocked(ctx context.Context, reason string) {
	c := r.call
	if c == nil {
		return
	}
	c.cancelRingTimer()
	c.state = callEnded
	r.call = nil

	metrics.ActiveCalls.Dec()
	metrics.CallsEndedTotal.WithLabelValues(reason).Inc()

	r.broadcastLocked(ctx, endFrame(ctx, c.id, reason), "")
	logging.Info(ctx, "call ended", zap.String("room_id", r.id), zap.String("call_id", c.id), zap.String("reason", reason))
}

// broadcastLocked sends frame to every member except excludeID (pass "" to
// include everyone). Requires mu to already be held.
func (r *Room) broadcastLocked(ctx context.Context, frame []byte, excludeID string) {
	if frame == nil {
		return
	}
	for id, m := range r.members {
		if id == excludeID {
			continue
		}
		m.Send(frame)
	}
}
