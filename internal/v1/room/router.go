package room

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/config"
	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/metrics"
)

// Router owns the room registry and is the single entry point every inbound
// frame passes through. It resolves which Room (and, inside it, which Call)
// a frame applies to and dispatches accordingly; frames that fail a
// precondition are dropped, answered with an error, or answered with busy,
// per the table this mirrors.
type Router struct {
	cfg *config.Config

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRouter(cfg *config.Config) *Router {
	return &Router{cfg: cfg, rooms: make(map[string]*Room)}
}

func (rt *Router) getRoom(id string) *Room {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.rooms[id]
}

func (rt *Router) getOrCreateRoom(id string) *Room {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	r, ok := rt.rooms[id]
	if !ok {
		r = newRoom(id, rt.cfg)
		rt.rooms[id] = r
		metrics.ActiveRooms.Inc()
	}
	return r
}

// removeIfEmpty drops id from the registry iff it is still empty. The
// double-check matters: a member could join between the Leave call that
// reported empty and this call acquiring the registry lock.
func (rt *Router) removeIfEmpty(id string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	r, ok := rt.rooms[id]
	if !ok {
		return
	}
	if r.memberCount() == 0 {
		delete(rt.rooms, id)
		metrics.ActiveRooms.Dec()
		metrics.RoomMembers.DeleteLabelValues(id)
	}
}

// Dispatch parses and routes a single inbound frame on behalf of member.
// Oversized or non-JSON frames and stale call references are dropped
// silently; unknown types are answered with an error frame.
func (rt *Router) Dispatch(ctx context.Context, member Member, raw []byte) {
	if len(raw) > maxFrameSize {
		logging.Warn(ctx, "dropping oversized frame", zap.Int("size", len(raw)))
		metrics.FramesTotal.WithLabelValues("oversize", "dropped").Inc()
		return
	}

	var f inFrame
	if err := json.Unmarshal(raw, &f); err != nil || f.Type == "" {
		logging.Debug(ctx, "dropping malformed frame")
		metrics.FramesTotal.WithLabelValues("malformed", "dropped").Inc()
		return
	}

	if f.Type != "join" && f.Type != "leave-room" && member.RoomID() == "" {
		member.Send(errorFrame(ctx, "not in room"))
		metrics.FramesTotal.WithLabelValues(f.Type, "rejected").Inc()
		return
	}
	metrics.FramesTotal.WithLabelValues(f.Type, "dispatched").Inc()

	switch f.Type {
	case "join":
		rt.handleJoin(ctx, member, f)
	case "leave-room":
		rt.handleLeaveRoom(ctx, member)
	case "invite":
		if r := rt.getRoom(member.RoomID()); r != nil {
			r.Invite(ctx, member)
		}
	case "ring-ack":
		if r := rt.getRoom(member.RoomID()); r != nil && f.CallID != "" {
			r.RingAck(ctx, member, f.CallID)
		}
	case "accept":
		if r := rt.getRoom(member.RoomID()); r != nil && f.CallID != "" {
			r.Accept(ctx, member, f.CallID)
		}
	case "decline":
		if r := rt.getRoom(member.RoomID()); r != nil && f.CallID != "" {
			r.Decline(ctx, member, f.CallID)
		}
	case "hangup":
		if r := rt.getRoom(member.RoomID()); r != nil && f.CallID != "" {
			r.Hangup(ctx, member, f.CallID)
		}
	case "offer", "answer", "ice":
		if r := rt.getRoom(member.RoomID()); r != nil && f.CallID != "" {
			sdp, candidate := decodeRelayPayload(f)
			r.Relay(ctx, member, f.CallID, f.Type, sdp, candidate)
		}
	default:
		member.Send(errorFrame(ctx, "unknown message type"))
	}
}

func (rt *Router) handleJoin(ctx context.Context, member Member, f inFrame) {
	if f.Room == "" {
		logging.Debug(ctx, "dropping join with no room")
		return
	}
	name := f.Name
	if name == "" {
		name = "peer"
	}

	if prev := member.RoomID(); prev != "" && prev != f.Room {
		rt.leaveRoom(ctx, member, prev)
	}

	r := rt.getOrCreateRoom(f.Room)
	r.Join(ctx, member, name)
}

func (rt *Router) handleLeaveRoom(ctx context.Context, member Member) {
	roomID := member.RoomID()
	if roomID == "" {
		member.Send(leftFrame(ctx))
		return
	}
	rt.leaveRoom(ctx, member, roomID)
	member.Send(leftFrame(ctx))
}

func (rt *Router) leaveRoom(ctx context.Context, member Member, roomID string) {
	r := rt.getRoom(roomID)
	if r == nil {
		return
	}
	if r.Leave(ctx, member) {
		rt.removeIfEmpty(roomID)
	}
}

// HandleDisconnect runs member's leave path after its channel closes,
// whether from a normal close, a read error, or heartbeat reaping.
func (rt *Router) HandleDisconnect(ctx context.Context, member Member) {
	roomID := member.RoomID()
	if roomID == "" {
		return
	}
	rt.leaveRoom(ctx, member, roomID)
}
