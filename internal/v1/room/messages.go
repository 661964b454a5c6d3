package room

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/logging"
)

// maxFrameSize bounds a single inbound WebSocket text frame. Anything
// larger is dropped before it reaches json.Unmarshal.
const maxFrameSize = 64 * 1024

// inFrame is the union of fields used by any client->server message type.
// Unused fields for a given type are simply left zero.
type inFrame struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func marshalOrLog(ctx context.Context, v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		logging.Error(ctx, "failed to marshal outbound frame", zap.Error(err))
		return nil
	}
	return b
}

func roomStateFrame(ctx context.Context, roomID string, peers []string) []byte {
	if peers == nil {
		peers = []string{}
	}
	return marshalOrLog(ctx, struct {
		Type  string   `json:"type"`
		Room  string   `json:"room"`
		Peers []string `json:"peers"`
	}{"room-state", roomID, peers})
}

func peerJoinedFrame(ctx context.Context, name string) []byte {
	return marshalOrLog(ctx, struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"peer-joined", name})
}

func peerLeftFrame(ctx context.Context, name string) []byte {
	return marshalOrLog(ctx, struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"peer-left", name})
}

func inviteOkFrame(ctx context.Context, callID string) []byte {
	return marshalOrLog(ctx, struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
	}{"invite-ok", callID})
}

func ringFrame(ctx context.Context, callID, from string) []byte {
	return marshalOrLog(ctx, struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		From   string `json:"from"`
	}{"ring", callID, from})
}

func ringingFrame(ctx context.Context, callID string) []byte {
	return marshalOrLog(ctx, struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
	}{"ringing", callID})
}

func startFrame(ctx context.Context, callID, role string) []byte {
	return marshalOrLog(ctx, struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Role   string `json:"role"`
	}{"start", callID, role})
}

func endFrame(ctx context.Context, callID, reason string) []byte {
	return marshalOrLog(ctx, struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Reason string `json:"reason"`
	}{"end", callID, reason})
}

func busyFrame(ctx context.Context, reason string) []byte {
	return marshalOrLog(ctx, struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}{"busy", reason})
}

func errorFrame(ctx context.Context, msg string) []byte {
	return marshalOrLog(ctx, struct {
		Type string `json:"type"`
		Msg  string `json:"msg"`
	}{"error", msg})
}

func leftFrame(ctx context.Context) []byte {
	return marshalOrLog(ctx, struct {
		Type string `json:"type"`
	}{"left"})
}

// relayFrame rebuilds an offer/answer/ice frame for forwarding to the other
// participant. sdp and candidate carry the raw, unmodified payload the
// sender supplied; whichever one is nil is omitted from the output.
func relayFrame(ctx context.Context, typ, callID string, sdp, candidate json.RawMessage) []byte {
	return marshalOrLog(ctx, struct {
		Type      string          `json:"type"`
		CallID    string          `json:"call_id"`
		SDP       json.RawMessage `json:"sdp,omitempty"`
		Candidate json.RawMessage `json:"candidate,omitempty"`
	}{typ, callID, sdp, candidate})
}
