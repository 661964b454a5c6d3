package room

import (
	"encoding/json"
	"sync"
)

// fakeMember is an in-memory room.Member used by tests in place of a
// transport.Connection.
type fakeMember struct {
	mu          sync.Mutex
	id          string
	name        string
	roomID      string
	closed      bool
	closeReason string
	sent        []map[string]any
}

func newFakeMember(id string) *fakeMember {
	return &fakeMember{id: id}
}

func (m *fakeMember) ID() string { return m.id }

func (m *fakeMember) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func (m *fakeMember) SetDisplayName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

func (m *fakeMember) RoomID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomID
}

func (m *fakeMember) SetRoomID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomID = id
}

func (m *fakeMember) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *fakeMember) Send(frame []byte) {
	if frame == nil {
		return
	}
	var v map[string]any
	if err := json.Unmarshal(frame, &v); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, v)
}

func (m *fakeMember) Close(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeReason = reason
}

// framesOfType returns every sent frame with the given "type" field, in
// the order they were sent.
func (m *fakeMember) framesOfType(typ string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []map[string]any
	for _, f := range m.sent {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func (m *fakeMember) lastFrame() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}
