package transport

import (
	"io"
	"sync"
	"time"
)

// mockWSConnection implements wsConnection for tests, playing the role of
// the teacher's MockWSConnection but over a channel so readPump can block
// realistically instead of busy-polling.
type mockWSConnection struct {
	mu          sync.Mutex
	in          chan []byte
	out         [][]byte
	closed      bool
	closeOnce   sync.Once
	pongHandler func(string) error
}

func newMockWSConnection() *mockWSConnection {
	return &mockWSConnection{in: make(chan []byte, 16)}
}

func (m *mockWSConnection) ReadMessage() (int, []byte, error) {
	data, ok := <-m.in
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, data, nil
}

func (m *mockWSConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.out = append(m.out, cp)
	return nil
}

func (m *mockWSConnection) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockWSConnection) SetWriteDeadline(t time.Time) error { return nil }

func (m *mockWSConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockWSConnection) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.in)
	})
	return nil
}

// deliver simulates an inbound frame arriving from the peer.
func (m *mockWSConnection) deliver(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.in <- data
}

func (m *mockWSConnection) writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.out))
	copy(out, m.out)
	return out
}

func (m *mockWSConnection) triggerPong() {
	m.mu.Lock()
	h := m.pongHandler
	m.mu.Unlock()
	if h != nil {
		h("")
	}
}
