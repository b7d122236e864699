package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// mockTransport is a scriptable Transport for driving the client without a
// network.
type mockTransport struct {
	connectErr  error
	connectGate chan struct{} // when non-nil, Connect blocks until closed

	mu        sync.Mutex
	connected bool
	closed    bool
	err       error
	sent      [][]byte

	messages chan []byte
}

func newMockTransport(connectErr error) *mockTransport {
	return &mockTransport{
		connectErr: connectErr,
		messages:   make(chan []byte, 64),
	}
}

func (m *mockTransport) Connect(ctx context.Context) error {
	if m.connectGate != nil {
		select {
		case <-m.connectGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.connectErr != nil {
		return m.connectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}
	m.connected = true
	return nil
}

func (m *mockTransport) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sent = append(m.sent, cp)
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.messages)
	return nil
}

func (m *mockTransport) Messages() <-chan []byte {
	return m.messages
}

func (m *mockTransport) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// fail simulates a peer-initiated failure: the read side ends with err.
func (m *mockTransport) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.connected = false
	m.err = err
	close(m.messages)
}

// push delivers an inbound envelope to the client.
func (m *mockTransport) push(t *testing.T, env Envelope) {
	t.Helper()
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	m.pushRaw(data)
}

func (m *mockTransport) pushRaw(data []byte) {
	m.messages <- data
}

// sentEnvelopes decodes every frame written so far.
func (m *mockTransport) sentEnvelopes(t *testing.T) []Envelope {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Envelope, 0, len(m.sent))
	for _, frame := range m.sent {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("unmarshal sent frame: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func (m *mockTransport) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// mockDialer hands out one mockTransport per dial. failFirst dials fail to
// connect before transports start succeeding.
type mockDialer struct {
	mu        sync.Mutex
	failFirst int
	failErr   error
	gate      chan struct{} // handed to every transport's connectGate
	dials     []*mockTransport
	urls      []string
}

func (d *mockDialer) dial(url string) Transport {
	d.mu.Lock()
	defer d.mu.Unlock()

	var mt *mockTransport
	if len(d.dials) < d.failFirst {
		mt = newMockTransport(d.failErr)
	} else {
		mt = newMockTransport(nil)
	}
	mt.connectGate = d.gate
	d.dials = append(d.dials, mt)
	d.urls = append(d.urls, url)
	return mt
}

func (d *mockDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *mockDialer) transport(i int) *mockTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[i]
}

// waitUntil polls cond with a real-time deadline. Client lifecycle work
// happens on background goroutines even when timers use a fake clock.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
