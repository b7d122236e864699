package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const messageBufferSize = 256

// NewWebSocketDialer returns a Dialer producing gorilla/websocket-backed
// transports. A nil logger falls back to slog.Default().
func NewWebSocketDialer(writeTimeout time.Duration, logger *slog.Logger) Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(url string) Transport {
		return &wsTransport{
			url:          url,
			writeTimeout: writeTimeout,
			logger:       logger,
			messages:     make(chan []byte, messageBufferSize),
			done:         make(chan struct{}),
		}
	}
}

// wsTransport implements Transport over a WebSocket connection.
type wsTransport struct {
	url          string
	writeTimeout time.Duration
	logger       *slog.Logger

	conn *websocket.Conn

	messages chan []byte
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.Mutex
	connected bool
	closed    bool
	err       error
}

// Connect establishes the WebSocket connection and starts the read loop.
func (t *wsTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrAlreadyClosed
	}
	t.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	go t.readLoop()

	t.logger.Debug("websocket connected", "url", t.url)
	return nil
}

// Close tears down the connection.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.connected = false
	conn := t.conn
	t.mu.Unlock()

	close(t.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	// Never connected; close the message channel ourselves since no read
	// loop will.
	close(t.messages)
	return nil
}

// Send writes one text frame.
func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	conn := t.conn
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the inbound frame channel.
func (t *wsTransport) Messages() <-chan []byte {
	return t.messages
}

// Err reports why the read loop ended.
func (t *wsTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// readLoop reads frames until the connection ends, then closes the message
// channel.
func (t *wsTransport) readLoop() {
	defer func() {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		close(t.messages)
	}()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			// A locally initiated close is not a transport failure.
			select {
			case <-t.done:
			default:
				t.mu.Lock()
				t.err = err
				t.mu.Unlock()
			}
			return
		}

		select {
		case t.messages <- data:
		case <-t.done:
			return
		default:
			t.logger.Warn("message buffer full, dropping frame")
		}
	}
}
