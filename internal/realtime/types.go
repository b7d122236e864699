package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// ConnectionState is the client's position in the connection lifecycle.
// The Client is the sole owner of transitions.
type ConnectionState int

const (
	// StateIdle is the initial state before the first open attempt.
	StateIdle ConnectionState = iota
	// StateConnecting means an operator-initiated dial is in flight.
	StateConnecting
	// StateConnected means the transport is open and heartbeats are running.
	StateConnected
	// StateReconnecting means the client is waiting out a backoff delay or
	// retrying a failed connection.
	StateReconnecting
	// StateDisconnected is terminal after a manual close or once the retry
	// ceiling is exceeded; otherwise it is transient en route to
	// StateReconnecting.
	StateDisconnected
)

// String returns the state's wire/display name.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Reserved envelope types, consumed by the heartbeat monitor and never
// surfaced to subscribers.
const (
	TypePing = "ping"
	TypePong = "pong"
)

// ChannelConnection carries the client's own lifecycle events
// (ConnectionEvent payloads).
const ChannelConnection = "connection"

// Envelope is the unit of wire exchange. Inbound frames additionally carry
// a server timestamp.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// pingPayload is the liveness probe body.
type pingPayload struct {
	TS int64 `json:"ts"` // epoch millis
}

// ConnectionStatus enumerates lifecycle event kinds.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
	StatusFailed       ConnectionStatus = "failed"
)

// ConnectionEvent is the payload dispatched on ChannelConnection.
type ConnectionEvent struct {
	Status ConnectionStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Stats is a read-only snapshot of the client.
type Stats struct {
	State              ConnectionState
	Attempts           int
	LastConnectedAt    time.Time // zero if never connected
	LastDisconnectedAt time.Time // zero if never disconnected
	QueuedMessages     int
}

// Config configures a Client.
type Config struct {
	Host   string // backend host:port
	Secure bool   // true selects wss://
	Path   string // WebSocket path, default /ws

	// MaxReconnectAttempts caps automatic retries; -1 retries without
	// bound, 0 selects the default.
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	// ReconnectJitter randomizes each delay by up to this amount; a
	// negative value disables jitter, 0 selects the default.
	ReconnectJitter time.Duration

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	MaxQueueSize int
}

// DefaultConfig returns sensible defaults for everything but Host.
func DefaultConfig() Config {
	return Config{
		Path:                 "/ws",
		MaxReconnectAttempts: 10,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		ReconnectJitter:      500 * time.Millisecond,
		HeartbeatInterval:    30 * time.Second,
		HeartbeatTimeout:     10 * time.Second,
		DialTimeout:          10 * time.Second,
		WriteTimeout:         5 * time.Second,
		MaxQueueSize:         100,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Path == "" {
		c.Path = def.Path
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if c.ReconnectJitter == 0 {
		c.ReconnectJitter = def.ReconnectJitter
	} else if c.ReconnectJitter < 0 {
		c.ReconnectJitter = 0
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxQueueSize == 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	return c
}
