package realtime

import "context"

// Transport is a single, non-reconnecting connection to the backend. The
// Client owns at most one live instance at a time and replaces it wholesale
// on every reconnect.
type Transport interface {
	// Connect dials the peer. It blocks until the connection is established
	// or ctx expires.
	Connect(ctx context.Context) error

	// Send writes one text frame.
	Send(data []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// Messages returns the inbound frame channel. It is closed when the
	// connection ends for any reason; only then is Err meaningful.
	Messages() <-chan []byte

	// Err reports why Messages closed, or nil for a locally initiated close.
	Err() error
}

// Dialer constructs a Transport for a target URL. Tests inject a dialer
// returning mock transports; production uses NewWebSocketDialer.
type Dialer func(url string) Transport
