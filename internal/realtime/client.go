package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/agisfl/realtime-client/internal/auth"
	"github.com/agisfl/realtime-client/internal/backoff"
	"github.com/agisfl/realtime-client/internal/clock"
	"github.com/agisfl/realtime-client/internal/dispatch"
	"github.com/agisfl/realtime-client/internal/metrics"
	"github.com/agisfl/realtime-client/internal/queue"
)

// Handler receives the channel name and the inbound envelope.
type Handler = dispatch.Handler[Envelope]

// Subscription identifies a registered listener for Off.
type Subscription = dispatch.Subscription

// Deps are the client's injectable collaborators. Every field may be nil:
// Dialer falls back to the WebSocket dialer, Clock to the system clock,
// Logger to slog.Default(); a nil Token connects without credentials and a
// nil Metrics disables instrumentation.
type Deps struct {
	Dialer  Dialer
	Token   auth.TokenSource
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Client maintains one resilient connection to the backend. It owns the
// connection state machine and wires the heartbeat monitor, reconnection
// schedule, outbound queue, and event dispatcher together.
type Client struct {
	cfg     Config
	dial    Dialer
	token   auth.TokenSource
	clk     clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	policy  backoff.Policy

	dispatcher *dispatch.Dispatcher[Envelope]
	outbound   *queue.Ring[Envelope]

	// All mutable state below is owned by mu. Each transport instance is
	// tagged with a generation; Close and every new dial bump it, so a late
	// callback from a superseded transport compares generations and becomes
	// a no-op (cancel-then-replace).
	mu                 sync.Mutex
	state              ConnectionState
	gen                uint64
	transport          Transport
	hb                 *heartbeatMonitor
	reconnectTimer     clock.Timer
	manualClose        bool
	pendingCloseReason string
	attempts           int
	lastConnectedAt    time.Time
	lastDisconnectedAt time.Time
}

// New creates a Client. Zero-valued Config fields receive defaults; see
// Deps for nil-field behavior.
func New(cfg Config, deps Deps) *Client {
	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "realtime")

	dial := deps.Dialer
	if dial == nil {
		dial = NewWebSocketDialer(cfg.WriteTimeout, logger)
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}

	return &Client{
		cfg:     cfg,
		dial:    dial,
		token:   deps.Token,
		clk:     clk,
		logger:  logger,
		metrics: deps.Metrics,
		policy: backoff.Policy{
			Base:   cfg.ReconnectBaseDelay,
			Max:    cfg.ReconnectMaxDelay,
			Jitter: cfg.ReconnectJitter,
		},
		dispatcher: dispatch.New[Envelope](),
		outbound:   queue.NewRing[Envelope](cfg.MaxQueueSize),
		state:      StateIdle,
	}
}

// Open starts a connection attempt. It is idempotent while connecting or
// connected; from any other state it cancels a pending reconnect delay and
// dials immediately.
func (c *Client) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnecting || c.state == StateConnected {
		return
	}
	c.stopReconnectTimerLocked()
	c.manualClose = false
	c.setStateLocked(StateConnecting)
	c.openLocked()
}

// Close is the operator-initiated shutdown: it suppresses auto-reconnect,
// cancels all pending timers, detaches and closes the transport, clears
// every listener registration, and leaves the client Disconnected. All
// cancellation happens before Close returns, so no late callback from this
// connection can act after a subsequent Open.
func (c *Client) Close() {
	c.mu.Lock()
	c.manualClose = true
	c.gen++ // invalidate callbacks from the current transport
	c.stopReconnectTimerLocked()
	if c.hb != nil {
		c.hb.stop()
		c.hb = nil
	}
	t := c.transport
	c.transport = nil
	if c.state == StateConnected {
		c.lastDisconnectedAt = c.clk.Now()
	}
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if t != nil {
		t.Close()
	}
	c.dispatcher.Clear()
}

// ForceReconnect closes and immediately reopens, bypassing the backoff
// schedule. Listener registrations are cleared along the way, as with any
// Close; callers resubscribe afterwards.
func (c *Client) ForceReconnect() {
	c.Close()
	c.Open()
}

// Send transmits an envelope of the given type. While connected it goes
// out immediately; otherwise it is queued (bounded, oldest evicted first)
// and flushed after the next successful open. Send never fails for a
// disconnected transport; delivery of queued messages is best-effort.
func (c *Client) Send(eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("dropping unencodable outbound message",
			"type", eventType,
			"error", err,
		)
		return
	}
	env := Envelope{Type: eventType, Data: payload}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected && c.transport != nil {
		c.transmitLocked(env)
		return
	}

	if c.outbound.Push(env) {
		c.logger.Debug("outbound queue full, evicted oldest message", "type", eventType)
		c.metrics.ObserveQueueEviction()
	}
	c.metrics.SetQueueDepth(c.outbound.Len())
}

// On registers a listener on channel; "*" receives every event.
func (c *Client) On(channel string, h Handler) Subscription {
	return c.dispatcher.On(channel, h)
}

// Once registers a listener that deregisters itself after one event.
func (c *Client) Once(channel string, h Handler) Subscription {
	return c.dispatcher.Once(channel, h)
}

// Off removes a listener registered with On or Once.
func (c *Client) Off(sub Subscription) {
	c.dispatcher.Off(sub)
}

// IsConnected reports whether the transport is currently open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a snapshot of the client.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:              c.state,
		Attempts:           c.attempts,
		LastConnectedAt:    c.lastConnectedAt,
		LastDisconnectedAt: c.lastDisconnectedAt,
		QueuedMessages:     c.outbound.Len(),
	}
}

// ListenerCount returns the number of listeners on channel. Exposed for
// leak probes in tests and diagnostics.
func (c *Client) ListenerCount(channel string) int {
	return c.dispatcher.ListenerCount(channel)
}

// WaitForConnection blocks until the client reaches Connected or timeout
// elapses, reporting which happened. It returns immediately when already
// connected. The internal listener is removed on every path.
func (c *Client) WaitForConnection(timeout time.Duration) bool {
	done := make(chan bool, 1)
	sub := c.dispatcher.On(ChannelConnection, func(_ string, env Envelope) {
		var ev ConnectionEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return
		}
		if ev.Status == StatusConnected {
			select {
			case done <- true:
			default:
			}
		}
	})
	defer c.dispatcher.Off(sub)

	// The Connected transition may have completed before the listener above
	// existed; its event is gone, so the state check must come second.
	if c.IsConnected() {
		return true
	}

	timer := c.clk.AfterFunc(timeout, func() {
		select {
		case done <- false:
		default:
		}
	})
	defer timer.Stop()

	return <-done
}

// ---------------------------------------------------------------------------
// Internal lifecycle
// ---------------------------------------------------------------------------

// openLocked dials a fresh transport under a new generation.
func (c *Client) openLocked() {
	c.gen++
	gen := c.gen
	t := c.dial(c.buildURL())
	c.transport = t
	go c.establish(t, gen)
}

// establish completes a dial and, on success, activates the session:
// attempts reset, heartbeat started, queue flushed FIFO ahead of any new
// Send.
func (c *Client) establish(t Transport, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()
	err := t.Connect(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		t.Close()
		return
	}

	if err != nil {
		c.logger.Debug("dial failed", "error", err)
		c.mu.Unlock()
		c.transportDown(gen, "dial failed: "+err.Error())
		return
	}

	c.attempts = 0
	c.lastConnectedAt = c.clk.Now()
	c.setStateLocked(StateConnected)

	hb := newHeartbeatMonitor(c.clk, c.logger,
		c.cfg.HeartbeatInterval, c.cfg.HeartbeatTimeout,
		func() { c.sendPing(gen) },
		func() { c.forceClose(gen) },
	)
	c.hb = hb
	hb.start()

	// Flush under the lock so no concurrent Send can jump the queue.
	for _, env := range c.outbound.Drain() {
		c.transmitLocked(env)
	}
	c.metrics.SetQueueDepth(0)
	c.mu.Unlock()

	go c.readLoop(t, gen)

	c.logger.Info("connected", "url", c.cfg.Host)
	c.emitConnection(ConnectionEvent{Status: StatusConnected})
}

// readLoop drains one transport's inbound frames, then reports its end.
func (c *Client) readLoop(t Transport, gen uint64) {
	for data := range t.Messages() {
		c.handleFrame(gen, data)
	}

	reason := "connection closed"
	if err := t.Err(); err != nil {
		reason = err.Error()
		c.emitTransportError(gen, err)
	}
	c.transportDown(gen, reason)
}

// transportDown handles the end of a connection attempt or session:
// heartbeat teardown, then either reconnect scheduling or terminal failure.
// Stale generations are ignored.
func (c *Client) transportDown(gen uint64, reason string) {
	c.mu.Lock()
	if gen != c.gen || c.manualClose {
		c.mu.Unlock()
		return
	}

	if c.pendingCloseReason != "" {
		reason = c.pendingCloseReason
		c.pendingCloseReason = ""
	}

	if c.hb != nil {
		c.hb.stop()
		c.hb = nil
	}
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	c.lastDisconnectedAt = c.clk.Now()

	maxAttempts := c.cfg.MaxReconnectAttempts
	if maxAttempts >= 0 && c.attempts >= maxAttempts {
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()

		c.logger.Error("retry limit reached, giving up", "attempts", maxAttempts)
		c.emitConnection(ConnectionEvent{Status: StatusDisconnected, Reason: reason})
		c.emitConnection(ConnectionEvent{Status: StatusFailed, Reason: "retry limit reached"})
		return
	}

	c.attempts++
	attempt := c.attempts
	delay := c.policy.Delay(attempt)
	c.setStateLocked(StateReconnecting)
	c.metrics.ObserveReconnect()
	c.reconnectTimer = c.clk.AfterFunc(delay, func() { c.retryOpen(gen) })
	c.mu.Unlock()

	c.logger.Info("reconnect scheduled",
		"attempt", attempt,
		"delay", delay,
		"reason", reason,
	)
	c.emitConnection(ConnectionEvent{Status: StatusDisconnected, Reason: reason})
}

// retryOpen fires when a backoff delay elapses.
func (c *Client) retryOpen(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.manualClose || c.state != StateReconnecting {
		return
	}
	c.openLocked()
}

// handleFrame parses and routes one inbound frame. Malformed frames are
// logged and dropped; a peer's single bad frame must not destabilize the
// session. Heartbeat replies never reach subscribers.
func (c *Client) handleFrame(gen uint64, data []byte) {
	c.mu.Lock()
	current := gen == c.gen
	c.mu.Unlock()
	if !current {
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		c.logger.Debug("discarding malformed frame", "error", err)
		c.metrics.ObserveMalformed()
		return
	}

	switch env.Type {
	case TypePong:
		c.mu.Lock()
		hb := c.hb
		current := gen == c.gen
		c.mu.Unlock()
		if current && hb != nil {
			hb.pong()
		}
		return
	case TypePing:
		// Server-side probe; answer and consume.
		c.mu.Lock()
		if gen == c.gen && c.transport != nil {
			c.transmitLocked(Envelope{Type: TypePong, Data: env.Data})
		}
		c.mu.Unlock()
		return
	}

	c.metrics.ObserveMessage(env.Type)
	c.dispatcher.Emit(env.Type, env)
}

// sendPing emits one liveness probe for the heartbeat monitor.
func (c *Client) sendPing(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StateConnected || c.transport == nil {
		return
	}
	payload, _ := json.Marshal(pingPayload{TS: c.clk.Now().UnixMilli()})
	c.transmitLocked(Envelope{Type: TypePing, Data: payload})
}

// forceClose closes the transport after a missed heartbeat reply. The
// read loop observes the closure and runs the standard down path, which
// schedules reconnection.
func (c *Client) forceClose(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.transport == nil {
		c.mu.Unlock()
		return
	}
	c.pendingCloseReason = "heartbeat timeout"
	t := c.transport
	c.mu.Unlock()

	t.Close()
}

// transmitLocked marshals and writes one envelope on the live transport.
// Caller holds mu. A write failure is logged only; the read loop delivers
// the authoritative close.
func (c *Client) transmitLocked(env Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn("failed to encode envelope", "type", env.Type, "error", err)
		return
	}
	if err := c.transport.Send(frame); err != nil {
		c.logger.Debug("send failed", "type", env.Type, "error", err)
	}
}

// emitTransportError surfaces an informational error event. The close that
// follows is authoritative for state transitions.
func (c *Client) emitTransportError(gen uint64, err error) {
	c.mu.Lock()
	current := gen == c.gen && !c.manualClose
	c.mu.Unlock()
	if !current {
		return
	}
	c.emitConnection(ConnectionEvent{Status: StatusError, Error: err.Error()})
}

// emitConnection dispatches a lifecycle event on the connection channel.
func (c *Client) emitConnection(ev ConnectionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.dispatcher.Emit(ChannelConnection, Envelope{
		Type:      ChannelConnection,
		Data:      data,
		Timestamp: c.clk.Now().UTC().Format(time.RFC3339Nano),
	})
}

// setStateLocked records a state transition. Caller holds mu.
func (c *Client) setStateLocked(next ConnectionState) {
	if c.state == next {
		return
	}
	c.logger.Debug("state transition", "from", c.state, "to", next)
	c.state = next
	c.metrics.SetConnectionState(int(next))
}

func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// buildURL assembles the endpoint URL: scheme by security setting, host
// and path from config, and the bearer token as a query parameter. An
// empty or unavailable token omits the parameter entirely.
func (c *Client) buildURL() string {
	scheme := "ws"
	if c.cfg.Secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: c.cfg.Host, Path: c.cfg.Path}

	if c.token != nil {
		tok, err := c.token.Token()
		switch {
		case err != nil:
			c.logger.Warn("token source failed, connecting without token", "error", err)
		case tok != "":
			u.RawQuery = url.Values{"token": {tok}}.Encode()
		}
	}
	return u.String()
}
