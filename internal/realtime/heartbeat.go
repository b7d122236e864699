package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agisfl/realtime-client/internal/clock"
)

// heartbeatMonitor detects connections that stay open at the transport
// layer but stop exchanging data. While running it sends a ping on every
// probe interval and arms a shorter reply deadline; a missing pong forces
// the transport closed via onDead, exactly once.
//
// A fresh monitor is created per connected session, so its callbacks are
// bound to one transport generation and can never act on a successor.
type heartbeatMonitor struct {
	clk      clock.Clock
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	sendPing func()
	onDead   func()

	mu       sync.Mutex
	running  bool
	expired  bool
	probe    clock.Timer
	deadline clock.Timer
}

func newHeartbeatMonitor(clk clock.Clock, logger *slog.Logger, interval, timeout time.Duration, sendPing, onDead func()) *heartbeatMonitor {
	return &heartbeatMonitor{
		clk:      clk,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		sendPing: sendPing,
		onDead:   onDead,
	}
}

// start arms the first probe timer.
func (h *heartbeatMonitor) start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return
	}
	h.running = true
	h.probe = h.clk.AfterFunc(h.interval, h.tick)
}

// stop cancels both timers. Called whenever the connection leaves the
// connected state so no orphaned timer can fire against a stale transport.
func (h *heartbeatMonitor) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.running = false
	h.stopTimersLocked()
}

// pong cancels the pending reply deadline.
func (h *heartbeatMonitor) pong() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.deadline != nil {
		h.deadline.Stop()
		h.deadline = nil
	}
}

// tick emits one probe, arms the reply deadline, and schedules the next
// probe. The ping is sent outside the monitor lock; sendPing re-checks the
// connection state on its own.
func (h *heartbeatMonitor) tick() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	if h.deadline != nil {
		h.deadline.Stop()
	}
	h.deadline = h.clk.AfterFunc(h.timeout, h.expire)
	h.probe = h.clk.AfterFunc(h.interval, h.tick)
	h.mu.Unlock()

	h.sendPing()
}

// expire fires when no pong arrived in time. The expired flag guarantees a
// single forced closure per monitor even if a timer slips through a racing
// stop.
func (h *heartbeatMonitor) expire() {
	h.mu.Lock()
	if !h.running || h.expired {
		h.mu.Unlock()
		return
	}
	h.expired = true
	h.running = false
	h.stopTimersLocked()
	h.mu.Unlock()

	h.logger.Warn("heartbeat timed out, forcing connection closed",
		"timeout", h.timeout,
	)
	h.onDead()
}

func (h *heartbeatMonitor) stopTimersLocked() {
	if h.probe != nil {
		h.probe.Stop()
		h.probe = nil
	}
	if h.deadline != nil {
		h.deadline.Stop()
		h.deadline = nil
	}
}
