// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Messages received per envelope type and malformed-frame count
//   - Connection state and reconnect attempts
//   - Outbound queue depth and evictions
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics is
// valid and disables recording, so instrumentation stays optional.
type Metrics struct {
	messagesTotal   *prometheus.CounterVec
	malformedTotal  prometheus.Counter
	connectionState prometheus.Gauge
	reconnectsTotal prometheus.Counter
	queueDepth      prometheus.Gauge
	queueDropped    prometheus.Counter
}

// New registers the client collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agisfl_client_ws_messages_total",
			Help: "Inbound WebSocket envelopes by type.",
		}, []string{"type"}),
		malformedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agisfl_client_ws_malformed_frames_total",
			Help: "Inbound frames dropped because they failed to parse.",
		}),
		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agisfl_client_connection_state",
			Help: "Connection state (0=idle 1=connecting 2=connected 3=reconnecting 4=disconnected).",
		}),
		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agisfl_client_reconnect_attempts_total",
			Help: "Reconnection attempts scheduled.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agisfl_client_outbound_queue_depth",
			Help: "Messages waiting in the offline send queue.",
		}),
		queueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "agisfl_client_outbound_queue_evictions_total",
			Help: "Queued messages evicted because the queue was full.",
		}),
	}
}

// ObserveMessage counts one inbound envelope of the given type.
func (m *Metrics) ObserveMessage(envelopeType string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(envelopeType).Inc()
}

// ObserveMalformed counts one discarded unparseable frame.
func (m *Metrics) ObserveMalformed() {
	if m == nil {
		return
	}
	m.malformedTotal.Inc()
}

// SetConnectionState records the state machine position.
func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

// ObserveReconnect counts one scheduled retry.
func (m *Metrics) ObserveReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

// SetQueueDepth records the outbound queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// ObserveQueueEviction counts one drop-oldest eviction.
func (m *Metrics) ObserveQueueEviction() {
	if m == nil {
		return
	}
	m.queueDropped.Inc()
}
