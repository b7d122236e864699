package realtime

import (
	"encoding/json"
	"fmt"
)

// Envelope types broadcast by the backend.
const (
	// TypeFLUpdate carries federated-learning round metrics.
	TypeFLUpdate = "fl_update"
	// TypeIDSUpdate carries intrusion-detection metrics.
	TypeIDSUpdate = "ids_update"
)

// EventPayload is the decoded form of a known envelope. Consumers switch
// over the concrete types; UnknownEvent is the forward-compatibility
// escape hatch for types this build does not know.
type EventPayload interface {
	eventPayload()
}

// FLUpdate mirrors the backend's federated-learning status broadcast.
type FLUpdate struct {
	CurrentRound int       `json:"current_round"`
	TotalRounds  int       `json:"total_rounds"`
	Metrics      FLMetrics `json:"metrics"`
	IsTraining   bool      `json:"is_training"`
	Strategy     string    `json:"strategy,omitempty"`
}

// FLMetrics holds the aggregate model metrics of an FLUpdate. Accuracy and
// Loss are pointers because the backend reports null before the first
// round completes.
type FLMetrics struct {
	Accuracy      *float64 `json:"accuracy"`
	Loss          *float64 `json:"loss"`
	ActiveClients int      `json:"active_clients"`
}

// IDSUpdate mirrors the backend's intrusion-detection status broadcast.
type IDSUpdate struct {
	IsRunning      bool             `json:"is_running"`
	IsTrained      bool             `json:"is_trained"`
	DetectionStats map[string]int64 `json:"detection_stats,omitempty"`
	ThreatTypes    map[string]int   `json:"threat_types,omitempty"`
}

// UnknownEvent preserves envelopes of types this build does not recognize.
type UnknownEvent struct {
	Type string
	Data json.RawMessage
}

func (FLUpdate) eventPayload()        {}
func (IDSUpdate) eventPayload()       {}
func (ConnectionEvent) eventPayload() {}
func (UnknownEvent) eventPayload()    {}

// DecodeEvent parses an envelope's data into its typed payload. Unknown
// types decode to UnknownEvent, never an error; an error means a known
// type carried an unparseable body.
func DecodeEvent(env Envelope) (EventPayload, error) {
	switch env.Type {
	case TypeFLUpdate:
		var p FLUpdate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return p, nil
	case TypeIDSUpdate:
		var p IDSUpdate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return p, nil
	case ChannelConnection:
		var p ConnectionEvent
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return p, nil
	default:
		return UnknownEvent{Type: env.Type, Data: env.Data}, nil
	}
}
