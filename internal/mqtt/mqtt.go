// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/power-modes/internal/logic"
)

// Topic is the MQTT topic for power-mode transitions.
const Topic = "power-modes/transitions"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "power-modes/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a finished transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(t logic.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Transition TransitionPayload `json:"transition"`
}

// TransitionPayload contains the transition details.
type TransitionPayload struct {
	Timestamp     string `json:"timestamp"`
	Mode          string `json:"mode"`
	Outcome       string `json:"outcome"`
	VetoedBy      string `json:"vetoed_by,omitempty"`
	Presses       int16  `json:"presses"`
	AsleepMs      int64  `json:"asleep_ms"`
	WakeTimestamp string `json:"wake_timestamp"`
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(t logic.Transition) ([]byte, error) {
	payload := Payload{
		Transition: TransitionPayload{
			Timestamp:     t.Started.UTC().Format(time.RFC3339),
			Mode:          string(t.Mode),
			Outcome:       string(t.Outcome),
			VetoedBy:      t.VetoedBy,
			Presses:       t.Presses,
			AsleepMs:      t.Asleep().Milliseconds(),
			WakeTimestamp: t.Resumed.UTC().Format(time.RFC3339),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
