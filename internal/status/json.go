package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string          `json:"event,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Mode           string          `json:"mode"`
	Presses        int16           `json:"presses"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	StartTime      string          `json:"start_time"`
	Timestamp      string          `json:"timestamp"`
	MQTT           MQTTStatus      `json:"mqtt"`
	Counts         CountsJSON      `json:"transition_counts"`
	LastTransition *TransitionJSON `json:"last_transition,omitempty"`
	Config         ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Sleep     int `json:"sleep"`
	DeepSleep int `json:"deep_sleep"`
	Vetoed    int `json:"vetoed"`
	Cancelled int `json:"cancelled"`
}

// TransitionJSON is the JSON representation of the latest transition.
type TransitionJSON struct {
	Mode     string `json:"mode"`
	Outcome  string `json:"outcome"`
	VetoedBy string `json:"vetoed_by,omitempty"`
	Presses  int16  `json:"presses"`
	Started  string `json:"started"`
	AsleepMs int64  `json:"asleep_ms"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs     int64  `json:"poll_ms"`
	DebounceMs int64  `json:"debounce_ms"`
	BlinkMs    int64  `json:"blink_ms"`
	PinButton  int    `json:"pin_button"`
	PinLED     int    `json:"pin_led"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
	Console    string `json:"console"`
	Simulated  bool   `json:"simulated"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		Mode:          mode,
		Presses:       snap.Presses,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Sleep:     snap.Counts.Sleep,
			DeepSleep: snap.Counts.DeepSleep,
			Vetoed:    snap.Counts.Vetoed,
			Cancelled: snap.Counts.Cancelled,
		},
		Config: ConfigJSON{
			PollMs:     snap.Config.PollMs,
			DebounceMs: snap.Config.DebounceMs,
			BlinkMs:    snap.Config.BlinkMs,
			PinButton:  snap.Config.PinButton,
			PinLED:     snap.Config.PinLED,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
			Console:    snap.Config.Console,
			Simulated:  snap.Config.Simulated,
		},
	}

	if tr := snap.LastTransition; tr != nil {
		inner.LastTransition = &TransitionJSON{
			Mode:     string(tr.Mode),
			Outcome:  string(tr.Outcome),
			VetoedBy: tr.VetoedBy,
			Presses:  tr.Presses,
			Started:  tr.Started.UTC().Format(time.RFC3339),
			AsleepMs: tr.Asleep().Milliseconds(),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
