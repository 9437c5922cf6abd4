// Package status provides a thread-safe status tracker for the power-modes
// daemon. It is read by HTTP handlers and system event publishers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/power-modes/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs     int64
	DebounceMs int64
	BlinkMs    int64
	PinButton  int
	PinLED     int
	Broker     string
	HTTPAddr   string
	Console    string
	Simulated  bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode           logic.Mode
	Presses        int16
	Counts         logic.TransitionCounts
	LastTransition *logic.Transition
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
// Mode and press count are read live from their sources on each Snapshot.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot

	modeSource  func() logic.Mode
	pressSource func() int16
	now         func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      logic.ModeActive,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetSources installs the live mode and press count readers. Either may be nil.
func (t *Tracker) SetSources(mode func() logic.Mode, presses func() int16) {
	t.mu.Lock()
	t.modeSource = mode
	t.pressSource = presses
	t.mu.Unlock()
}

// RecordTransition counts a finished transition and keeps it as the latest.
func (t *Tracker) RecordTransition(tr logic.Transition) {
	t.mu.Lock()
	t.snap.Counts.Add(tr)
	t.snap.LastTransition = &tr
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	modeSource, pressSource := t.modeSource, t.pressSource
	t.mu.RUnlock()

	if s.LastTransition != nil {
		last := *s.LastTransition
		s.LastTransition = &last
	}
	if modeSource != nil {
		s.Mode = modeSource()
	}
	if pressSource != nil {
		s.Presses = pressSource()
	}
	s.Now = t.now()
	return s
}
