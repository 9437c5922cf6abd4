// Package logic contains the pure power-mode policy.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Mode is a power state of the device.
type Mode string

const (
	ModeActive    Mode = "ACTIVE"
	ModeSleep     Mode = "SLEEP"
	ModeDeepSleep Mode = "DEEP_SLEEP"
)

// Title returns the human-readable mode name used in console messages.
func (m Mode) Title() string {
	switch m {
	case ModeActive:
		return "Active"
	case ModeSleep:
		return "Sleep"
	case ModeDeepSleep:
		return "Deep Sleep"
	}
	return string(m)
}

// Checkpoint is one of the callback invocation points around a transition.
type Checkpoint string

const (
	CheckReady       Checkpoint = "CHECK_READY"
	CheckFail        Checkpoint = "CHECK_FAIL"
	BeforeTransition Checkpoint = "BEFORE_TRANSITION"
	AfterTransition  Checkpoint = "AFTER_TRANSITION"
)

// Status is a callback verdict.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
)

// Press thresholds and blink parameters.
const (
	SleepPresses     = 1
	DeepSleepPresses = 3

	SleepBlinks     = 2
	DeepSleepBlinks = 3

	BlinkHalfPeriod = 200 * time.Millisecond
)

// Request is the control loop's decision for one iteration.
// The zero value requests nothing.
type Request struct {
	Mode       Mode
	BlinkCount int
}

// None reports whether no transition is requested.
func (r Request) None() bool {
	return r.Mode == ""
}

// Outcome describes how a transition attempt ended.
type Outcome string

const (
	OutcomeWoke      Outcome = "WOKE"
	OutcomeVetoed    Outcome = "VETOED"
	OutcomeCancelled Outcome = "CANCELLED"
)

// Transition records one attempt to leave Active mode.
type Transition struct {
	Mode     Mode
	Outcome  Outcome
	VetoedBy string // callback name, VETOED only
	Presses  int16  // counter value that triggered the request
	Started  time.Time
	Resumed  time.Time
}

// Asleep returns how long the core was halted.
func (t Transition) Asleep() time.Duration {
	if t.Resumed.Before(t.Started) {
		return 0
	}
	return t.Resumed.Sub(t.Started)
}

// TransitionCounts tracks transition attempts since startup.
type TransitionCounts struct {
	Sleep     int
	DeepSleep int
	Vetoed    int
	Cancelled int
}

// Add counts a finished transition.
func (c *TransitionCounts) Add(t Transition) {
	switch t.Outcome {
	case OutcomeVetoed:
		c.Vetoed++
		return
	case OutcomeCancelled:
		c.Cancelled++
	}
	switch t.Mode {
	case ModeSleep:
		c.Sleep++
	case ModeDeepSleep:
		c.DeepSleep++
	}
}
