// Package power implements the power-management facility: a registry of
// transition callbacks and the blocking Sleep and Deep Sleep entry points
// that run them through the four-checkpoint protocol.
package power

import (
	"errors"
	"fmt"

	"github.com/sweeney/power-modes/internal/logic"
)

var (
	// ErrVetoed is returned when a callback fails CHECK_READY.
	ErrVetoed = errors.New("power: transition vetoed")

	// ErrClosed is returned by a closed Manager.
	ErrClosed = errors.New("power: manager closed")

	// ErrInvalidMode is returned for registrations or requests outside Sleep
	// and Deep Sleep.
	ErrInvalidMode = errors.New("power: invalid mode")
)

// Callback is invoked at each checkpoint of a transition into mode.
type Callback func(mode logic.Mode, cp logic.Checkpoint) logic.Status

// Skip suppresses individual checkpoints for one registration.
type Skip uint8

const (
	SkipCheckReady Skip = 1 << iota
	SkipCheckFail
	SkipBeforeTransition
	SkipAfterTransition
)

func (s Skip) skips(cp logic.Checkpoint) bool {
	switch cp {
	case logic.CheckReady:
		return s&SkipCheckReady != 0
	case logic.CheckFail:
		return s&SkipCheckFail != 0
	case logic.BeforeTransition:
		return s&SkipBeforeTransition != 0
	case logic.AfterTransition:
		return s&SkipAfterTransition != 0
	}
	return false
}

// Registration associates a callback with one power mode.
type Registration struct {
	Name     string
	Mode     logic.Mode
	Callback Callback
	Skip     Skip
}

func (r Registration) validate() error {
	if r.Callback == nil {
		return fmt.Errorf("register %q: nil callback", r.Name)
	}
	if r.Mode != logic.ModeSleep && r.Mode != logic.ModeDeepSleep {
		return fmt.Errorf("register %q: %w: %q", r.Name, ErrInvalidMode, r.Mode)
	}
	return nil
}

// Observer is notified of every checkpoint and every finished transition.
// Calls happen on the goroutine that requested the transition.
type Observer interface {
	Checkpoint(mode logic.Mode, cp logic.Checkpoint, name string, status logic.Status)
	Transition(t logic.Transition)
}

// VetoError identifies the callback that refused a transition.
type VetoError struct {
	Mode logic.Mode
	Name string
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("%v: %s refused %s", ErrVetoed, e.Name, e.Mode.Title())
}

func (e *VetoError) Unwrap() error { return ErrVetoed }
