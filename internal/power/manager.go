package power

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/power-modes/internal/logic"
)

// WakeSource delivers wake interrupts to a halted core.
type WakeSource interface {
	Wake() <-chan struct{}
}

// Manager holds registered callbacks and performs transitions.
// Only one transition runs at a time.
type Manager struct {
	wake WakeSource
	now  func() time.Time

	transition sync.Mutex // held for the whole of a transition

	mu       sync.Mutex
	regs     []Registration
	mode     logic.Mode
	observer Observer
	closed   bool
}

// NewManager creates a Manager that resumes halted transitions on wake.
func NewManager(wake WakeSource) *Manager {
	return &Manager{
		wake: wake,
		now:  time.Now,
		mode: logic.ModeActive,
	}
}

// SetObserver installs o. Pass nil to remove.
func (m *Manager) SetObserver(o Observer) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

// Register adds a callback. Registrations are immutable once added.
func (m *Manager) Register(r Registration) error {
	if err := r.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, existing := range m.regs {
		if existing.Name == r.Name && existing.Mode == r.Mode {
			return fmt.Errorf("register %q: already registered for %s", r.Name, r.Mode.Title())
		}
	}
	m.regs = append(m.regs, r)
	return nil
}

// Mode returns the current power mode. It reports Sleep or Deep Sleep only
// while the core is halted.
func (m *Manager) Mode() logic.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Close rejects further registrations and transitions.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// EnterSleep runs the Sleep transition. It blocks until a wake interrupt has
// resumed the core and AFTER_TRANSITION has run, or ctx is done.
func (m *Manager) EnterSleep(ctx context.Context) error {
	return m.Enter(ctx, logic.ModeSleep, 0)
}

// EnterDeepSleep runs the Deep Sleep transition. See EnterSleep.
func (m *Manager) EnterDeepSleep(ctx context.Context) error {
	return m.Enter(ctx, logic.ModeDeepSleep, 0)
}

// Enter runs a transition into mode. presses is recorded on the resulting
// logic.Transition only.
//
// CHECK_READY runs in registration order. A FAIL sends CHECK_FAIL to the
// callbacks that already approved, in reverse order, and aborts with a
// *VetoError. Otherwise BEFORE_TRANSITION runs in registration order, the
// core halts until wake, and AFTER_TRANSITION runs in reverse order.
// Cancelling ctx while halted resumes the core; AFTER_TRANSITION still runs
// and ctx.Err() is returned.
func (m *Manager) Enter(ctx context.Context, mode logic.Mode, presses int16) error {
	if mode != logic.ModeSleep && mode != logic.ModeDeepSleep {
		return fmt.Errorf("enter: %w: %q", ErrInvalidMode, mode)
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	var regs []Registration
	for _, r := range m.regs {
		if r.Mode == mode {
			regs = append(regs, r)
		}
	}
	obs := m.observer
	m.mu.Unlock()

	tr := logic.Transition{Mode: mode, Presses: presses, Started: m.now()}

	for i, r := range regs {
		if m.call(obs, r, logic.CheckReady) == logic.StatusFail {
			for j := i - 1; j >= 0; j-- {
				m.call(obs, regs[j], logic.CheckFail)
			}
			tr.Outcome = logic.OutcomeVetoed
			tr.VetoedBy = r.Name
			tr.Resumed = m.now()
			notify(obs, tr)
			return &VetoError{Mode: mode, Name: r.Name}
		}
	}

	for _, r := range regs {
		if m.call(obs, r, logic.BeforeTransition) == logic.StatusFail {
			log.Printf("power: %s failed %s for %s, continuing", r.Name, logic.BeforeTransition, mode.Title())
		}
	}

	err := m.halt(ctx, mode)

	for i := len(regs) - 1; i >= 0; i-- {
		m.call(obs, regs[i], logic.AfterTransition)
	}

	tr.Resumed = m.now()
	tr.Outcome = logic.OutcomeWoke
	if err != nil {
		tr.Outcome = logic.OutcomeCancelled
	}
	notify(obs, tr)
	return err
}

// halt blocks until the next wake interrupt. Wake tokens raised before the
// halt began were already serviced and are discarded.
func (m *Manager) halt(ctx context.Context, mode logic.Mode) error {
	wake := m.wake.Wake()
	select {
	case <-wake:
	default:
	}

	m.setMode(mode)
	defer m.setMode(logic.ModeActive)

	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) call(obs Observer, r Registration, cp logic.Checkpoint) logic.Status {
	if r.Skip.skips(cp) {
		return logic.StatusSuccess
	}
	st := r.Callback(r.Mode, cp)
	if obs != nil {
		obs.Checkpoint(r.Mode, cp, r.Name, st)
	}
	return st
}

func (m *Manager) setMode(mode logic.Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

func notify(obs Observer, t logic.Transition) {
	if obs != nil {
		obs.Transition(t)
	}
}
