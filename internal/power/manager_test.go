package power

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/power-modes/internal/logic"
)

// fakeWake is a WakeSource driven by the test.
type fakeWake struct {
	ch chan struct{}
}

func newFakeWake() *fakeWake {
	return &fakeWake{ch: make(chan struct{}, 1)}
}

func (w *fakeWake) Wake() <-chan struct{} { return w.ch }

func (w *fakeWake) fire() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

type call struct {
	Name string
	Mode logic.Mode
	CP   logic.Checkpoint
}

// recorder collects callback invocations across registrations.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) callback(name string, veto logic.Checkpoint) Callback {
	return func(mode logic.Mode, cp logic.Checkpoint) logic.Status {
		r.mu.Lock()
		r.calls = append(r.calls, call{Name: name, Mode: mode, CP: cp})
		r.mu.Unlock()
		if cp == veto {
			return logic.StatusFail
		}
		return logic.StatusSuccess
	}
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]call, len(r.calls))
	copy(out, r.calls)
	return out
}

type fakeObserver struct {
	mu          sync.Mutex
	checkpoints []logic.Checkpoint
	transitions []logic.Transition
}

func (o *fakeObserver) Checkpoint(mode logic.Mode, cp logic.Checkpoint, name string, status logic.Status) {
	o.mu.Lock()
	o.checkpoints = append(o.checkpoints, cp)
	o.mu.Unlock()
}

func (o *fakeObserver) Transition(t logic.Transition) {
	o.mu.Lock()
	o.transitions = append(o.transitions, t)
	o.mu.Unlock()
}

// waitForMode polls until the manager reports mode or the deadline passes.
func waitForMode(t *testing.T, m *Manager, mode logic.Mode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.Mode() != mode {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for mode %s (current %s)", mode, m.Mode())
		}
		time.Sleep(time.Millisecond)
	}
}

// enterAsync runs fn in a goroutine and returns its result channel.
func enterAsync(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("transition did not return")
		return nil
	}
}

func assertCalls(t *testing.T, got, want []call) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls: got %d %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEnterSleepCheckpointOrder(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	rec := &recorder{}

	if err := m.Register(Registration{Name: "led", Mode: logic.ModeSleep, Callback: rec.callback("led", "")}); err != nil {
		t.Fatalf("register: %v", err)
	}

	done := enterAsync(func() error { return m.EnterSleep(context.Background()) })
	waitForMode(t, m, logic.ModeSleep)

	// Halted after BEFORE_TRANSITION, AFTER not yet run.
	assertCalls(t, rec.snapshot(), []call{
		{"led", logic.ModeSleep, logic.CheckReady},
		{"led", logic.ModeSleep, logic.BeforeTransition},
	})

	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, rec.snapshot(), []call{
		{"led", logic.ModeSleep, logic.CheckReady},
		{"led", logic.ModeSleep, logic.BeforeTransition},
		{"led", logic.ModeSleep, logic.AfterTransition},
	})
	if m.Mode() != logic.ModeActive {
		t.Errorf("mode after wake: got %s, want ACTIVE", m.Mode())
	}
}

func TestEnterOnlyRunsCallbacksForMode(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	rec := &recorder{}
	m.Register(Registration{Name: "sleep", Mode: logic.ModeSleep, Callback: rec.callback("sleep", "")})
	m.Register(Registration{Name: "deep", Mode: logic.ModeDeepSleep, Callback: rec.callback("deep", "")})

	done := enterAsync(func() error { return m.EnterDeepSleep(context.Background()) })
	waitForMode(t, m, logic.ModeDeepSleep)
	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range rec.snapshot() {
		if c.Name != "deep" {
			t.Errorf("unexpected callback %+v", c)
		}
	}
}

func TestAfterTransitionRunsInReverseOrder(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	rec := &recorder{}
	m.Register(Registration{Name: "a", Mode: logic.ModeSleep, Callback: rec.callback("a", "")})
	m.Register(Registration{Name: "b", Mode: logic.ModeSleep, Callback: rec.callback("b", "")})

	done := enterAsync(func() error { return m.EnterSleep(context.Background()) })
	waitForMode(t, m, logic.ModeSleep)
	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, rec.snapshot(), []call{
		{"a", logic.ModeSleep, logic.CheckReady},
		{"b", logic.ModeSleep, logic.CheckReady},
		{"a", logic.ModeSleep, logic.BeforeTransition},
		{"b", logic.ModeSleep, logic.BeforeTransition},
		{"b", logic.ModeSleep, logic.AfterTransition},
		{"a", logic.ModeSleep, logic.AfterTransition},
	})
}

func TestVetoSendsCheckFailToApprovedCallbacks(t *testing.T) {
	m := NewManager(newFakeWake())
	rec := &recorder{}
	obs := &fakeObserver{}
	m.SetObserver(obs)
	m.Register(Registration{Name: "a", Mode: logic.ModeDeepSleep, Callback: rec.callback("a", "")})
	m.Register(Registration{Name: "b", Mode: logic.ModeDeepSleep, Callback: rec.callback("b", "")})
	m.Register(Registration{Name: "uart", Mode: logic.ModeDeepSleep, Callback: rec.callback("uart", logic.CheckReady)})
	m.Register(Registration{Name: "d", Mode: logic.ModeDeepSleep, Callback: rec.callback("d", "")})

	err := m.EnterDeepSleep(context.Background())
	if !errors.Is(err, ErrVetoed) {
		t.Fatalf("expected ErrVetoed, got %v", err)
	}
	var veto *VetoError
	if !errors.As(err, &veto) || veto.Name != "uart" {
		t.Errorf("expected VetoError from uart, got %v", err)
	}

	assertCalls(t, rec.snapshot(), []call{
		{"a", logic.ModeDeepSleep, logic.CheckReady},
		{"b", logic.ModeDeepSleep, logic.CheckReady},
		{"uart", logic.ModeDeepSleep, logic.CheckReady},
		{"b", logic.ModeDeepSleep, logic.CheckFail},
		{"a", logic.ModeDeepSleep, logic.CheckFail},
	})

	if len(obs.transitions) != 1 {
		t.Fatalf("transitions: got %d, want 1", len(obs.transitions))
	}
	tr := obs.transitions[0]
	if tr.Outcome != logic.OutcomeVetoed || tr.VetoedBy != "uart" {
		t.Errorf("transition: got %+v", tr)
	}
	if m.Mode() != logic.ModeActive {
		t.Errorf("mode after veto: got %s", m.Mode())
	}
}

func TestSkipMask(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	rec := &recorder{}
	m.Register(Registration{
		Name:     "led",
		Mode:     logic.ModeSleep,
		Callback: rec.callback("led", ""),
		Skip:     SkipCheckReady | SkipAfterTransition,
	})

	done := enterAsync(func() error { return m.EnterSleep(context.Background()) })
	waitForMode(t, m, logic.ModeSleep)
	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, rec.snapshot(), []call{
		{"led", logic.ModeSleep, logic.BeforeTransition},
	})
}

func TestSkippedCheckReadyCannotVeto(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	rec := &recorder{}
	m.Register(Registration{
		Name:     "v",
		Mode:     logic.ModeSleep,
		Callback: rec.callback("v", logic.CheckReady),
		Skip:     SkipCheckReady,
	})

	done := enterAsync(func() error { return m.EnterSleep(context.Background()) })
	waitForMode(t, m, logic.ModeSleep)
	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBeforeTransitionFailureDoesNotAbort(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	rec := &recorder{}
	m.Register(Registration{Name: "x", Mode: logic.ModeSleep, Callback: rec.callback("x", logic.BeforeTransition)})

	done := enterAsync(func() error { return m.EnterSleep(context.Background()) })
	waitForMode(t, m, logic.ModeSleep)
	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStaleWakeIsDiscarded(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	m.Register(Registration{Name: "led", Mode: logic.ModeSleep, Callback: func(logic.Mode, logic.Checkpoint) logic.Status {
		return logic.StatusSuccess
	}})

	// A press serviced before the request must not wake the core.
	wake.fire()

	done := enterAsync(func() error { return m.EnterSleep(context.Background()) })
	waitForMode(t, m, logic.ModeSleep)

	select {
	case err := <-done:
		t.Fatalf("returned before wake: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelWhileHalted(t *testing.T) {
	m := NewManager(newFakeWake())
	rec := &recorder{}
	obs := &fakeObserver{}
	m.SetObserver(obs)
	m.Register(Registration{Name: "led", Mode: logic.ModeDeepSleep, Callback: rec.callback("led", "")})

	ctx, cancel := context.WithCancel(context.Background())
	done := enterAsync(func() error { return m.EnterDeepSleep(ctx) })
	waitForMode(t, m, logic.ModeDeepSleep)
	cancel()

	err := wait(t, done)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	calls := rec.snapshot()
	if last := calls[len(calls)-1]; last.CP != logic.AfterTransition {
		t.Errorf("expected AFTER_TRANSITION to run on cancel, last call %+v", last)
	}
	if len(obs.transitions) != 1 || obs.transitions[0].Outcome != logic.OutcomeCancelled {
		t.Errorf("expected one CANCELLED transition, got %+v", obs.transitions)
	}
}

func TestObserverSeesCheckpointsAndTransition(t *testing.T) {
	wake := newFakeWake()
	m := NewManager(wake)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	m.now = func() time.Time {
		n++
		return start.Add(time.Duration(n-1) * time.Second)
	}
	obs := &fakeObserver{}
	m.SetObserver(obs)
	rec := &recorder{}
	m.Register(Registration{Name: "led", Mode: logic.ModeSleep, Callback: rec.callback("led", "")})

	done := enterAsync(func() error { return m.Enter(context.Background(), logic.ModeSleep, 1) })
	waitForMode(t, m, logic.ModeSleep)
	wake.fire()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []logic.Checkpoint{logic.CheckReady, logic.BeforeTransition, logic.AfterTransition}
	if len(obs.checkpoints) != len(want) {
		t.Fatalf("checkpoints: got %v, want %v", obs.checkpoints, want)
	}
	for i := range want {
		if obs.checkpoints[i] != want[i] {
			t.Errorf("checkpoint %d: got %s, want %s", i, obs.checkpoints[i], want[i])
		}
	}

	if len(obs.transitions) != 1 {
		t.Fatalf("transitions: got %d, want 1", len(obs.transitions))
	}
	tr := obs.transitions[0]
	if tr.Mode != logic.ModeSleep || tr.Outcome != logic.OutcomeWoke || tr.Presses != 1 {
		t.Errorf("transition: got %+v", tr)
	}
	if tr.Asleep() != time.Second {
		t.Errorf("asleep: got %v, want 1s", tr.Asleep())
	}
}

func TestRegisterValidation(t *testing.T) {
	m := NewManager(newFakeWake())
	ok := func(logic.Mode, logic.Checkpoint) logic.Status { return logic.StatusSuccess }

	if err := m.Register(Registration{Name: "nil", Mode: logic.ModeSleep}); err == nil {
		t.Error("expected error for nil callback")
	}
	if err := m.Register(Registration{Name: "active", Mode: logic.ModeActive, Callback: ok}); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
	if err := m.Register(Registration{Name: "led", Mode: logic.ModeSleep, Callback: ok}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Register(Registration{Name: "led", Mode: logic.ModeSleep, Callback: ok}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if err := m.Register(Registration{Name: "led", Mode: logic.ModeDeepSleep, Callback: ok}); err != nil {
		t.Errorf("same name for another mode should register: %v", err)
	}
}

func TestClosedManager(t *testing.T) {
	m := NewManager(newFakeWake())
	m.Close()

	ok := func(logic.Mode, logic.Checkpoint) logic.Status { return logic.StatusSuccess }
	if err := m.Register(Registration{Name: "led", Mode: logic.ModeSleep, Callback: ok}); !errors.Is(err, ErrClosed) {
		t.Errorf("Register: expected ErrClosed, got %v", err)
	}
	if err := m.EnterSleep(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("EnterSleep: expected ErrClosed, got %v", err)
	}
}

func TestEnterInvalidMode(t *testing.T) {
	m := NewManager(newFakeWake())
	if err := m.Enter(context.Background(), logic.ModeActive, 0); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}
