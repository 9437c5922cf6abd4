package gpio

import (
	"errors"
	"sync"
)

// FakeButton is a test double whose presses are triggered by the caller.
type FakeButton struct {
	mu      sync.Mutex
	handler func()
	pending bool

	// Presses counts calls to Press.
	Presses int

	// Cleared counts calls to ClearInterrupt.
	Cleared int

	// Closed tracks if Close was called
	Closed bool

	// WatchError, if set, will be returned by Watch().
	WatchError error
}

// NewFakeButton creates an unwatched FakeButton.
func NewFakeButton() *FakeButton {
	return &FakeButton{}
}

// Watch stores the handler for later presses.
func (f *FakeButton) Watch(handler func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WatchError != nil {
		return f.WatchError
	}
	if f.handler != nil {
		return errors.New("button already watched")
	}
	f.handler = handler
	return nil
}

// Press raises the pin's interrupt and runs the handler on the calling
// goroutine. Presses before Watch are counted but not delivered.
func (f *FakeButton) Press() {
	f.mu.Lock()
	f.Presses++
	f.pending = true
	h := f.handler
	f.mu.Unlock()

	if h != nil {
		h()
	}
}

// ClearInterrupt clears the pending flag.
func (f *FakeButton) ClearInterrupt() {
	f.mu.Lock()
	f.pending = false
	f.Cleared++
	f.mu.Unlock()
}

// Pending reports whether an interrupt was raised and not cleared.
func (f *FakeButton) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeLED records every write for test assertions.
type FakeLED struct {
	mu     sync.Mutex
	writes []bool
	on     bool

	// SetError, if set, will be returned by Set().
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeLED creates a FakeLED that starts off.
func NewFakeLED() *FakeLED {
	return &FakeLED{}
}

// Set records the write.
func (f *FakeLED) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.writes = append(f.writes, on)
	f.on = on
	return nil
}

// On returns the last written state.
func (f *FakeLED) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Writes returns a copy of all recorded writes.
func (f *FakeLED) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.writes))
	copy(out, f.writes)
	return out
}

// Blinks counts off-to-on edges in the recorded writes.
func (f *FakeLED) Blinks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := 1; i < len(f.writes); i++ {
		if !f.writes[i-1] && f.writes[i] {
			n++
		}
	}
	return n
}

// Reset clears recorded writes.
func (f *FakeLED) Reset() {
	f.mu.Lock()
	f.writes = nil
	f.SetError = nil
	f.Closed = false
	f.mu.Unlock()
}

// Close marks the LED as closed.
func (f *FakeLED) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
