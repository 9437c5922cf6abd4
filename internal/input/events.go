// Package input owns the button press counter and the interrupt handler
// that feeds it.
package input

import "sync/atomic"

// Events is the press counter shared between the interrupt handler and the
// control loop. It also carries the wake and notify signals raised by each
// press.
//
// The counter keeps 16-bit signed semantics: it wraps from 32767 to -32768.
type Events struct {
	presses atomic.Int32
	wake    chan struct{}
	notify  chan struct{}
}

// NewEvents creates an Events with a zero counter.
func NewEvents() *Events {
	return &Events{
		wake:   make(chan struct{}, 1),
		notify: make(chan struct{}, 1),
	}
}

// Increment adds one press. Safe to call from interrupt context.
func (e *Events) Increment() {
	for {
		old := e.presses.Load()
		next := int32(int16(old) + 1)
		if e.presses.CompareAndSwap(old, next) {
			return
		}
	}
}

// Count returns the current press count.
func (e *Events) Count() int16 {
	return int16(e.presses.Load())
}

// TakeAndReset returns the current count and sets it to zero atomically.
func (e *Events) TakeAndReset() int16 {
	return int16(e.presses.Swap(0))
}

// Reset sets the count to zero.
func (e *Events) Reset() {
	e.presses.Store(0)
}

// Wake delivers one token per press burst. Used to resume a halted core.
func (e *Events) Wake() <-chan struct{} {
	return e.wake
}

// Notify delivers one token per press burst. Used to cut the control loop's
// poll wait short.
func (e *Events) Notify() <-chan struct{} {
	return e.notify
}

func (e *Events) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
	select {
	case e.notify <- struct{}{}:
	default:
	}
}
