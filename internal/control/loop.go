// Package control runs the main control loop and the LED transition
// callback.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/power-modes/internal/debug"
	"github.com/sweeney/power-modes/internal/gpio"
	"github.com/sweeney/power-modes/internal/logic"
	"github.com/sweeney/power-modes/internal/power"
)

// Counter is the press counter as seen by the control loop.
type Counter interface {
	Count() int16
	TakeAndReset() int16
	Notify() <-chan struct{}
}

// PowerManager performs blocking transitions.
type PowerManager interface {
	Enter(ctx context.Context, mode logic.Mode, presses int16) error
}

// DefaultPoll is the default wait between loop iterations.
const DefaultPoll = 10 * time.Millisecond

// Loop is the main control loop.
type Loop struct {
	counter Counter
	led     gpio.LED
	pm      PowerManager
	sink    debug.Sink
	poll    time.Duration

	entered bool
}

// NewLoop creates a control loop. A nil sink discards console output and a
// non-positive poll uses DefaultPoll.
func NewLoop(counter Counter, led gpio.LED, pm PowerManager, sink debug.Sink, poll time.Duration) *Loop {
	if sink == nil {
		sink = debug.Nop{}
	}
	if poll <= 0 {
		poll = DefaultPoll
	}
	return &Loop{
		counter: counter,
		led:     led,
		pm:      pm,
		sink:    sink,
		poll:    poll,
	}
}

// Step runs one iteration: LED on, then a Sleep or Deep Sleep request if the
// press count is at a threshold. The returned request is the one issued, or
// the zero Request.
//
// Deep Sleep clears the counter once the request returns, vetoed or not.
// Sleep leaves it untouched.
func (l *Loop) Step(ctx context.Context) (logic.Request, error) {
	if err := l.led.Set(true); err != nil {
		log.Printf("led on: %v", err)
	}

	presses := l.counter.Count()
	req := logic.Decide(presses)
	if req.None() {
		return req, nil
	}

	l.sink.Printf("Enter %s mode", req.Mode.Title())
	err := l.pm.Enter(ctx, req.Mode, presses)

	if logic.ResetsCounter(req.Mode) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		if n := l.counter.TakeAndReset(); n != presses {
			log.Printf("%d presses during %s cleared", int(n)-int(presses), req.Mode.Title())
		}
	}

	if err != nil {
		return req, fmt.Errorf("enter %s: %w", req.Mode.Title(), err)
	}
	return req, nil
}

// Run loops until ctx is done. Vetoed transitions are logged and the loop
// continues. Run returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		if _, err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, power.ErrVetoed) {
				return err
			}
			log.Printf("transition refused: %v", err)
		}

		if !l.entered {
			l.sink.Printf("Entered for loop")
			l.entered = true
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-l.counter.Notify():
		}
	}
}
