package control

import (
	"log"

	"github.com/sweeney/power-modes/internal/debug"
	"github.com/sweeney/power-modes/internal/gpio"
	"github.com/sweeney/power-modes/internal/logic"
	"github.com/sweeney/power-modes/internal/power"
)

// CallbackName is the registration name of the LED transition callback.
const CallbackName = "led"

// Callback is the LED transition callback shared by Sleep and Deep Sleep.
// The blink count is selected by mode.
type Callback struct {
	blinker gpio.Blinker
	sink    debug.Sink
}

// NewCallback creates the callback. A nil sink discards console output.
func NewCallback(blinker gpio.Blinker, sink debug.Sink) *Callback {
	if sink == nil {
		sink = debug.Nop{}
	}
	return &Callback{blinker: blinker, sink: sink}
}

// Handle implements power.Callback.
func (c *Callback) Handle(mode logic.Mode, cp logic.Checkpoint) logic.Status {
	switch cp {
	case logic.CheckFail:
		c.sink.Printf("Device failed to enter %s mode", mode.Title())
	case logic.BeforeTransition:
		if err := c.blinker.Blink(logic.Blinks(mode, cp)); err != nil {
			log.Printf("blink before %s: %v", mode.Title(), err)
		}
	case logic.AfterTransition:
		c.sink.Printf("Enters %s mode", logic.ModeActive.Title())
	}
	return logic.Verdict(cp)
}

// Register adds the callback to m for Sleep and Deep Sleep.
func (c *Callback) Register(m *power.Manager) error {
	for _, mode := range []logic.Mode{logic.ModeSleep, logic.ModeDeepSleep} {
		if err := m.Register(power.Registration{
			Name:     CallbackName,
			Mode:     mode,
			Callback: c.Handle,
		}); err != nil {
			return err
		}
	}
	return nil
}
