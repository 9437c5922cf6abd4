// Package gpio provides the button and LED with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"time"
)

// Button is an input pin that raises an interrupt on each press.
type Button interface {
	// Watch registers handler as the pin's interrupt handler.
	// The handler runs in interrupt context and must not block.
	Watch(handler func()) error

	// ClearInterrupt clears the pin's pending interrupt flag.
	ClearInterrupt()

	// Close releases GPIO resources.
	Close() error
}

// LED is a digital output driving the status LED.
type LED interface {
	// Set drives the LED logically on or off.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinButton = 17
	DefaultPinLED    = 27
	DefaultChip      = "gpiochip0"
)

// Blinker toggles an LED off and on with a fixed half-period.
type Blinker struct {
	LED        LED
	HalfPeriod time.Duration
	// Delay blocks for the given duration. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// Blink toggles the LED off then on count times and leaves it off.
// Every write is attempted; the first error is returned.
func (b Blinker) Blink(count int) error {
	delay := b.Delay
	if delay == nil {
		delay = time.Sleep
	}

	var first error
	set := func(on bool) {
		if err := b.LED.Set(on); err != nil && first == nil {
			first = fmt.Errorf("set led: %w", err)
		}
	}

	for i := 0; i < count; i++ {
		set(false)
		delay(b.HalfPeriod)
		set(true)
		delay(b.HalfPeriod)
	}
	set(false)

	return first
}
