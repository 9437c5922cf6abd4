//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads the user button from actual hardware using Linux GPIO
// character device. The button pulls the line low when pressed.
type RealButton struct {
	chip     *gpiocdev.Chip
	line     *gpiocdev.Line
	offset   int
	debounce time.Duration
}

// NewRealButton opens the GPIO chip for a button on the given line offset.
// The line itself is requested by Watch.
func NewRealButton(chip string, offset int, debounce time.Duration) (*RealButton, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealButton{
		chip:     c,
		offset:   offset,
		debounce: debounce,
	}, nil
}

// Watch requests the button line with falling-edge detection and calls
// handler for each debounced press. The kernel delivers edge events on a
// dedicated goroutine, which plays the role of interrupt context.
func (b *RealButton) Watch(handler func()) error {
	if b.line != nil {
		return fmt.Errorf("button pin %d already watched", b.offset)
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { handler() }),
	}
	if b.debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(b.debounce))
	}

	line, err := b.chip.RequestLine(b.offset, opts...)
	if err != nil {
		return fmt.Errorf("request button pin %d: %w", b.offset, err)
	}
	b.line = line
	return nil
}

// ClearInterrupt is a no-op: the kernel consumes each edge event as it is
// delivered, so no pending flag remains.
func (b *RealButton) ClearInterrupt() {}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing.
func (b *RealButton) Close() error {
	var errs []error

	if b.line != nil {
		if err := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLED drives the user LED on actual hardware.
type RealLED struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLED requests the LED line as an output, initially off.
// activeLow matches boards where the LED lights when the pin is driven low.
func NewRealLED(chip string, offset int, activeLow bool) (*RealLED, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := c.RequestLine(offset, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", offset, err)
	}

	return &RealLED{chip: c, line: line}, nil
}

// Set drives the LED logically on or off. Active-low inversion is done by
// the kernel.
func (l *RealLED) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("write LED pin: %w", err)
	}
	return nil
}

// Close turns the LED off and releases the line as an input with pull-down.
func (l *RealLED) Close() error {
	var errs []error

	if l.line != nil {
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("turn off LED: %w", err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
