// Package script drives a simulated button from a small command script, e.g.
//
//	press          # one press
//	wait 2s
//	press 2        # two presses back to back
//
// Commands are split with shell rules, so quoting and # comments work.
package script

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/shlex"
)

// Presser raises one button press.
type Presser interface {
	Press()
}

// Step is one script command: either a number of presses or a wait.
type Step struct {
	Presses int
	Wait    time.Duration
}

func (s Step) String() string {
	if s.Presses > 0 {
		return fmt.Sprintf("press %d", s.Presses)
	}
	return fmt.Sprintf("wait %v", s.Wait)
}

// Parse splits src into steps.
func Parse(src string) ([]Step, error) {
	words, err := shlex.Split(src)
	if err != nil {
		return nil, fmt.Errorf("split script: %w", err)
	}

	var steps []Step
	for i := 0; i < len(words); i++ {
		switch words[i] {
		case "press":
			n := 1
			if i+1 < len(words) {
				if v, err := strconv.Atoi(words[i+1]); err == nil {
					if v < 1 {
						return nil, fmt.Errorf("press count %d: must be positive", v)
					}
					n = v
					i++
				}
			}
			steps = append(steps, Step{Presses: n})
		case "wait":
			if i+1 >= len(words) {
				return nil, fmt.Errorf("wait: missing duration")
			}
			d, err := time.ParseDuration(words[i+1])
			if err != nil {
				return nil, fmt.Errorf("wait: %w", err)
			}
			if d < 0 {
				return nil, fmt.Errorf("wait %v: must not be negative", d)
			}
			steps = append(steps, Step{Wait: d})
			i++
		default:
			return nil, fmt.Errorf("unknown command %q", words[i])
		}
	}
	return steps, nil
}

// Run executes steps against p. It returns ctx.Err() if ctx is done first.
func Run(ctx context.Context, steps []Step, p Presser) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 0; i < s.Presses; i++ {
			p.Press()
		}
		if s.Wait > 0 {
			t := time.NewTimer(s.Wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}
