// Command power-modes moves the board between Active, Sleep and Deep Sleep
// on button presses and shows the power state on an LED.
//
// One press enters Sleep. The next press wakes the board, and one more press
// (three in total) enters Deep Sleep. Any press wakes the board again.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/power-modes/internal/control"
	"github.com/sweeney/power-modes/internal/debug"
	"github.com/sweeney/power-modes/internal/gpio"
	"github.com/sweeney/power-modes/internal/input"
	"github.com/sweeney/power-modes/internal/logic"
	"github.com/sweeney/power-modes/internal/mqtt"
	"github.com/sweeney/power-modes/internal/power"
	"github.com/sweeney/power-modes/internal/script"
	"github.com/sweeney/power-modes/internal/status"
	"github.com/sweeney/power-modes/internal/web"
)

type config struct {
	chip         string
	pinButton    int
	pinLED       int
	ledActiveLow bool
	debounce     time.Duration
	poll         time.Duration
	blink        time.Duration
	broker       string
	httpAddr     string
	console      string
	serialDev    string
	baud         int
	simulate     string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.chip, "chip", gpio.DefaultChip, "GPIO chip")
	flag.IntVar(&cfg.pinButton, "pin-button", gpio.DefaultPinButton, "BCM pin number for the user button")
	flag.IntVar(&cfg.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number for the user LED")
	flag.BoolVar(&cfg.ledActiveLow, "led-active-low", true, "LED lights when the pin is driven low")
	flag.DurationVar(&cfg.debounce, "debounce", 20*time.Millisecond, "Button debounce duration (0 to disable)")
	flag.DurationVar(&cfg.poll, "poll", control.DefaultPoll, "Control loop polling interval")
	flag.DurationVar(&cfg.blink, "blink", logic.BlinkHalfPeriod, "LED blink half-period")
	flag.StringVar(&cfg.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&cfg.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&cfg.console, "debug", consoleOff, `Debug console: "off", "log" or "serial"`)
	flag.StringVar(&cfg.serialDev, "serial", "/dev/ttyS0", "Serial device for -debug=serial")
	flag.IntVar(&cfg.baud, "baud", 115200, "Serial baud rate")
	flag.StringVar(&cfg.simulate, "simulate", "", `Run without hardware, driving the button from a script (e.g. "press wait 1s press 2")`)

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

const (
	consoleOff    = "off"
	consoleLog    = "log"
	consoleSerial = "serial"
)

// openConsole returns the debug sink selected by cfg and a close function.
func openConsole(cfg config) (debug.Sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.console {
	case consoleOff, "":
		return debug.Nop{}, noop, nil
	case consoleLog:
		return debug.NewLogSink(log.New(os.Stderr, "console: ", log.LstdFlags)), noop, nil
	case consoleSerial:
		s, err := debug.OpenSerial(cfg.serialDev, cfg.baud)
		if err != nil {
			return nil, nil, err
		}
		s.Banner("Power modes")
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown console %q", cfg.console)
}

// hardware is the board as seen by the rest of the program.
type hardware struct {
	button gpio.Button
	led    gpio.LED
	fake   *gpio.FakeButton // non-nil in simulation
}

func (h hardware) Close() {
	if err := h.button.Close(); err != nil {
		log.Printf("close button: %v", err)
	}
	if err := h.led.Close(); err != nil {
		log.Printf("close led: %v", err)
	}
}

func openHardware(cfg config) (hardware, error) {
	if cfg.simulate != "" {
		b := gpio.NewFakeButton()
		return hardware{button: b, led: gpio.NewFakeLED(), fake: b}, nil
	}

	led, err := gpio.NewRealLED(cfg.chip, cfg.pinLED, cfg.ledActiveLow)
	if err != nil {
		return hardware{}, fmt.Errorf("init led: %w", err)
	}
	button, err := gpio.NewRealButton(cfg.chip, cfg.pinButton, cfg.debounce)
	if err != nil {
		led.Close()
		return hardware{}, fmt.Errorf("init button: %w", err)
	}
	return hardware{button: button, led: led}, nil
}

func run(cfg config) error {
	var steps []script.Step
	if cfg.simulate != "" {
		var err error
		if steps, err = script.Parse(cfg.simulate); err != nil {
			return fmt.Errorf("parse simulate script: %w", err)
		}
	}

	sink, closeSink, err := openConsole(cfg)
	if err != nil {
		return fmt.Errorf("init console: %w", err)
	}
	defer closeSink()

	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer hw.Close()

	events := input.NewEvents()
	if err := hw.button.Watch(events.Handler(hw.button)); err != nil {
		return fmt.Errorf("register button interrupt: %w", err)
	}

	pm := power.NewManager(events)
	defer pm.Close()
	cb := control.NewCallback(gpio.Blinker{LED: hw.led, HalfPeriod: cfg.blink}, sink)
	if err := cb.Register(pm); err != nil {
		return fmt.Errorf("register power callback: %w", err)
	}

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.broker, "power-modes")
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:     cfg.poll.Milliseconds(),
		DebounceMs: cfg.debounce.Milliseconds(),
		BlinkMs:    cfg.blink.Milliseconds(),
		PinButton:  cfg.pinButton,
		PinLED:     cfg.pinLED,
		Broker:     cfg.broker,
		HTTPAddr:   cfg.httpAddr,
		Console:    cfg.console,
		Simulated:  cfg.simulate != "",
	})
	tracker.SetSources(pm.Mode, events.Count)
	pm.SetObserver(&reporter{tracker: tracker, publisher: publisher, mqttStatus: mqttStatus})

	if publisher != nil {
		startup := mqtt.SystemEvent{
			Timestamp:  time.Now(),
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	if cfg.httpAddr != "" {
		var presser web.Presser
		if hw.fake != nil {
			presser = hw.fake
		}
		srv := web.New(cfg.httpAddr, tracker, presser)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: button=%d led=%d poll=%v debounce=%v blink=%v console=%s",
		cfg.pinButton, cfg.pinLED, cfg.poll, cfg.debounce, cfg.blink, cfg.console)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if hw.fake != nil {
		go func() {
			if err := script.Run(context.Background(), steps, hw.fake); err != nil {
				log.Printf("simulate: %v", err)
			}
			log.Printf("simulate: script finished")
			// Let the last transition settle before exiting.
			time.Sleep(4 * (cfg.blink*2*logic.DeepSleepBlinks + cfg.poll))
			select {
			case sigCh <- syscall.SIGTERM:
			default:
			}
		}()
	}

	loop := control.NewLoop(events, hw.led, pm, sink, cfg.poll)
	return runLoop(loop, publisher, tracker, mqttStatus, time.Now, sigCh)
}

// runLoop runs the control loop until a signal arrives, then publishes a
// SHUTDOWN event.
func runLoop(loop *control.Loop, publisher mqtt.Publisher, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus, now func() time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var s os.Signal
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("control loop: %w", err)
		}
		return nil
	case s = <-sig:
	}

	log.Printf("received %v, shutting down", s)
	cancel()
	if err := <-done; err != nil {
		log.Printf("control loop: %v", err)
	}

	if publisher == nil {
		return nil
	}

	signalName := signalName(s)
	event := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
	return nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// reporter forwards power manager notifications to the status tracker and
// the MQTT publisher.
type reporter struct {
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
}

func (r *reporter) Checkpoint(mode logic.Mode, cp logic.Checkpoint, name string, st logic.Status) {
	if st == logic.StatusFail {
		log.Printf("checkpoint: %s %s by %s returned %s", mode, cp, name, st)
	}
}

func (r *reporter) Transition(t logic.Transition) {
	log.Printf("transition: mode=%s outcome=%s presses=%d asleep=%v", t.Mode, t.Outcome, t.Presses, t.Asleep())

	if r.tracker != nil {
		r.tracker.RecordTransition(t)
		if r.mqttStatus != nil {
			r.tracker.SetMQTTConnected(r.mqttStatus.IsConnected())
		}
	}
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(t); err != nil {
		// Don't crash on publish failure
		log.Printf("publish error: %v", err)
	}
}

var _ power.Observer = (*reporter)(nil)
