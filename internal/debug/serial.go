package debug

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// SerialSink writes console lines to a UART.
type SerialSink struct {
	*WriterSink
	port *serial.Port
}

// OpenSerial opens device at baud and returns a console on it.
func OpenSerial(device string, baud int) (*SerialSink, error) {
	if device == "" {
		return nil, fmt.Errorf("serial console: no device")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return &SerialSink{
		WriterSink: NewWriterSink(port),
		port:       port,
	}, nil
}

// Close closes the serial port.
func (s *SerialSink) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
