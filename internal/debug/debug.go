// Package debug provides the line-oriented console used for device status
// messages. The console is chosen at runtime; the default discards output.
package debug

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Sink receives one status line per call.
type Sink interface {
	Printf(format string, args ...any)
}

// Nop discards every line.
type Nop struct{}

// Printf does nothing.
func (Nop) Printf(string, ...any) {}

// LogSink writes lines through a *log.Logger.
type LogSink struct {
	l *log.Logger
}

// NewLogSink returns a Sink writing to l.
func NewLogSink(l *log.Logger) *LogSink {
	return &LogSink{l: l}
}

// Printf writes one line.
func (s *LogSink) Printf(format string, args ...any) {
	s.l.Printf(format, args...)
}

// WriterSink writes CRLF-terminated lines to a terminal-style stream.
// Write errors are logged once and then suppressed until a write succeeds.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	failed bool
}

// NewWriterSink returns a Sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Printf writes one line terminated by "\r\n".
func (s *WriterSink) Printf(format string, args ...any) {
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\r\n") + "\r\n"
	s.write(line)
}

func (s *WriterSink) write(str string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, str); err != nil {
		if !s.failed {
			log.Printf("debug: console write failed: %v", err)
			s.failed = true
		}
		return
	}
	s.failed = false
}

// ClearScreen is the ANSI sequence that clears a terminal and homes the cursor.
const ClearScreen = "\x1b[2J\x1b[;H"

// Banner clears the terminal and prints the application title.
func (s *WriterSink) Banner(title string) {
	s.write(ClearScreen)
	s.write("****************** " + title + " ****************** \r\n\n")
}

// Recorder keeps lines in memory for test assertions.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Printf records one line.
func (r *Recorder) Printf(format string, args ...any) {
	r.mu.Lock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
