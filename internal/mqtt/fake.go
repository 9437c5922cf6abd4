package mqtt

import (
	"sync"

	"github.com/sweeney/power-modes/internal/logic"
)

// Message is one message accepted by a FakePublisher.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool

	// Exactly one of Transition and System is set.
	Transition *logic.Transition
	System     *SystemEvent
}

// FakePublisher records published messages for test assertions. It is safe
// for concurrent use, so tests can inspect it while a control loop publishes.
type FakePublisher struct {
	// PublishError, if set, is returned by Publish.
	PublishError error

	// PublishSystemError, if set, is returned by PublishSystem.
	PublishSystemError error

	// Connected controls the return value of IsConnected.
	Connected bool

	mu     sync.Mutex
	sent   []Message
	closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the transition on Topic.
func (f *FakePublisher) Publish(t logic.Transition) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(t)
	if err != nil {
		return err
	}
	f.record(Message{Topic: Topic, Payload: payload, Transition: &t})
	return nil
}

// PublishSystem records the event on TopicSystem.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.record(Message{Topic: TopicSystem, Payload: payload, Retained: event.Retained, System: &event})
	return nil
}

func (f *FakePublisher) record(m Message) {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
}

// Messages returns every recorded message in publish order.
func (f *FakePublisher) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

// Transitions returns the recorded transitions in publish order.
func (f *FakePublisher) Transitions() []logic.Transition {
	var out []logic.Transition
	for _, m := range f.Messages() {
		if m.Transition != nil {
			out = append(out, *m.Transition)
		}
	}
	return out
}

// SystemEvents returns the recorded system events in publish order.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	var out []SystemEvent
	for _, m := range f.Messages() {
		if m.System != nil {
			out = append(out, *m.System)
		}
	}
	return out
}

// Payloads returns the payloads recorded on topic.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Messages() {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	f.sent = nil
	f.closed = false
	f.mu.Unlock()
}
