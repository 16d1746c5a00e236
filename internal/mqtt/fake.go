package mqtt

import (
	"github.com/sweeney/inputd/internal/event"
)

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	// Events contains all input events that were published.
	Events []event.Event

	// Payloads contains the JSON payloads of published input events.
	Payloads [][]byte

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads of lifecycle events.
	SystemPayloads [][]byte

	// PublishError, if set, is returned by PublishEvent.
	PublishError error

	// PublishSystemError, if set, is returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishEvent records the input event.
func (f *FakePublisher) PublishEvent(ev event.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, ev)

	payload, err := FormatEventPayload(ev)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(ev SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, ev)

	payload, err := FormatSystemPayload(ev)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
