package mqtt

import (
	"sync"

	"github.com/sweeney/alarm-clock/internal/logic"
)

// FakePublisher records published events for test assertions.
// Read the exported fields only after the code under test has stopped
// publishing, or through Sequence.
type FakePublisher struct {
	mu sync.Mutex

	// Events and Payloads hold the clock events and their JSON.
	Events   []logic.Event
	Payloads [][]byte

	// SystemEvents and SystemPayloads hold the lifecycle events and their JSON.
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Order interleaves both streams as "clock:<event>" and "system:<event>"
	// in the order they were accepted.
	Order []string

	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
	Pending   int // returned by Buffered
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the clock event.
func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Order = append(f.Order, "clock:"+string(event.Type))
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Order = append(f.Order, "system:"+event.Event)
	return nil
}

// Sequence returns a copy of Order, safe while publishing continues.
func (f *FakePublisher) Sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Order...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected returns Connected.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Buffered returns Pending.
func (f *FakePublisher) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pending
}

// Reset clears everything recorded and all injected behaviour.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events, f.Payloads = nil, nil
	f.SystemEvents, f.SystemPayloads = nil, nil
	f.Order = nil
	f.PublishError, f.PublishSystemError = nil, nil
	f.Closed, f.Connected = false, false
	f.Pending = 0
}
