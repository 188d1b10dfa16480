package mqtt

import "github.com/sweeney/alarm-clock/internal/logic"

// NopPublisher drops everything. Used when no broker is configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(logic.Event) error { return nil }

// PublishSystem discards the event.
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// IsConnected always reports false.
func (NopPublisher) IsConnected() bool { return false }

// Buffered always reports zero.
func (NopPublisher) Buffered() int { return 0 }
