package interfaces

// EventPublisher emits credit lifecycle events to downstream consumers
// (reconciliation, notifications). Implementations must not block the
// request path longer than a single broker write.
type EventPublisher interface {
	Publish(topic string, event any) error
}
