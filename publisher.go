package bankengine

import "context"

type (
	// EventPublisher delivers committed messages to subscribers.
	// Delivery is at-least-once so subscribers must be idempotent.
	EventPublisher interface {
		Publish(ctx context.Context, messages []Message) error
	}

	// EventPublisherFunc adapts a function to the EventPublisher interface
	EventPublisherFunc func(ctx context.Context, messages []Message) error
)

// Publish calls f(ctx, messages)
func (f EventPublisherFunc) Publish(ctx context.Context, messages []Message) error {
	return f(ctx, messages)
}
