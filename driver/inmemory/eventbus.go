package inmemory

import (
	"context"
	"sync"

	"github.com/hellofresh/bankengine"
)

var _ bankengine.EventPublisher = &EventBus{}

type (
	// MessageHandler handles a published message
	MessageHandler func(ctx context.Context, msg bankengine.Message) error

	// EventBus delivers published messages synchronously to its subscribers
	EventBus struct {
		mu       sync.RWMutex
		handlers []MessageHandler
		logger   bankengine.Logger
	}
)

// NewEventBus returns a new EventBus without subscribers
func NewEventBus(logger bankengine.Logger) *EventBus {
	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &EventBus{logger: logger}
}

// Subscribe registers a handler for all published messages
func (b *EventBus) Subscribe(handler MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, handler)
}

// Publish hands every message to every subscriber.
// A failing subscriber does not stop delivery to the others, the first error is returned.
func (b *EventBus) Publish(ctx context.Context, messages []bankengine.Message) error {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	var firstErr error
	for _, msg := range messages {
		for _, handler := range handlers {
			if err := handler(ctx, msg); err != nil {
				b.logger.Warn("subscriber failed to handle message", func(e bankengine.LoggerEntry) {
					e.Error(err)
					e.String("message_id", msg.UUID().String())
				})

				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	return firstErr
}
