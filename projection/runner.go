package projection

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/metadata"
)

// Runner catches the projector up with the event stream every time a listener is notified
type Runner struct {
	mu sync.Mutex

	eventStore bankengine.ReadOnlyEventStore
	streamName bankengine.StreamName
	projector  *OrderBookProjector
	logger     bankengine.Logger

	// position is the number of the last projected message
	position int64
}

// NewRunner returns a new Runner starting at the beginning of the stream
func NewRunner(
	eventStore bankengine.ReadOnlyEventStore,
	streamName bankengine.StreamName,
	projector *OrderBookProjector,
	logger bankengine.Logger,
) (*Runner, error) {
	switch {
	case eventStore == nil:
		return nil, bankengine.InvalidArgumentError("eventStore")
	case streamName == "":
		return nil, bankengine.InvalidArgumentError("streamName")
	case projector == nil:
		return nil, bankengine.InvalidArgumentError("projector")
	}
	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &Runner{
		eventStore: eventStore,
		streamName: streamName,
		projector:  projector,
		logger:     logger,
	}, nil
}

// Run projects the stream every time the listener is notified until the context is done
func (r *Runner) Run(ctx context.Context, listener sql.Listener) error {
	return listener.Listen(ctx, r.Trigger)
}

// Position returns the number of the last projected message
func (r *Runner) Position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.position
}

// Trigger projects all order events appended after the current position.
// The notification only signals that something changed, it may be nil.
func (r *Runner) Trigger(ctx context.Context, notification *sql.ProjectionNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification != nil {
		r.logger.Debug("received projection notification", func(e bankengine.LoggerEntry) {
			e.Int64("no", notification.No)
			e.String("event_name", notification.EventName)
		})
	}

	matcher := metadata.WithConstraint(metadata.NewMatcher(), aggregate.TypeKey, metadata.Equals, order.AggregateType)
	stream, err := r.eventStore.Load(ctx, r.streamName, r.position+1, nil, matcher)
	if err != nil {
		return err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			r.logger.Warn("failed to close the event stream", func(e bankengine.LoggerEntry) {
				e.Error(err)
			})
		}
	}()

	for stream.Next() {
		if ctx.Err() != nil {
			return nil
		}

		msg, number, err := stream.Message()
		if err != nil {
			return err
		}

		if err := r.projector.Handle(ctx, msg); err != nil {
			return errors.Wrapf(err, "failed to project message %d", number)
		}
		r.position = number
	}

	return stream.Err()
}
