package aggregate

import (
	"time"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/metadata"
)

type (
	// EventApplier applies a change to the state of an aggregate.
	// Apply must be a pure state transition and return a *bankengine.UnknownEventKindError
	// for payloads it does not know.
	EventApplier interface {
		Apply(change *Changed) error
	}

	// Root is the interface every aggregate root implements by embedding BaseRoot
	Root interface {
		EventApplier
		eventSourced
		eventProducer

		// AggregateID returns the aggregate's ID
		AggregateID() ID
	}

	eventSourced interface {
		replay(aggregate EventApplier, history []*Changed) error
	}

	eventProducer interface {
		recordThat(aggregate EventApplier, change *Changed) error
		uncommittedChanges() ([]*Changed, int)
		markCommitted(count int)
		Version() int
	}
)

// RecordChange applies the payload to the aggregate root and records it as an uncommitted change
func RecordChange(aggregateRoot Root, payload interface{}) error {
	aggregateID := aggregateRoot.AggregateID()
	if aggregateID == "" {
		return ErrMissingAggregateID
	}
	if payload == nil {
		return ErrInvalidChangePayload
	}

	return aggregateRoot.recordThat(aggregateRoot, &Changed{
		uuid:        bankengine.GenerateUUID(),
		aggregateID: aggregateID,
		payload:     payload,
		metadata:    metadata.New(),
		createdAt:   time.Now().UTC(),
	})
}
