package aggregate

import (
	"context"
	"errors"
	"sort"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/metadata"
)

const (
	// TypeKey is the metadata key to identify the aggregate type
	TypeKey = "_aggregate_type"
	// IDKey is the metadata key to identify the aggregate id
	IDKey = "_aggregate_id"
	// VersionKey is the metadata key to identify the aggregate version
	VersionKey = "_aggregate_version"
)

var (
	// ErrAggregateNotFound occurs when no events are stored for the aggregate
	ErrAggregateNotFound = errors.New("bankengine: aggregate not found")
	// ErrUnsupportedAggregateType occurs when the given aggregateType is not handled by the Repository
	ErrUnsupportedAggregateType = errors.New("bankengine: the given AggregateRoot is of a unsupported type")
	// ErrUnexpectedMessageType occurs when the event store returns a message that is not an *aggregate.Changed
	ErrUnexpectedMessageType = errors.New("bankengine: event store returned an unsupported message type")
)

type (
	// Repository saves and loads aggregate roots of a single type
	Repository struct {
		aggregateType *Type
		eventStore    bankengine.EventStore
		streamName    bankengine.StreamName
		publishers    []bankengine.EventPublisher
		logger        bankengine.Logger
		metrics       bankengine.Metrics
	}

	// RepositoryOption configures a Repository
	RepositoryOption func(*Repository)
)

// WithPublisher adds a publisher that receives every change after it was committed
func WithPublisher(publisher bankengine.EventPublisher) RepositoryOption {
	return func(r *Repository) {
		r.publishers = append(r.publishers, publisher)
	}
}

// WithLogger sets the logger of the repository
func WithLogger(logger bankengine.Logger) RepositoryOption {
	return func(r *Repository) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics of the repository
func WithMetrics(metrics bankengine.Metrics) RepositoryOption {
	return func(r *Repository) {
		r.metrics = metrics
	}
}

// NewRepository instantiates a new Repository
func NewRepository(
	eventStore bankengine.EventStore,
	streamName bankengine.StreamName,
	aggregateType *Type,
	options ...RepositoryOption,
) (*Repository, error) {
	switch {
	case eventStore == nil:
		return nil, bankengine.InvalidArgumentError("eventStore")
	case streamName == "":
		return nil, bankengine.InvalidArgumentError("streamName")
	case aggregateType == nil:
		return nil, bankengine.InvalidArgumentError("aggregateType")
	}

	repository := &Repository{
		eventStore:    eventStore,
		aggregateType: aggregateType,
		streamName:    streamName,
	}
	for _, option := range options {
		option(repository)
	}
	if repository.logger == nil {
		repository.logger = bankengine.NopLogger
	}
	if repository.metrics == nil {
		repository.metrics = bankengine.NopMetrics
	}
	for _, publisher := range repository.publishers {
		if publisher == nil {
			return nil, bankengine.InvalidArgumentError("publisher")
		}
	}

	return repository, nil
}

// Type returns the aggregate type handled by the repository
func (r *Repository) Type() *Type {
	return r.aggregateType
}

// Append stores the changes of an aggregate.
// expectedVersion is the version the aggregate has after the changes are applied,
// so the highest stored version must equal expectedVersion - len(changes).
// After the changes are committed they are handed to every publisher, publish errors are only logged.
func (r *Repository) Append(ctx context.Context, aggregateID ID, changes []*Changed, expectedVersion int) error {
	if len(changes) == 0 {
		return nil
	}
	if aggregateID == "" {
		return ErrMissingAggregateID
	}

	firstVersion := expectedVersion - len(changes) + 1
	if firstVersion < 0 {
		return bankengine.InvalidArgumentError("expectedVersion")
	}

	streamEvents := make([]bankengine.Message, len(changes))
	for i, change := range changes {
		if change.AggregateID() != aggregateID {
			return bankengine.InvalidArgumentError("changes")
		}

		streamEvents[i] = r.enrichMetadata(change.withVersion(firstVersion+i), aggregateID)
	}

	if err := r.eventStore.AppendTo(ctx, r.streamName, streamEvents); err != nil {
		if errors.Is(err, bankengine.ErrConcurrencyConflict) {
			r.metrics.ConcurrencyConflict(r.aggregateType.String())
		}

		return err
	}
	r.metrics.EventsAppended(r.aggregateType.String(), len(streamEvents))

	r.publish(ctx, aggregateID, streamEvents)

	return nil
}

// Load returns all changes of the aggregate ordered by version
func (r *Repository) Load(ctx context.Context, aggregateID ID) ([]*Changed, error) {
	matcher := metadata.NewMatcher()
	matcher = metadata.WithConstraint(matcher, TypeKey, metadata.Equals, r.aggregateType.String())
	matcher = metadata.WithConstraint(matcher, IDKey, metadata.Equals, string(aggregateID))

	streamEvents, err := r.eventStore.Load(ctx, r.streamName, 1, nil, matcher)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := streamEvents.Close(); err != nil {
			r.logger.Warn("failed to close event stream", func(e bankengine.LoggerEntry) {
				e.Error(err)
			})
		}
	}()

	var changes []*Changed
	for streamEvents.Next() {
		msg, _, err := streamEvents.Message()
		if err != nil {
			return nil, err
		}

		change, ok := msg.(*Changed)
		if !ok {
			return nil, ErrUnexpectedMessageType
		}

		changes = append(changes, change)
	}

	if err := streamEvents.Err(); err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return nil, ErrAggregateNotFound
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Version() < changes[j].Version()
	})

	return changes, nil
}

// SaveAggregateRoot stores the uncommitted changes of the aggregate.Root.
// The changes are only cleared from the aggregate when they were stored.
func (r *Repository) SaveAggregateRoot(ctx context.Context, aggregateRoot Root) error {
	if !r.aggregateType.IsImplementedBy(aggregateRoot) {
		return ErrUnsupportedAggregateType
	}

	changes, version := aggregateRoot.uncommittedChanges()
	if len(changes) == 0 {
		return nil
	}

	if err := r.Append(ctx, aggregateRoot.AggregateID(), changes, version); err != nil {
		return err
	}

	aggregateRoot.markCommitted(len(changes))

	return nil
}

// GetAggregateRoot returns the aggregate root rebuilt from its stored changes
func (r *Repository) GetAggregateRoot(ctx context.Context, aggregateID ID) (Root, error) {
	changes, err := r.Load(ctx, aggregateID)
	if err != nil {
		return nil, err
	}

	root := r.aggregateType.CreateInstance()
	if err := root.replay(root, changes); err != nil {
		return nil, err
	}

	return root, nil
}

func (r *Repository) publish(ctx context.Context, aggregateID ID, messages []bankengine.Message) {
	for _, publisher := range r.publishers {
		if err := publisher.Publish(ctx, messages); err != nil {
			r.logger.Error("failed to publish committed events", func(e bankengine.LoggerEntry) {
				e.Error(err)
				e.String("aggregate_type", r.aggregateType.String())
				e.String("aggregate_id", string(aggregateID))
				e.Int("count", len(messages))
			})
		}
	}
}

// enrichMetadata adds the aggregate id, type and version as metadata to the change
func (r *Repository) enrichMetadata(change *Changed, aggregateID ID) *Changed {
	msg := change.WithMetadata(IDKey, string(aggregateID))
	msg = msg.WithMetadata(TypeKey, r.aggregateType.String())
	msg = msg.WithMetadata(VersionKey, change.Version())

	return msg.(*Changed)
}
