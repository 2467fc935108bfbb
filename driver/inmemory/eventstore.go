package inmemory

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/internal/versioning"
	"github.com/hellofresh/bankengine/metadata"
)

var (
	// ErrStreamExistsAlready occurs when create is called for an already created stream
	ErrStreamExistsAlready = errors.New("bankengine: stream already exists")
	// ErrStreamNotFound occurs when an unknown streamName is provided
	ErrStreamNotFound = errors.New("bankengine: unknown stream")
	// ErrNilMessage occurs when a message that is being appended to a stream is nil or a reference to nil
	ErrNilMessage = errors.New("bankengine: nil is not a valid message")

	_ bankengine.EventStore = &EventStore{}
)

type stream struct {
	messages []bankengine.Message
	// versions holds the highest stored version per aggregate
	versions map[versioning.Key]int
}

// EventStore a in memory event store implementation
type EventStore struct {
	mu sync.RWMutex

	logger  bankengine.Logger
	streams map[bankengine.StreamName]*stream
}

// NewEventStore return a new inmemory.EventStore
func NewEventStore(logger bankengine.Logger) *EventStore {
	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &EventStore{
		logger:  logger,
		streams: map[bankengine.StreamName]*stream{},
	}
}

// Create creates a event stream
func (i *EventStore) Create(_ context.Context, streamName bankengine.StreamName) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, found := i.streams[streamName]; found {
		return ErrStreamExistsAlready
	}

	i.streams[streamName] = &stream{versions: map[versioning.Key]int{}}

	return nil
}

// HasStream returns true if the stream exists
func (i *EventStore) HasStream(_ context.Context, streamName bankengine.StreamName) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	_, found := i.streams[streamName]

	return found
}

// Load returns the messages of the stream matching the provided conditions
func (i *EventStore) Load(
	_ context.Context,
	streamName bankengine.StreamName,
	fromNumber int64,
	count *uint,
	matcher metadata.Matcher,
) (bankengine.EventStream, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s, knownStream := i.streams[streamName]
	if !knownStream {
		return nil, ErrStreamNotFound
	}

	var messages []bankengine.Message
	var messageNumbers []int64
	var found uint

	for idx, msg := range s.messages {
		messageNumber := int64(idx + 1)
		if messageNumber < fromNumber {
			continue
		}

		matches, err := metadata.Matches(matcher, msg.Metadata())
		if err != nil {
			i.logger.Warn("metadata constraint failed with error", func(e bankengine.LoggerEntry) {
				e.Error(err)
				e.Int64("number", messageNumber)
			})
			continue
		}
		if !matches {
			continue
		}

		found++
		messages = append(messages, msg)
		messageNumbers = append(messageNumbers, messageNumber)
		if count != nil && found == *count {
			break
		}
	}

	return NewEventStream(messages, messageNumbers)
}

// AppendTo appends the provided messages to the stream.
// The highest stored version of every aggregate in the batch must directly precede the first appended version.
func (i *EventStore) AppendTo(_ context.Context, streamName bankengine.StreamName, streamEvents []bankengine.Message) error {
	for _, msg := range streamEvents {
		if msg == nil || reflect.ValueOf(msg).IsNil() {
			return ErrNilMessage
		}
	}

	batches, err := versioning.Group(streamEvents)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	s, knownStream := i.streams[streamName]
	if !knownStream {
		return ErrStreamNotFound
	}

	for _, batch := range batches {
		actual, found := s.versions[batch.Key]
		if !found {
			actual = -1
		}

		if actual != batch.First-1 {
			return batch.Conflict(actual)
		}
	}

	for _, batch := range batches {
		s.versions[batch.Key] = batch.Last
	}
	s.messages = append(s.messages, streamEvents...)

	return nil
}
