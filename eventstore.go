package bankengine

import (
	"context"

	"github.com/hellofresh/bankengine/metadata"
)

type (
	// StreamName is the name of an event stream
	StreamName string

	// EventStream is an iterator over the messages loaded from an EventStore
	EventStream interface {
		// Next prepares the next result for reading.
		// It returns true on success, or false if there is no next result or an error occurred.
		Next() bool

		// Err returns the error, if any, that was encountered during iteration.
		Err() error

		// Close closes the EventStream, preventing further enumeration.
		Close() error

		// Message returns the current message and its global number
		Message() (Message, int64, error)
	}

	// ReadOnlyEventStore an event store that can only be read
	ReadOnlyEventStore interface {
		// HasStream returns true if the stream exists
		HasStream(ctx context.Context, streamName StreamName) bool

		// Load returns the messages of the stream with a number >= fromNumber that match the metadataMatcher.
		// A nil count loads all messages.
		Load(ctx context.Context, streamName StreamName, fromNumber int64, count *uint, metadataMatcher metadata.Matcher) (EventStream, error)
	}

	// EventStore an append-only event log
	EventStore interface {
		ReadOnlyEventStore

		// Create creates an event stream
		Create(ctx context.Context, streamName StreamName) error

		// AppendTo appends the messages atomically.
		// Messages carrying aggregate metadata are checked for version contiguity per aggregate,
		// a mismatch returns a *ConcurrencyConflictError and nothing is stored.
		AppendTo(ctx context.Context, streamName StreamName, streamEvents []Message) error
	}
)

// ReadEventStream reads the entire event stream and returns its content
func ReadEventStream(stream EventStream) ([]Message, []int64, error) {
	var messages []Message
	var messageNumbers []int64
	for stream.Next() {
		msg, msgNumber, err := stream.Message()
		if err != nil {
			return nil, nil, err
		}

		messages = append(messages, msg)
		messageNumbers = append(messageNumbers, msgNumber)
	}

	if err := stream.Err(); err != nil {
		return nil, nil, err
	}

	return messages, messageNumbers, nil
}
