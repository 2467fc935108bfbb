package inmemory

import (
	"errors"

	"github.com/hellofresh/bankengine"
)

var (
	// ErrMessageNumberCountMismatch occurs when every message does not have exactly one number
	ErrMessageNumberCountMismatch = errors.New("bankengine: provided messages and messageNumbers do not match")
	// ErrEventStreamClosed occurs when a drained or closed stream is read
	ErrEventStreamClosed = errors.New("bankengine: no more messages")
	// ErrEventStreamNotStarted occurs when Message is called before Next
	ErrEventStreamNotStarted = errors.New("bankengine: eventStream Message called without calling Next")

	_ bankengine.EventStream = &EventStream{}
)

type numberedMessage struct {
	msg    bankengine.Message
	number int64
}

// EventStream iterates over a snapshot of loaded messages
type EventStream struct {
	pending []numberedMessage
	current *numberedMessage
	done    bool
}

// NewEventStream pairs messages with their global numbers
func NewEventStream(messages []bankengine.Message, messageNumbers []int64) (*EventStream, error) {
	if len(messages) != len(messageNumbers) {
		return nil, ErrMessageNumberCountMismatch
	}

	pending := make([]numberedMessage, len(messages))
	for i, msg := range messages {
		pending[i] = numberedMessage{msg: msg, number: messageNumbers[i]}
	}

	return &EventStream{pending: pending}, nil
}

// Next advances to the following message and closes the stream once none remain
func (e *EventStream) Next() bool {
	if e.done || len(e.pending) == 0 {
		_ = e.Close()
		return false
	}

	e.current = &e.pending[0]
	e.pending = e.pending[1:]

	return true
}

// Err is always nil, the messages are already in memory
func (e *EventStream) Err() error {
	return nil
}

func (e *EventStream) Close() error {
	e.done = true
	e.pending = nil
	e.current = nil

	return nil
}

func (e *EventStream) Message() (bankengine.Message, int64, error) {
	switch {
	case e.done:
		return nil, 0, ErrEventStreamClosed
	case e.current == nil:
		return nil, 0, ErrEventStreamNotStarted
	}

	return e.current.msg, e.current.number, nil
}
