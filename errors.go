package bankengine

import (
	"errors"
	"fmt"
)

var (
	// ErrConcurrencyConflict occurs when the stored version of an aggregate differs from the expected version
	ErrConcurrencyConflict = errors.New("bankengine: concurrency conflict")
	// ErrInvalidState occurs when a command is not allowed in the current state of an aggregate
	ErrInvalidState = errors.New("bankengine: invalid state")
)

// InvalidArgumentError indicates that the caller is in error and passed an incorrect value.
type InvalidArgumentError string

func (i InvalidArgumentError) Error() string {
	return "bankengine: invalid argument: " + string(i)
}

// ConcurrencyConflictError reports the expected and actual highest stored version of an aggregate.
// A version of -1 means no event was stored.
type ConcurrencyConflictError struct {
	AggregateType string
	AggregateID   string
	Expected      int
	Actual        int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf(
		"bankengine: concurrency conflict on %s %s: expected version %d but found %d",
		e.AggregateType,
		e.AggregateID,
		e.Expected,
		e.Actual,
	)
}

// Is allows errors.Is(err, ErrConcurrencyConflict)
func (e *ConcurrencyConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

// ErrUnknownEventKind occurs when an event kind is not known to an aggregate or the payload registry
var ErrUnknownEventKind = errors.New("bankengine: unknown event kind")

// UnknownEventKindError indicates schema drift between the stored events and the code.
// It is never recoverable and must be propagated.
type UnknownEventKindError struct {
	Kind string
}

func (e *UnknownEventKindError) Error() string {
	return "bankengine: unknown event kind: " + e.Kind
}

// Is allows errors.Is(err, ErrUnknownEventKind)
func (e *UnknownEventKindError) Is(target error) bool {
	return target == ErrUnknownEventKind
}

// NewUnknownEventKindError returns an UnknownEventKindError for the payload type
func NewUnknownEventKindError(payload interface{}) error {
	return &UnknownEventKindError{Kind: fmt.Sprintf("%T", payload)}
}
