package money

import (
	"context"

	"go.uber.org/atomic"
)

// Sequence hands out unique, increasing account numbers
type Sequence interface {
	Next(ctx context.Context) (uint64, error)
}

var _ Sequence = &AtomicSequence{}

// AtomicSequence is an in-process Sequence safe for concurrent use
type AtomicSequence struct {
	value *atomic.Uint64
}

// NewAtomicSequence returns a sequence whose first value is start + 1
func NewAtomicSequence(start uint64) *AtomicSequence {
	return &AtomicSequence{value: atomic.NewUint64(start)}
}

// Next returns the next value of the sequence
func (s *AtomicSequence) Next(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return s.value.Inc(), nil
}
