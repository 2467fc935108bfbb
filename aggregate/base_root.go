package aggregate

import (
	"sync"
)

var (
	_ eventProducer = &BaseRoot{}
	_ eventSourced  = &BaseRoot{}
)

// BaseRoot is the base struct to be embedded for any aggregate root.
// It owns the uncommitted changes; only Repository.SaveAggregateRoot may read and clear them.
type BaseRoot struct {
	mu sync.Mutex
	// applied is the number of changes applied, the version is applied-1
	applied        int
	recordedEvents []*Changed
}

// Version returns the version of the last applied change or -1 when nothing was applied
func (b *BaseRoot) Version() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.applied - 1
}

func (b *BaseRoot) recordThat(aggregate EventApplier, change *Changed) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	change = change.withVersion(b.applied)
	if err := aggregate.Apply(change); err != nil {
		return err
	}

	b.recordedEvents = append(b.recordedEvents, change)
	b.applied++

	return nil
}

func (b *BaseRoot) uncommittedChanges() ([]*Changed, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	changes := make([]*Changed, len(b.recordedEvents))
	copy(changes, b.recordedEvents)

	return changes, b.applied - 1
}

func (b *BaseRoot) markCommitted(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count >= len(b.recordedEvents) {
		b.recordedEvents = nil
		return
	}

	b.recordedEvents = b.recordedEvents[count:]
}

func (b *BaseRoot) replay(aggregate EventApplier, history []*Changed) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, change := range history {
		if err := aggregate.Apply(change); err != nil {
			return err
		}

		b.applied = change.Version() + 1
	}

	return nil
}
