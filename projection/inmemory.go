package projection

import (
	"context"
	"sort"
	"sync"

	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/matching"
)

var _ Store = &InMemoryOrderBook{}

type (
	// InMemoryOrderBook is a Store kept in memory
	InMemoryOrderBook struct {
		mu      sync.RWMutex
		entries map[aggregate.ID]*bookEntry
	}

	bookEntry struct {
		matching.BookEntry

		version int
		pending bool
	}
)

// NewInMemoryOrderBook returns an empty InMemoryOrderBook
func NewInMemoryOrderBook() *InMemoryOrderBook {
	return &InMemoryOrderBook{
		entries: map[aggregate.ID]*bookEntry{},
	}
}

// PendingOrders returns the pending orders in price-time priority
func (b *InMemoryOrderBook) PendingOrders(_ context.Context, securityID string, side order.Side) ([]matching.BookEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var entries []matching.BookEntry
	for _, e := range b.entries {
		if e.pending && e.RemainingQuantity > 0 && e.SecurityID == securityID && e.Side == side {
			entries = append(entries, e.BookEntry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if matching.BetterThan(entries[i], entries[j]) {
			return true
		}
		if matching.BetterThan(entries[j], entries[i]) {
			return false
		}

		return entries[i].OrderID < entries[j].OrderID
	})

	return entries, nil
}

// Insert adds a pending order
func (b *InMemoryOrderBook) Insert(_ context.Context, entry matching.BookEntry, version int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, found := b.entries[entry.OrderID]; found {
		return nil
	}

	b.entries[entry.OrderID] = &bookEntry{
		BookEntry: entry,
		version:   version,
		pending:   true,
	}

	return nil
}

// Update sets the remaining quantity of an order
func (b *InMemoryOrderBook) Update(_ context.Context, orderID aggregate.ID, remainingQuantity int64, version int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, found := b.entries[orderID]
	if !found || e.version >= version {
		return nil
	}

	e.RemainingQuantity = remainingQuantity
	e.pending = remainingQuantity > 0
	e.version = version

	return nil
}

// Remove takes an order out of the book
func (b *InMemoryOrderBook) Remove(_ context.Context, orderID aggregate.ID, version int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, found := b.entries[orderID]
	if !found || e.version >= version {
		return nil
	}

	e.pending = false
	e.version = version

	return nil
}
