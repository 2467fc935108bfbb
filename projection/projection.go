// Package projection maintains the order book read model used by the matching engine.
// The read model is an index only: it may lag behind the event store and is never used to
// decide on money or share movements.
package projection

import (
	"context"

	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/matching"
)

// Store persists order book entries.
// Every write carries the aggregate version of the event it projects, writes with a version that
// is not newer than the stored one are ignored so events can be delivered more than once.
type Store interface {
	matching.OrderBook

	// Insert adds a pending order
	Insert(ctx context.Context, entry matching.BookEntry, version int) error
	// Update sets the remaining quantity of an order
	Update(ctx context.Context, orderID aggregate.ID, remainingQuantity int64, version int) error
	// Remove takes an order out of the book
	Remove(ctx context.Context, orderID aggregate.ID, version int) error
}
