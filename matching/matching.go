// Package matching matches incoming limit orders against the pending orders of the opposite side
// with price-time priority. Executions happen at the price of the resting (maker) order.
package matching

import (
	"context"
	"time"

	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/money"
)

type (
	// BookEntry is a pending order as indexed by the read model.
	// It may be stale, the event store is the source of truth.
	BookEntry struct {
		OrderID           aggregate.ID
		SecurityID        string
		Side              order.Side
		Price             money.Money
		RemainingQuantity int64
		PlacedAt          time.Time
	}

	// OrderBook returns the pending orders of a security and side,
	// best price first (lowest SELL, highest BUY) and earliest placed first within a price
	OrderBook interface {
		PendingOrders(ctx context.Context, securityID string, side order.Side) ([]BookEntry, error)
	}

	// Orders loads and stores order aggregates
	Orders interface {
		Get(ctx context.Context, id aggregate.ID) (*order.Order, error)
		Save(ctx context.Context, o *order.Order) error
	}

	// Settler moves money and shares once both sides of an execution are persisted
	Settler interface {
		Settle(ctx context.Context, execution Execution) error
	}

	// SettlerFunc is an adapter to allow the use of ordinary functions as Settler
	SettlerFunc func(ctx context.Context, execution Execution) error

	// Execution is a match of two orders.
	// BuyOrder and SellOrder reflect the state after the execution was persisted.
	Execution struct {
		SecurityID string
		BuyOrder   *order.Order
		SellOrder  *order.Order
		Quantity   int64
		Price      money.Money
		// Fee is the fee charged to the seller by this execution
		Fee   money.Money
		Maker aggregate.ID
		Taker aggregate.ID
	}
)

// Settle calls f(ctx, execution)
func (f SettlerFunc) Settle(ctx context.Context, execution Execution) error {
	return f(ctx, execution)
}

// BetterThan returns true when entry a has priority over entry b
func BetterThan(a, b BookEntry) bool {
	if !a.Price.Equal(b.Price) {
		if a.Side == order.Buy {
			return a.Price.GreaterThan(b.Price)
		}

		return a.Price.LessThan(b.Price)
	}

	return a.PlacedAt.Before(b.PlacedAt)
}
