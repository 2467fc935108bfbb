package projection

import (
	"context"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/matching"
)

// OrderBookProjector projects order events into a Store
type OrderBookProjector struct {
	store  Store
	logger bankengine.Logger
}

// NewOrderBookProjector returns a new OrderBookProjector
func NewOrderBookProjector(store Store, logger bankengine.Logger) (*OrderBookProjector, error) {
	if store == nil {
		return nil, bankengine.InvalidArgumentError("store")
	}
	if logger == nil {
		logger = bankengine.NopLogger
	}

	return &OrderBookProjector{
		store:  store,
		logger: logger,
	}, nil
}

// Handle projects a message, messages that are not order events are ignored.
// It has the signature of inmemory.MessageHandler so it can subscribe to an EventBus.
func (p *OrderBookProjector) Handle(ctx context.Context, msg bankengine.Message) error {
	change, ok := msg.(*aggregate.Changed)
	if !ok {
		return nil
	}
	if aggregateType, ok := change.Metadata().Value(aggregate.TypeKey).(string); ok && aggregateType != order.AggregateType {
		return nil
	}

	p.logger.Debug("projecting order event", func(entry bankengine.LoggerEntry) {
		entry.String("aggregate_id", string(change.AggregateID()))
		entry.Int("version", change.Version())
	})

	switch e := change.Payload().(type) {
	case order.OrderPlaced:
		return p.store.Insert(ctx, matching.BookEntry{
			OrderID:           e.OrderID,
			SecurityID:        e.SecurityID,
			Side:              e.Side,
			Price:             e.Price,
			RemainingQuantity: e.Quantity,
			PlacedAt:          e.OccurredAt,
		}, change.Version())
	case order.OrderExecuted:
		if e.RemainingQuantity == 0 {
			return p.store.Remove(ctx, e.OrderID, change.Version())
		}

		return p.store.Update(ctx, e.OrderID, e.RemainingQuantity, change.Version())
	case order.OrderCancelled:
		return p.store.Remove(ctx, e.OrderID, change.Version())
	}

	return nil
}
