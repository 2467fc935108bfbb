package matching

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/domain/order"
)

type (
	// Engine matches an incoming order against the order book
	Engine struct {
		orders  Orders
		book    OrderBook
		settler Settler
		logger  bankengine.Logger
		metrics bankengine.Metrics
	}

	// Option configures an Engine
	Option func(*Engine)
)

// WithLogger sets the logger of the engine
func WithLogger(logger bankengine.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics of the engine
func WithMetrics(metrics bankengine.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// NewEngine returns a new Engine
func NewEngine(orders Orders, book OrderBook, settler Settler, options ...Option) (*Engine, error) {
	switch {
	case orders == nil:
		return nil, bankengine.InvalidArgumentError("orders")
	case book == nil:
		return nil, bankengine.InvalidArgumentError("book")
	case settler == nil:
		return nil, bankengine.InvalidArgumentError("settler")
	}

	e := &Engine{
		orders:  orders,
		book:    book,
		settler: settler,
	}
	for _, option := range options {
		option(e)
	}
	if e.logger == nil {
		e.logger = bankengine.NopLogger
	}
	if e.metrics == nil {
		e.metrics = bankengine.NopMetrics
	}

	return e, nil
}

// Match executes the persisted incoming order against the pending orders of the opposite side
// and returns the number of executions.
//
// Every candidate is reloaded from the event store before it is executed, candidates that are
// no longer pending or no longer cross are skipped. Failed executions are logged and skipped.
// When the incoming order cannot be persisted it is reloaded from the event store,
// callers should reload the incoming order to observe its final state.
func (e *Engine) Match(ctx context.Context, incoming *order.Order) (int, error) {
	if incoming == nil {
		return 0, bankengine.InvalidArgumentError("incoming")
	}
	if !incoming.IsPending() {
		return 0, nil
	}

	securityID := incoming.SecurityID()
	logger := e.logger.WithFields(func(entry bankengine.LoggerEntry) {
		entry.String("order_id", string(incoming.AggregateID()))
		entry.String("security_id", securityID)
	})

	executions := 0
	startedAt := time.Now()
	defer func() {
		e.metrics.MatchFinished(securityID, executions, time.Since(startedAt))
	}()

	entries, err := e.book.PendingOrders(ctx, securityID, incoming.Side().Opposite())
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if !incoming.IsPending() {
			break
		}
		if err := ctx.Err(); err != nil {
			return executions, err
		}
		if entry.OrderID == incoming.AggregateID() {
			continue
		}
		// entries are sorted best price first so nothing after this one crosses either
		if !incoming.Crosses(entry.Price) {
			break
		}

		candidate, err := e.orders.Get(ctx, entry.OrderID)
		if err != nil {
			logger.Warn("failed to load matching candidate", func(le bankengine.LoggerEntry) {
				le.Error(err)
				le.String("candidate_id", string(entry.OrderID))
			})
			continue
		}
		if !candidate.IsPending() ||
			candidate.SecurityID() != securityID ||
			candidate.Side() != incoming.Side().Opposite() ||
			!incoming.Crosses(candidate.Price()) {
			logger.Debug("skipping stale matching candidate", func(le bankengine.LoggerEntry) {
				le.String("candidate_id", string(candidate.AggregateID()))
				le.String("candidate_status", string(candidate.Status()))
			})
			continue
		}

		execution, dirty, err := e.execute(ctx, incoming, candidate)
		if err != nil {
			e.metrics.ExecutionFailed(securityID)
			logger.Error("failed to execute orders", func(le bankengine.LoggerEntry) {
				le.Error(err)
				le.String("candidate_id", string(candidate.AggregateID()))
			})

			if dirty {
				if incoming, err = e.orders.Get(ctx, incoming.AggregateID()); err != nil {
					return executions, errors.Wrap(err, "failed to reload incoming order")
				}
			}
			continue
		}
		executions++

		if err := e.settler.Settle(ctx, execution); err != nil {
			e.metrics.ExecutionFailed(securityID)
			logger.Error("failed to settle execution", func(le bankengine.LoggerEntry) {
				le.Error(err)
				le.String("buy_order_id", string(execution.BuyOrder.AggregateID()))
				le.String("sell_order_id", string(execution.SellOrder.AggregateID()))
				le.Int64("quantity", execution.Quantity)
				le.String("price", execution.Price.String())
			})
		}
	}

	return executions, nil
}

// execute executes and persists both sides, the candidate first.
// The candidate is the order other writers compete for (cancellations, other matching passes),
// storing it first means a conflict leaves neither side executed.
// dirty is true when the incoming order holds an execution that was not stored.
func (e *Engine) execute(ctx context.Context, incoming, candidate *order.Order) (execution Execution, dirty bool, err error) {
	quantity := incoming.RemainingQuantity()
	if candidate.RemainingQuantity() < quantity {
		quantity = candidate.RemainingQuantity()
	}
	price := candidate.Price()

	if err := incoming.Execute(candidate.AggregateID(), quantity, price); err != nil {
		return Execution{}, false, err
	}
	if err := candidate.Execute(incoming.AggregateID(), quantity, price); err != nil {
		return Execution{}, true, err
	}

	if err := e.orders.Save(ctx, candidate); err != nil {
		return Execution{}, true, err
	}
	if err := e.orders.Save(ctx, incoming); err != nil {
		e.logger.Error("candidate order executed without its counterpart", func(le bankengine.LoggerEntry) {
			le.String("order_id", string(incoming.AggregateID()))
			le.String("candidate_id", string(candidate.AggregateID()))
			le.Int64("quantity", quantity)
		})
		return Execution{}, true, err
	}

	execution = Execution{
		SecurityID: incoming.SecurityID(),
		Quantity:   quantity,
		Price:      price,
		Maker:      candidate.AggregateID(),
		Taker:      incoming.AggregateID(),
	}
	if incoming.Side() == order.Buy {
		execution.BuyOrder, execution.SellOrder = incoming, candidate
	} else {
		execution.BuyOrder, execution.SellOrder = candidate, incoming
	}
	execution.Fee = execution.SellOrder.Fee()

	return execution, false, nil
}
