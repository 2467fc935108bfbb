package order

import (
	"time"

	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/money"
)

// Registered event names
const (
	OrderPlacedName    = "OrderPlaced"
	OrderExecutedName  = "OrderExecuted"
	OrderCancelledName = "OrderCancelled"
)

type (
	// Event is implemented by the events of an order only
	Event interface {
		orderEvent()
	}

	// OrderPlaced a limit order was placed
	OrderPlaced struct {
		OrderID     aggregate.ID `json:"order_id"`
		UserID      string       `json:"user_id"`
		AccountID   aggregate.ID `json:"account_id"`
		PortfolioID aggregate.ID `json:"portfolio_id"`
		SecurityID  string       `json:"security_id"`
		Side        Side         `json:"side"`
		Quantity    int64        `json:"quantity"`
		Price       money.Money  `json:"price"`
		Fee         money.Money  `json:"fee"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}

	// OrderExecuted (part of) the order was executed against MatchedOrderID.
	// Fee is the fixed fee applied to this execution
	OrderExecuted struct {
		OrderID           aggregate.ID `json:"order_id"`
		MatchedOrderID    aggregate.ID `json:"matched_order_id"`
		Quantity          int64        `json:"quantity"`
		Price             money.Money  `json:"price"`
		Fee               money.Money  `json:"fee"`
		RemainingQuantity int64        `json:"remaining_quantity"`
		FilledAmount      money.Money  `json:"filled_amount"`
		OccurredAt        time.Time    `json:"occurred_at"`
	}

	// OrderCancelled the order was cancelled before it was filled
	OrderCancelled struct {
		OrderID           aggregate.ID `json:"order_id"`
		Reason            string       `json:"reason"`
		RemainingQuantity int64        `json:"remaining_quantity"`
		OccurredAt        time.Time    `json:"occurred_at"`
	}
)

func (OrderPlaced) orderEvent()    {}
func (OrderExecuted) orderEvent()  {}
func (OrderCancelled) orderEvent() {}
