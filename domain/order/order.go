package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/money"
)

// AggregateType is the name under which orders are stored
const AggregateType = "order"

// Order sides
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Order statuses
const (
	Pending   Status = "PENDING"
	Executed  Status = "EXECUTED"
	Cancelled Status = "CANCELLED"
)

var (
	// ErrInvalidState occurs when a command is not allowed in the current status of the order
	ErrInvalidState = fmt.Errorf("order: %w", bankengine.ErrInvalidState)
	// ErrInvalidSide occurs when the side is neither BUY nor SELL
	ErrInvalidSide = errors.New("bankengine: order side must be BUY or SELL")
	// ErrInvalidQuantity occurs when a quantity is not positive or exceeds the remaining quantity
	ErrInvalidQuantity = errors.New("bankengine: invalid order quantity")
	// ErrPriceNotCrossing occurs when an execution price is worse than the limit price
	ErrPriceNotCrossing = errors.New("bankengine: execution price does not satisfy the limit price")

	_ aggregate.Root = &Order{}
)

type (
	// Side is the side of the order book an order is placed on
	Side string

	// Status is the lifecycle status of an order
	Status string

	// Order is a limit order to buy or sell a quantity of a security
	Order struct {
		aggregate.BaseRoot

		id                aggregate.ID
		userID            string
		accountID         aggregate.ID
		portfolioID       aggregate.ID
		securityID        string
		side              Side
		quantity          int64
		price             money.Money
		fee               money.Money
		status            Status
		remainingQuantity int64
		filledAmount      money.Money
		placedAt          time.Time
	}
)

// IsValid returns true for BUY and SELL
func (s Side) IsValid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the side orders of this side are matched against
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}

	return Buy
}

// New returns an empty order used to replay history
func New() *Order {
	return &Order{}
}

// Place places a new PENDING limit order
func Place(
	id aggregate.ID,
	userID string,
	accountID aggregate.ID,
	portfolioID aggregate.ID,
	securityID string,
	side Side,
	quantity int64,
	price money.Money,
	fee money.Money,
) (*Order, error) {
	switch {
	case id == "":
		return nil, bankengine.InvalidArgumentError("id")
	case strings.TrimSpace(userID) == "":
		return nil, bankengine.InvalidArgumentError("userID")
	case accountID == "":
		return nil, bankengine.InvalidArgumentError("accountID")
	case portfolioID == "":
		return nil, bankengine.InvalidArgumentError("portfolioID")
	case strings.TrimSpace(securityID) == "":
		return nil, bankengine.InvalidArgumentError("securityID")
	case !side.IsValid():
		return nil, ErrInvalidSide
	case quantity <= 0:
		return nil, ErrInvalidQuantity
	case !price.IsPositive():
		return nil, bankengine.InvalidArgumentError("price")
	case fee.Currency() != price.Currency():
		return nil, money.ErrCurrencyMismatch
	}

	o := &Order{id: id}
	if err := aggregate.RecordChange(o, OrderPlaced{
		OrderID:     id,
		UserID:      userID,
		AccountID:   accountID,
		PortfolioID: portfolioID,
		SecurityID:  securityID,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		Fee:         fee,
		OccurredAt:  time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	return o, nil
}

// AggregateID returns the order's aggregate.ID
func (o *Order) AggregateID() aggregate.ID {
	return o.id
}

// UserID returns the user that placed the order
func (o *Order) UserID() string {
	return o.userID
}

// AccountID returns the cash account backing the order
func (o *Order) AccountID() aggregate.ID {
	return o.accountID
}

// PortfolioID returns the portfolio holding the securities of the user
func (o *Order) PortfolioID() aggregate.ID {
	return o.portfolioID
}

// SecurityID returns the traded security
func (o *Order) SecurityID() string {
	return o.securityID
}

// Side returns BUY or SELL
func (o *Order) Side() Side {
	return o.side
}

// Quantity returns the quantity the order was placed with
func (o *Order) Quantity() int64 {
	return o.quantity
}

// Price returns the limit price per share
func (o *Order) Price() money.Money {
	return o.price
}

// Fee returns the fixed fee of every execution.
// A BUY reserves it once at placement, a SELL pays it out of the proceeds of each execution.
func (o *Order) Fee() money.Money {
	return o.fee
}

// Status returns the lifecycle status
func (o *Order) Status() Status {
	return o.status
}

// RemainingQuantity returns the quantity that is not executed yet
func (o *Order) RemainingQuantity() int64 {
	return o.remainingQuantity
}

// FilledAmount returns the sum of quantity × price of all executions
func (o *Order) FilledAmount() money.Money {
	return o.filledAmount
}

// PlacedAt returns when the order was placed
func (o *Order) PlacedAt() time.Time {
	return o.placedAt
}

// IsPending returns true while the order can be executed or cancelled
func (o *Order) IsPending() bool {
	return o.status == Pending
}

// Crosses returns true when the price is acceptable for the order,
// for a BUY at most the limit price and for a SELL at least the limit price
func (o *Order) Crosses(price money.Money) bool {
	if price.Currency() != o.price.Currency() {
		return false
	}
	if o.side == Buy {
		return !price.GreaterThan(o.price)
	}

	return !price.LessThan(o.price)
}

// Execute executes execQty shares at execPrice against the matched order
func (o *Order) Execute(matchedOrderID aggregate.ID, execQty int64, execPrice money.Money) error {
	if !o.IsPending() {
		return errors.Wrapf(ErrInvalidState, "order %s is %s", o.id, o.status)
	}
	switch {
	case matchedOrderID == "" || matchedOrderID == o.id:
		return bankengine.InvalidArgumentError("matchedOrderID")
	case execQty <= 0 || execQty > o.remainingQuantity:
		return errors.Wrapf(ErrInvalidQuantity, "cannot execute %d of %d", execQty, o.remainingQuantity)
	case !o.Crosses(execPrice):
		return errors.Wrapf(ErrPriceNotCrossing, "%s %s at %s", o.side, o.price, execPrice)
	}

	amount, err := execPrice.Times(execQty)
	if err != nil {
		return err
	}
	filled, err := o.filledAmount.Add(amount)
	if err != nil {
		return err
	}

	remaining := o.remainingQuantity - execQty

	return aggregate.RecordChange(o, OrderExecuted{
		OrderID:           o.id,
		MatchedOrderID:    matchedOrderID,
		Quantity:          execQty,
		Price:             execPrice,
		Fee:               o.fee,
		RemainingQuantity: remaining,
		FilledAmount:      filled,
		OccurredAt:        time.Now().UTC(),
	})
}

// Cancel cancels a PENDING order
func (o *Order) Cancel(reason string) error {
	if !o.IsPending() {
		return errors.Wrapf(ErrInvalidState, "order %s is %s", o.id, o.status)
	}

	return aggregate.RecordChange(o, OrderCancelled{
		OrderID:           o.id,
		Reason:            reason,
		RemainingQuantity: o.remainingQuantity,
		OccurredAt:        time.Now().UTC(),
	})
}

// ReservedAmount returns the cash reserved when a BUY order is placed, quantity × price + fee.
// SELL orders reserve shares instead so zero is returned.
func (o *Order) ReservedAmount() (money.Money, error) {
	if o.side != Buy {
		return money.Zero(o.price.Currency()), nil
	}

	return o.reserve(o.quantity)
}

// RefundOnCancel returns the cash a cancelled BUY order gives back, remaining × price + fee
func (o *Order) RefundOnCancel() (money.Money, error) {
	if o.side != Buy {
		return money.Zero(o.price.Currency()), nil
	}

	return o.reserve(o.remainingQuantity)
}

// RefundOnExecution returns the price improvement of a BUY execution, execQty × (price - execPrice)
func (o *Order) RefundOnExecution(execQty int64, execPrice money.Money) (money.Money, error) {
	if o.side != Buy || !execPrice.LessThan(o.price) {
		return money.Zero(o.price.Currency()), nil
	}

	diff, err := o.price.Sub(execPrice)
	if err != nil {
		return money.Money{}, err
	}

	return diff.Times(execQty)
}

// Apply changes the state of the Order
func (o *Order) Apply(change *aggregate.Changed) error {
	event, ok := change.Payload().(Event)
	if !ok {
		return bankengine.NewUnknownEventKindError(change.Payload())
	}

	switch e := event.(type) {
	case OrderPlaced:
		o.id = e.OrderID
		o.userID = e.UserID
		o.accountID = e.AccountID
		o.portfolioID = e.PortfolioID
		o.securityID = e.SecurityID
		o.side = e.Side
		o.quantity = e.Quantity
		o.price = e.Price
		o.fee = e.Fee
		o.status = Pending
		o.remainingQuantity = e.Quantity
		o.filledAmount = money.Zero(e.Price.Currency())
		o.placedAt = e.OccurredAt
	case OrderExecuted:
		o.remainingQuantity = e.RemainingQuantity
		o.filledAmount = e.FilledAmount
		if o.remainingQuantity == 0 {
			o.status = Executed
		}
	case OrderCancelled:
		o.status = Cancelled
	default:
		return bankengine.NewUnknownEventKindError(e)
	}

	return nil
}

func (o *Order) reserve(quantity int64) (money.Money, error) {
	amount, err := o.price.Times(quantity)
	if err != nil {
		return money.Money{}, err
	}

	return amount.Add(o.fee)
}
