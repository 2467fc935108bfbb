//go:build unit
// +build unit

package bank_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/bank"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/domain/portfolio"
	"github.com/hellofresh/bankengine/driver/inmemory"
	"github.com/hellofresh/bankengine/money"
	"github.com/hellofresh/bankengine/projection"
)

func eur(amount string) money.Money {
	return money.MustParse(amount, "EUR")
}

func newService(t *testing.T) *bank.Service {
	ctx := context.Background()
	store := inmemory.NewEventStore(nil)
	require.NoError(t, store.Create(ctx, "bank"))

	book := projection.NewInMemoryOrderBook()
	projector, err := projection.NewOrderBookProjector(book, nil)
	require.NoError(t, err)
	bus := inmemory.NewEventBus(nil)
	bus.Subscribe(projector.Handle)

	accounts, err := account.NewRepository(store, "bank")
	require.NoError(t, err)
	orders, err := order.NewRepository(store, "bank", aggregate.WithPublisher(bus))
	require.NoError(t, err)
	portfolios, err := portfolio.NewRepository(store, "bank")
	require.NoError(t, err)
	ibans, err := money.NewGenerator(money.DefaultBankCode, money.DefaultBranchCode, money.NewAtomicSequence(0))
	require.NoError(t, err)

	service, err := bank.NewService(accounts, orders, portfolios, ibans, book, bank.Config{
		Currency:    "EUR",
		OrderFee:    eur("1.00"),
		SavingsRate: decimal.RequireFromString("0.02"),
	}, nil, nil)
	require.NoError(t, err)

	return service
}

type trader struct {
	userID    string
	account   *account.Account
	portfolio *portfolio.Portfolio
}

func newTrader(t *testing.T, service *bank.Service, userID, balance string, shares int64) trader {
	ctx := context.Background()

	a, err := service.OpenAccount(ctx, userID, account.Investment, eur(balance), "")
	require.NoError(t, err)
	p, err := service.OpenPortfolio(ctx, userID, a.AggregateID())
	require.NoError(t, err)
	if shares > 0 {
		p, err = service.DepositShares(ctx, p.AggregateID(), "ACME", shares)
		require.NoError(t, err)
	}

	return trader{userID: userID, account: a, portfolio: p}
}

func (tr trader) order(side order.Side, quantity int64, price string) bank.PlaceOrder {
	return bank.PlaceOrder{
		UserID:      tr.userID,
		AccountID:   tr.account.AggregateID(),
		PortfolioID: tr.portfolio.AggregateID(),
		SecurityID:  "ACME",
		Side:        side,
		Quantity:    quantity,
		Price:       eur(price),
	}
}

func balance(t *testing.T, service *bank.Service, tr trader) string {
	a, err := service.Account(context.Background(), tr.account.AggregateID())
	require.NoError(t, err)

	return a.Balance().String()
}

func shares(t *testing.T, service *bank.Service, tr trader) int64 {
	p, err := service.Portfolio(context.Background(), tr.portfolio.AggregateID())
	require.NoError(t, err)

	return p.Holding("ACME")
}

func TestService_OpenAccount(t *testing.T) {
	ctx := context.Background()
	service := newService(t)

	first, err := service.OpenAccount(ctx, "user-1", account.Savings, eur("1000"), "savings")
	require.NoError(t, err)
	second, err := service.OpenAccount(ctx, "user-1", account.Checking, eur("0"), "")
	require.NoError(t, err)

	assert.Equal(t, money.IBAN("IT87V0306909606000000000001"), first.IBAN())
	assert.NotEqual(t, first.IBAN(), second.IBAN())
	assert.True(t, second.IBAN().IsInternal(money.DefaultBankCode))
	assert.Equal(t, "savings", first.Name())

	interest, err := service.ApplyInterest(ctx, first.AggregateID())
	require.NoError(t, err)
	assert.Equal(t, "1000.05 EUR", interest.Balance().String())

	_, err = service.OpenAccount(ctx, "user-1", account.Checking, money.MustParse("1", "USD"), "")
	assert.Equal(t, money.ErrCurrencyMismatch, err)
}

func TestService_AccountCommands(t *testing.T) {
	ctx := context.Background()
	service := newService(t)

	a, err := service.OpenAccount(ctx, "user-1", account.Checking, eur("10"), "")
	require.NoError(t, err)

	a, err = service.Deposit(ctx, a.AggregateID(), eur("5"), "cash")
	require.NoError(t, err)
	assert.Equal(t, "15.00 EUR", a.Balance().String())

	_, err = service.Withdraw(ctx, a.AggregateID(), eur("16"), "atm")
	assert.True(t, errors.Is(err, account.ErrInsufficientFunds))

	a, err = service.Withdraw(ctx, a.AggregateID(), eur("15"), "atm")
	require.NoError(t, err)
	assert.True(t, a.Balance().IsZero())

	a, err = service.RenameAccount(ctx, a.AggregateID(), "old")
	require.NoError(t, err)
	assert.Equal(t, "old", a.Name())

	a, err = service.CloseAccount(ctx, a.AggregateID(), "not needed")
	require.NoError(t, err)
	assert.Equal(t, account.Closed, a.Status())

	a, err = service.BanAccount(ctx, a.AggregateID(), "fraud")
	require.NoError(t, err)
	assert.Equal(t, account.Banned, a.Status())

	_, err = service.Deposit(ctx, aggregate.GenerateID(), eur("1"), "")
	assert.Equal(t, aggregate.ErrAggregateNotFound, err)
}

func TestService_Transfer(t *testing.T) {
	ctx := context.Background()
	service := newService(t)

	from, err := service.OpenAccount(ctx, "user-1", account.Checking, eur("100"), "")
	require.NoError(t, err)
	to, err := service.OpenAccount(ctx, "user-2", account.Checking, eur("0"), "")
	require.NoError(t, err)

	require.NoError(t, service.Transfer(ctx, from.AggregateID(), to.AggregateID(), eur("40"), "rent"))

	sender, err := service.Account(ctx, from.AggregateID())
	require.NoError(t, err)
	recipient, err := service.Account(ctx, to.AggregateID())
	require.NoError(t, err)
	assert.Equal(t, "60.00 EUR", sender.Balance().String())
	assert.Equal(t, "40.00 EUR", recipient.Balance().String())

	t.Run("insufficient funds move nothing", func(t *testing.T) {
		err := service.Transfer(ctx, from.AggregateID(), to.AggregateID(), eur("60.01"), "")
		assert.True(t, errors.Is(err, account.ErrInsufficientFunds))

		recipient, err := service.Account(ctx, to.AggregateID())
		require.NoError(t, err)
		assert.Equal(t, "40.00 EUR", recipient.Balance().String())
	})

	t.Run("a closed recipient moves nothing", func(t *testing.T) {
		closed, err := service.OpenAccount(ctx, "user-3", account.Checking, eur("0"), "")
		require.NoError(t, err)
		_, err = service.CloseAccount(ctx, closed.AggregateID(), "")
		require.NoError(t, err)

		err = service.Transfer(ctx, from.AggregateID(), closed.AggregateID(), eur("1"), "")
		assert.True(t, errors.Is(err, bankengine.ErrInvalidState))

		sender, err := service.Account(ctx, from.AggregateID())
		require.NoError(t, err)
		assert.Equal(t, "60.00 EUR", sender.Balance().String())
	})
}

func TestService_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("a matched buy order is refunded the price improvement", func(t *testing.T) {
		service := newService(t)
		seller := newTrader(t, service, "seller", "0", 10)
		buyer := newTrader(t, service, "buyer", "2000", 0)

		sell, executions, err := service.PlaceOrder(ctx, seller.order(order.Sell, 10, "150"))
		require.NoError(t, err)
		assert.Equal(t, 0, executions)
		assert.Equal(t, order.Pending, sell.Status())
		assert.Equal(t, int64(0), shares(t, service, seller))

		buy, executions, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 10, "155"))
		require.NoError(t, err)
		assert.Equal(t, 1, executions)
		assert.Equal(t, order.Executed, buy.Status())

		sell, err = service.Order(ctx, sell.AggregateID())
		require.NoError(t, err)
		assert.Equal(t, order.Executed, sell.Status())

		assert.Equal(t, "499.00 EUR", balance(t, service, buyer))
		assert.Equal(t, int64(10), shares(t, service, buyer))
		assert.Equal(t, "1499.00 EUR", balance(t, service, seller))
		assert.Equal(t, int64(0), shares(t, service, seller))
	})

	t.Run("the reservation is taken when the order rests", func(t *testing.T) {
		service := newService(t)
		buyer := newTrader(t, service, "buyer", "2000", 0)

		_, executions, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 10, "155"))
		require.NoError(t, err)
		assert.Equal(t, 0, executions)
		assert.Equal(t, "449.00 EUR", balance(t, service, buyer))
	})

	t.Run("insufficient funds reject the order", func(t *testing.T) {
		service := newService(t)
		buyer := newTrader(t, service, "buyer", "100", 0)

		o, _, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 1, "100"))
		assert.True(t, errors.Is(err, account.ErrInsufficientFunds))
		assert.Nil(t, o)
		assert.Equal(t, "100.00 EUR", balance(t, service, buyer))
	})

	t.Run("insufficient shares reject the order", func(t *testing.T) {
		service := newService(t)
		seller := newTrader(t, service, "seller", "0", 3)

		_, _, err := service.PlaceOrder(ctx, seller.order(order.Sell, 4, "100"))
		assert.True(t, errors.Is(err, portfolio.ErrInsufficientShares))
		assert.Equal(t, int64(3), shares(t, service, seller))
	})

	t.Run("orders on another user's account are rejected", func(t *testing.T) {
		service := newService(t)
		owner := newTrader(t, service, "owner", "1000", 0)

		cmd := owner.order(order.Buy, 1, "10")
		cmd.UserID = "intruder"

		_, _, err := service.PlaceOrder(ctx, cmd)
		assert.Equal(t, bank.ErrNotOwner, err)
	})

	t.Run("a partial fill keeps the rest in the book", func(t *testing.T) {
		service := newService(t)
		seller := newTrader(t, service, "seller", "0", 4)
		buyer := newTrader(t, service, "buyer", "1000", 0)

		_, _, err := service.PlaceOrder(ctx, seller.order(order.Sell, 4, "100"))
		require.NoError(t, err)

		buy, executions, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 6, "100"))
		require.NoError(t, err)
		assert.Equal(t, 1, executions)
		assert.Equal(t, int64(2), buy.RemainingQuantity())
		assert.Equal(t, order.Pending, buy.Status())

		// 1000 - (6 × 100 + 1) reserved, the seller pays its fee
		assert.Equal(t, "399.00 EUR", balance(t, service, buyer))
		assert.Equal(t, "399.00 EUR", balance(t, service, seller))
		assert.Equal(t, int64(4), shares(t, service, buyer))
	})

	t.Run("a sell filled by several executions pays the fee on each", func(t *testing.T) {
		service := newService(t)
		seller := newTrader(t, service, "seller", "0", 6)
		first := newTrader(t, service, "first", "100", 0)
		second := newTrader(t, service, "second", "100", 0)

		for _, buyer := range []trader{first, second} {
			_, executions, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 3, "10"))
			require.NoError(t, err)
			require.Equal(t, 0, executions)
		}

		sell, executions, err := service.PlaceOrder(ctx, seller.order(order.Sell, 6, "10"))
		require.NoError(t, err)
		assert.Equal(t, 2, executions)
		assert.Equal(t, order.Executed, sell.Status())

		// 2 × (3 × 10 - 1)
		assert.Equal(t, "58.00 EUR", balance(t, service, seller))
		for _, buyer := range []trader{first, second} {
			assert.Equal(t, "69.00 EUR", balance(t, service, buyer))
			assert.Equal(t, int64(3), shares(t, service, buyer))
		}
	})
}

func TestService_CancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("a cancelled buy order refunds the remaining reservation", func(t *testing.T) {
		service := newService(t)
		buyer := newTrader(t, service, "buyer", "1000", 0)

		o, _, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 5, "100"))
		require.NoError(t, err)
		assert.Equal(t, "499.00 EUR", balance(t, service, buyer))

		cancelled, err := service.CancelOrder(ctx, "buyer", o.AggregateID(), "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, order.Cancelled, cancelled.Status())
		assert.Equal(t, "1000.00 EUR", balance(t, service, buyer))

		_, err = service.CancelOrder(ctx, "buyer", o.AggregateID(), "again")
		assert.True(t, errors.Is(err, order.ErrInvalidState))
		assert.Equal(t, "1000.00 EUR", balance(t, service, buyer))
	})

	t.Run("a cancelled sell order returns the shares", func(t *testing.T) {
		service := newService(t)
		seller := newTrader(t, service, "seller", "0", 10)

		o, _, err := service.PlaceOrder(ctx, seller.order(order.Sell, 10, "100"))
		require.NoError(t, err)
		assert.Equal(t, int64(0), shares(t, service, seller))

		_, err = service.CancelOrder(ctx, "seller", o.AggregateID(), "")
		require.NoError(t, err)
		assert.Equal(t, int64(10), shares(t, service, seller))
	})

	t.Run("only the owner can cancel", func(t *testing.T) {
		service := newService(t)
		buyer := newTrader(t, service, "buyer", "1000", 0)

		o, _, err := service.PlaceOrder(ctx, buyer.order(order.Buy, 1, "10"))
		require.NoError(t, err)

		_, err = service.CancelOrder(ctx, "someone", o.AggregateID(), "")
		assert.Equal(t, bank.ErrNotOwner, err)
	})
}
