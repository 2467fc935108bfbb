//go:build unit
// +build unit

package projection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/driver/inmemory"
	"github.com/hellofresh/bankengine/matching"
	"github.com/hellofresh/bankengine/money"
	"github.com/hellofresh/bankengine/projection"
)

func eur(amount string) money.Money {
	return money.MustParse(amount, "EUR")
}

func entry(side order.Side, price string, placedAt time.Time) matching.BookEntry {
	return matching.BookEntry{
		OrderID:           aggregate.GenerateID(),
		SecurityID:        "ACME",
		Side:              side,
		Price:             eur(price),
		RemainingQuantity: 10,
		PlacedAt:          placedAt,
	}
}

func ids(entries []matching.BookEntry) []aggregate.ID {
	result := make([]aggregate.ID, len(entries))
	for i, e := range entries {
		result[i] = e.OrderID
	}

	return result
}

func TestInMemoryOrderBook_PendingOrders(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	book := projection.NewInMemoryOrderBook()

	sellLate := entry(order.Sell, "100", now.Add(time.Minute))
	sellEarly := entry(order.Sell, "100", now)
	sellCheap := entry(order.Sell, "99", now.Add(time.Hour))
	buyHigh := entry(order.Buy, "101", now.Add(time.Hour))
	buyLow := entry(order.Buy, "98", now)
	other := entry(order.Sell, "1", now)
	other.SecurityID = "INIT"

	for _, e := range []matching.BookEntry{sellLate, sellEarly, sellCheap, buyHigh, buyLow, other} {
		require.NoError(t, book.Insert(ctx, e, 0))
	}

	sells, err := book.PendingOrders(ctx, "ACME", order.Sell)
	require.NoError(t, err)
	assert.Equal(t, []aggregate.ID{sellCheap.OrderID, sellEarly.OrderID, sellLate.OrderID}, ids(sells))

	buys, err := book.PendingOrders(ctx, "ACME", order.Buy)
	require.NoError(t, err)
	assert.Equal(t, []aggregate.ID{buyHigh.OrderID, buyLow.OrderID}, ids(buys))
}

func TestInMemoryOrderBook_Idempotency(t *testing.T) {
	ctx := context.Background()
	book := projection.NewInMemoryOrderBook()
	e := entry(order.Sell, "100", time.Now())

	require.NoError(t, book.Insert(ctx, e, 0))
	require.NoError(t, book.Update(ctx, e.OrderID, 4, 1))
	// a redelivered placement or older execution changes nothing
	require.NoError(t, book.Insert(ctx, e, 0))
	require.NoError(t, book.Update(ctx, e.OrderID, 8, 1))

	entries, err := book.PendingOrders(ctx, "ACME", order.Sell)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4), entries[0].RemainingQuantity)

	require.NoError(t, book.Remove(ctx, e.OrderID, 2))
	require.NoError(t, book.Update(ctx, e.OrderID, 2, 2))

	entries, err = book.PendingOrders(ctx, "ACME", order.Sell)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOrderBookProjector(t *testing.T) {
	ctx := context.Background()
	book := projection.NewInMemoryOrderBook()
	projector, err := projection.NewOrderBookProjector(book, nil)
	require.NoError(t, err)

	bus := inmemory.NewEventBus(nil)
	bus.Subscribe(projector.Handle)

	store := inmemory.NewEventStore(nil)
	require.NoError(t, store.Create(ctx, "bank"))
	orders, err := order.NewRepository(store, "bank", aggregate.WithPublisher(bus))
	require.NoError(t, err)

	place := func(side order.Side, quantity int64, price string) *order.Order {
		o, err := order.Place(
			aggregate.GenerateID(), "user", aggregate.GenerateID(), aggregate.GenerateID(),
			"ACME", side, quantity, eur(price), eur("1"),
		)
		require.NoError(t, err)
		require.NoError(t, orders.Save(ctx, o))

		return o
	}

	partial := place(order.Sell, 10, "100")
	filled := place(order.Sell, 5, "101")
	cancelled := place(order.Sell, 5, "102")

	require.NoError(t, partial.Execute(aggregate.GenerateID(), 4, eur("100")))
	require.NoError(t, orders.Save(ctx, partial))
	require.NoError(t, filled.Execute(aggregate.GenerateID(), 5, eur("101")))
	require.NoError(t, orders.Save(ctx, filled))
	require.NoError(t, cancelled.Cancel(""))
	require.NoError(t, orders.Save(ctx, cancelled))

	entries, err := book.PendingOrders(ctx, "ACME", order.Sell)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, partial.AggregateID(), entries[0].OrderID)
	assert.Equal(t, int64(6), entries[0].RemainingQuantity)
	assert.Equal(t, "100.00 EUR", entries[0].Price.String())

	t.Run("redelivery is ignored", func(t *testing.T) {
		history, err := orders.Load(ctx, partial.AggregateID())
		require.NoError(t, err)

		for _, change := range history {
			require.NoError(t, projector.Handle(ctx, change))
		}

		entries, err := book.PendingOrders(ctx, "ACME", order.Sell)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(6), entries[0].RemainingQuantity)
	})
}

func TestNewOrderBookProjector(t *testing.T) {
	projector, err := projection.NewOrderBookProjector(nil, nil)

	assert.Error(t, err)
	assert.Nil(t, projector)
}
