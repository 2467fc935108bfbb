//go:build unit
// +build unit

package projection_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/driver/inmemory"
	"github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/projection"
)

type listenerFunc func(ctx context.Context, trigger sql.ProjectionTrigger) error

func (f listenerFunc) Listen(ctx context.Context, trigger sql.ProjectionTrigger) error {
	return f(ctx, trigger)
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	store := inmemory.NewEventStore(nil)
	require.NoError(t, store.Create(ctx, "bank"))
	orders, err := order.NewRepository(store, "bank")
	require.NoError(t, err)
	accounts, err := account.NewRepository(store, "bank")
	require.NoError(t, err)

	book := projection.NewInMemoryOrderBook()
	projector, err := projection.NewOrderBookProjector(book, nil)
	require.NoError(t, err)
	runner, err := projection.NewRunner(store, "bank", projector, nil)
	require.NoError(t, err)

	a, err := account.Open(aggregate.GenerateID(), "user", "IT87V0306909606000000000001", account.Checking, eur("10"))
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, a))

	first, err := order.Place(aggregate.GenerateID(), "user", a.AggregateID(), aggregate.GenerateID(), "ACME", order.Buy, 1, eur("5"), eur("1"))
	require.NoError(t, err)
	require.NoError(t, orders.Save(ctx, first))

	require.NoError(t, runner.Run(ctx, listenerFunc(func(ctx context.Context, trigger sql.ProjectionTrigger) error {
		return trigger(ctx, nil)
	})))
	assert.Equal(t, int64(2), runner.Position())

	entries, err := book.PendingOrders(ctx, "ACME", order.Buy)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, first.Cancel(""))
	require.NoError(t, orders.Save(ctx, first))

	require.NoError(t, runner.Trigger(ctx, &sql.ProjectionNotification{No: 3, EventName: order.OrderCancelledName}))
	assert.Equal(t, int64(3), runner.Position())

	entries, err = book.PendingOrders(ctx, "ACME", order.Buy)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// nothing new to project
	require.NoError(t, runner.Trigger(ctx, nil))
	assert.Equal(t, int64(3), runner.Position())
}

func TestNewRunner(t *testing.T) {
	book := projection.NewInMemoryOrderBook()
	projector, err := projection.NewOrderBookProjector(book, nil)
	require.NoError(t, err)
	store := inmemory.NewEventStore(nil)

	testCases := []struct {
		title         string
		store         bankengine.ReadOnlyEventStore
		stream        bankengine.StreamName
		projector     *projection.OrderBookProjector
		expectedError error
	}{
		{"event store", nil, "bank", projector, bankengine.InvalidArgumentError("eventStore")},
		{"stream", store, "", projector, bankengine.InvalidArgumentError("streamName")},
		{"projector", store, "bank", nil, bankengine.InvalidArgumentError("projector")},
	}

	for _, testCase := range testCases {
		t.Run(testCase.title, func(t *testing.T) {
			runner, err := projection.NewRunner(testCase.store, testCase.stream, testCase.projector, nil)

			assert.Equal(t, testCase.expectedError, err)
			assert.Nil(t, runner)
		})
	}
}
