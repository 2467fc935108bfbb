//go:build unit
// +build unit

package matching_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/driver/inmemory"
	"github.com/hellofresh/bankengine/internal/test"
	"github.com/hellofresh/bankengine/matching"
	"github.com/hellofresh/bankengine/money"
)

type (
	staticBook struct {
		entries []matching.BookEntry
	}

	flakyOrders struct {
		*order.Repository

		failSaves map[aggregate.ID]int
		// cancelOnGet cancels the stored order right after it was handed out,
		// like a user cancelling while the matching pass holds the order
		cancelOnGet map[aggregate.ID]bool
	}

	recordingMetrics struct {
		mu         sync.Mutex
		matches    int
		executions int
		failures   int
	}
)

func (b *staticBook) add(o *order.Order) {
	b.entries = append(b.entries, matching.BookEntry{
		OrderID:           o.AggregateID(),
		SecurityID:        o.SecurityID(),
		Side:              o.Side(),
		Price:             o.Price(),
		RemainingQuantity: o.RemainingQuantity(),
		PlacedAt:          o.PlacedAt(),
	})
}

func (b *staticBook) PendingOrders(_ context.Context, securityID string, side order.Side) ([]matching.BookEntry, error) {
	var entries []matching.BookEntry
	for _, entry := range b.entries {
		if entry.SecurityID == securityID && entry.Side == side {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return matching.BetterThan(entries[i], entries[j])
	})

	return entries, nil
}

func (o *flakyOrders) Get(ctx context.Context, id aggregate.ID) (*order.Order, error) {
	loaded, err := o.Repository.Get(ctx, id)
	if err != nil || !o.cancelOnGet[id] {
		return loaded, err
	}
	delete(o.cancelOnGet, id)

	concurrent, err := o.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := concurrent.Cancel("user request"); err != nil {
		return nil, err
	}
	if err := o.Repository.Save(ctx, concurrent); err != nil {
		return nil, err
	}

	return loaded, nil
}

func (o *flakyOrders) Save(ctx context.Context, ord *order.Order) error {
	if o.failSaves[ord.AggregateID()] > 0 {
		o.failSaves[ord.AggregateID()]--
		return errors.New("save failed")
	}

	return o.Repository.Save(ctx, ord)
}

func (m *recordingMetrics) EventsAppended(string, int) {}

func (m *recordingMetrics) ConcurrencyConflict(string) {}

func (m *recordingMetrics) MatchFinished(_ string, executions int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches++
	m.executions += executions
}

func (m *recordingMetrics) ExecutionFailed(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

type fixture struct {
	t           *testing.T
	ctx         context.Context
	orders      *flakyOrders
	book        *staticBook
	executions  []matching.Execution
	metrics     *recordingMetrics
	placedAt    time.Time
	settleError error
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	store := inmemory.NewEventStore(nil)
	require.NoError(t, store.Create(ctx, "bank"))

	repository, err := order.NewRepository(store, "bank")
	require.NoError(t, err)

	return &fixture{
		t:       t,
		ctx:     ctx,
		orders: &flakyOrders{
			Repository:  repository,
			failSaves:   map[aggregate.ID]int{},
			cancelOnGet: map[aggregate.ID]bool{},
		},
		book:    &staticBook{},
		metrics: &recordingMetrics{},
	}
}

func (f *fixture) engine(logger bankengine.Logger) *matching.Engine {
	engine, err := matching.NewEngine(
		f.orders,
		f.book,
		matching.SettlerFunc(func(_ context.Context, execution matching.Execution) error {
			f.executions = append(f.executions, execution)
			return f.settleError
		}),
		matching.WithLogger(logger),
		matching.WithMetrics(f.metrics),
	)
	require.NoError(f.t, err)

	return engine
}

// place stores a new order, resting orders are added to the book
func (f *fixture) place(side order.Side, quantity int64, price string, resting bool) *order.Order {
	o, err := order.Place(
		aggregate.GenerateID(),
		"user",
		aggregate.GenerateID(),
		aggregate.GenerateID(),
		"ACME",
		side,
		quantity,
		money.MustParse(price, "EUR"),
		money.MustParse("1.00", "EUR"),
	)
	require.NoError(f.t, err)
	require.NoError(f.t, f.orders.Save(f.ctx, o))

	if resting {
		f.book.add(o)
		// PlacedAt has wall clock precision, keep the book order deterministic
		last := &f.book.entries[len(f.book.entries)-1]
		f.placedAt = f.placedAt.Add(time.Second)
		last.PlacedAt = f.placedAt
	}

	return o
}

func (f *fixture) reload(o *order.Order) *order.Order {
	reloaded, err := f.orders.Get(f.ctx, o.AggregateID())
	require.NoError(f.t, err)

	return reloaded
}

func TestNewEngine(t *testing.T) {
	settler := matching.SettlerFunc(func(context.Context, matching.Execution) error { return nil })

	_, err := matching.NewEngine(nil, &staticBook{}, settler)
	assert.Equal(t, bankengine.InvalidArgumentError("orders"), err)

	_, err = matching.NewEngine(&flakyOrders{}, nil, settler)
	assert.Equal(t, bankengine.InvalidArgumentError("book"), err)

	_, err = matching.NewEngine(&flakyOrders{}, &staticBook{}, nil)
	assert.Equal(t, bankengine.InvalidArgumentError("settler"), err)
}

func TestEngine_Match(t *testing.T) {
	t.Run("price-time priority at the maker price", func(t *testing.T) {
		f := newFixture(t)
		first := f.place(order.Sell, 4, "150", true)
		cheapEarly := f.place(order.Sell, 4, "149", true)
		cheapLate := f.place(order.Sell, 4, "149", true)
		expensive := f.place(order.Sell, 4, "156", true)
		f.place(order.Buy, 100, "200", true)

		incoming := f.place(order.Buy, 10, "155", false)
		executions, err := f.engine(nil).Match(f.ctx, incoming)
		require.NoError(t, err)
		assert.Equal(t, 3, executions)

		require.Len(t, f.executions, 3)
		expected := []struct {
			maker    aggregate.ID
			quantity int64
			price    string
		}{
			{cheapEarly.AggregateID(), 4, "149.00 EUR"},
			{cheapLate.AggregateID(), 4, "149.00 EUR"},
			{first.AggregateID(), 2, "150.00 EUR"},
		}
		for i, execution := range f.executions {
			assert.Equal(t, expected[i].maker, execution.Maker)
			assert.Equal(t, incoming.AggregateID(), execution.Taker)
			assert.Equal(t, expected[i].maker, execution.SellOrder.AggregateID())
			assert.Equal(t, incoming.AggregateID(), execution.BuyOrder.AggregateID())
			assert.Equal(t, expected[i].quantity, execution.Quantity)
			assert.Equal(t, expected[i].price, execution.Price.String())
		}

		assert.Equal(t, order.Executed, f.reload(incoming).Status())
		assert.Equal(t, order.Executed, f.reload(cheapEarly).Status())
		assert.Equal(t, int64(2), f.reload(first).RemainingQuantity())
		assert.Equal(t, order.Pending, f.reload(expensive).Status())

		assert.Equal(t, 1, f.metrics.matches)
		assert.Equal(t, 3, f.metrics.executions)
		assert.Equal(t, 0, f.metrics.failures)
	})

	t.Run("the seller pays the fee on every execution", func(t *testing.T) {
		f := newFixture(t)
		f.place(order.Buy, 3, "10", true)
		f.place(order.Buy, 3, "10", true)

		incoming := f.place(order.Sell, 6, "10", false)
		executions, err := f.engine(nil).Match(f.ctx, incoming)
		require.NoError(t, err)
		require.Equal(t, 2, executions)

		assert.Equal(t, "1.00 EUR", f.executions[0].Fee.String())
		assert.Equal(t, "1.00 EUR", f.executions[1].Fee.String())
	})

	t.Run("no crossing order", func(t *testing.T) {
		f := newFixture(t)
		resting := f.place(order.Sell, 4, "160", true)

		incoming := f.place(order.Buy, 10, "155", false)
		executions, err := f.engine(nil).Match(f.ctx, incoming)
		require.NoError(t, err)

		assert.Equal(t, 0, executions)
		assert.Empty(t, f.executions)
		assert.Equal(t, 0, f.reload(resting).Version())
		assert.Equal(t, 0, f.reload(incoming).Version())
	})

	t.Run("stale book entries are skipped", func(t *testing.T) {
		f := newFixture(t)
		cancelled := f.place(order.Sell, 4, "100", true)
		filled := f.place(order.Sell, 4, "100", true)
		live := f.place(order.Sell, 4, "101", true)

		c := f.reload(cancelled)
		require.NoError(t, c.Cancel("user request"))
		require.NoError(t, f.orders.Save(f.ctx, c))

		fl := f.reload(filled)
		require.NoError(t, fl.Execute(aggregate.GenerateID(), 4, money.MustParse("100", "EUR")))
		require.NoError(t, f.orders.Save(f.ctx, fl))

		logger, hook := test.NewLogger(t)
		incoming := f.place(order.Buy, 4, "101", false)
		executions, err := f.engine(logger).Match(f.ctx, incoming)
		require.NoError(t, err)

		assert.Equal(t, 1, executions)
		require.Len(t, f.executions, 1)
		assert.Equal(t, live.AggregateID(), f.executions[0].Maker)

		var skipped int
		for _, entry := range hook.AllEntries() {
			if entry.Message == "skipping stale matching candidate" {
				skipped++
			}
		}
		assert.Equal(t, 2, skipped)
	})

	t.Run("the incoming order is skipped in the book", func(t *testing.T) {
		f := newFixture(t)
		incoming := f.place(order.Sell, 4, "100", true)

		executions, err := f.engine(nil).Match(f.ctx, incoming)
		require.NoError(t, err)
		assert.Equal(t, 0, executions)
	})

	t.Run("failed executions are skipped", func(t *testing.T) {
		f := newFixture(t)
		first := f.place(order.Sell, 4, "100", true)
		second := f.place(order.Sell, 4, "100", true)

		incoming := f.place(order.Buy, 4, "100", false)
		f.orders.failSaves[first.AggregateID()] = 1

		logger, hook := test.NewLogger(t)
		executions, err := f.engine(logger).Match(f.ctx, incoming)
		require.NoError(t, err)

		assert.Equal(t, 1, executions)
		require.Len(t, f.executions, 1)
		assert.Equal(t, second.AggregateID(), f.executions[0].Maker)

		assert.Equal(t, 0, f.reload(first).Version())
		assert.Equal(t, order.Pending, f.reload(first).Status())
		assert.Equal(t, order.Executed, f.reload(incoming).Status())
		assert.Equal(t, 1, f.reload(incoming).Version())

		assert.Equal(t, 1, f.metrics.failures)
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "failed to execute orders", entry.Message)
	})

	t.Run("a candidate cancelled during the match leaves the incoming order untouched", func(t *testing.T) {
		f := newFixture(t)
		resting := f.place(order.Sell, 5, "100", true)
		f.orders.cancelOnGet[resting.AggregateID()] = true

		incoming := f.place(order.Buy, 5, "100", false)
		executions, err := f.engine(nil).Match(f.ctx, incoming)
		require.NoError(t, err)

		assert.Equal(t, 0, executions)
		assert.Empty(t, f.executions)
		assert.Equal(t, 1, f.metrics.failures)

		storedIncoming := f.reload(incoming)
		assert.Equal(t, order.Pending, storedIncoming.Status())
		assert.Equal(t, int64(5), storedIncoming.RemainingQuantity())
		assert.Equal(t, 0, storedIncoming.Version())

		storedResting := f.reload(resting)
		assert.Equal(t, order.Cancelled, storedResting.Status())
		assert.Equal(t, int64(5), storedResting.RemainingQuantity())
	})

	t.Run("settlement failures are logged", func(t *testing.T) {
		f := newFixture(t)
		f.settleError = errors.New("account is banned")
		f.place(order.Sell, 4, "100", true)

		logger, hook := test.NewLogger(t)
		incoming := f.place(order.Buy, 4, "100", false)
		executions, err := f.engine(logger).Match(f.ctx, incoming)
		require.NoError(t, err)

		assert.Equal(t, 1, executions)
		assert.Equal(t, 1, f.metrics.failures)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "failed to settle execution", hook.LastEntry().Message)
	})

	t.Run("orders that are not pending are not matched", func(t *testing.T) {
		f := newFixture(t)
		f.place(order.Sell, 4, "100", true)

		incoming := f.place(order.Buy, 4, "100", false)
		require.NoError(t, incoming.Cancel(""))

		executions, err := f.engine(nil).Match(f.ctx, incoming)
		require.NoError(t, err)
		assert.Equal(t, 0, executions)
	})
}

func TestBetterThan(t *testing.T) {
	now := time.Now()
	entry := func(side order.Side, price string, placedAt time.Time) matching.BookEntry {
		return matching.BookEntry{Side: side, Price: money.MustParse(price, "EUR"), PlacedAt: placedAt}
	}

	assert.True(t, matching.BetterThan(entry(order.Sell, "1", now), entry(order.Sell, "2", now.Add(-time.Hour))))
	assert.True(t, matching.BetterThan(entry(order.Buy, "2", now), entry(order.Buy, "1", now.Add(-time.Hour))))
	assert.True(t, matching.BetterThan(entry(order.Buy, "1", now), entry(order.Buy, "1", now.Add(time.Second))))
	assert.False(t, matching.BetterThan(entry(order.Buy, "1", now), entry(order.Buy, "1", now)))
}
