//go:build unit
// +build unit

package bank_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/bank"
)

func TestRetry(t *testing.T) {
	conflict := &bankengine.ConcurrencyConflictError{AggregateType: "bank_account", Expected: 1, Actual: 2}

	t.Run("retries conflicts", func(t *testing.T) {
		calls := 0
		err := bank.Retry(context.Background(), 3, func(context.Context) error {
			calls++
			if calls < 3 {
				return conflict
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the attempts", func(t *testing.T) {
		calls := 0
		err := bank.Retry(context.Background(), 2, func(context.Context) error {
			calls++
			return conflict
		})

		assert.Equal(t, conflict, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("other errors are returned at once", func(t *testing.T) {
		failure := errors.New("boom")
		calls := 0
		err := bank.Retry(context.Background(), 5, func(context.Context) error {
			calls++
			return failure
		})

		assert.Equal(t, failure, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := bank.Retry(ctx, 5, func(context.Context) error {
			return nil
		})

		assert.Equal(t, context.Canceled, err)
	})

	t.Run("requires an attempt", func(t *testing.T) {
		assert.Equal(t, bankengine.InvalidArgumentError("attempts"), bank.Retry(context.Background(), 0, nil))
	})
}
