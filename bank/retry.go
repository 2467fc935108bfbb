package bank

import (
	"context"
	"errors"

	"github.com/hellofresh/bankengine"
)

// Retry calls fn until it succeeds, fails with something other than a concurrency conflict,
// the attempts are used up or the context is done. fn must reload the aggregates it changes.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		return bankengine.InvalidArgumentError("attempts")
	}

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		if err = fn(ctx); err == nil || !errors.Is(err, bankengine.ErrConcurrencyConflict) {
			return err
		}
	}

	return err
}
