package pushsync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Budgets for guarded calls. Reading and destroying the local subscription
// are fast platform calls and run unguarded; everything that can touch the
// network or wait on a human is time-boxed so the UI can always recover.
const (
	permissionBudget = 10 * time.Second
	keyFetchBudget   = 8 * time.Second
	createBudget     = 15 * time.Second
	registerBudget   = 10 * time.Second
	unregisterBudget = 10 * time.Second
	statusBudget     = 8 * time.Second
)

type timeoutError struct {
	op     string
	budget time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.op, e.budget)
}

// IsTimeout reports whether err is a guarded call exceeding its budget.
func IsTimeout(err error) bool {
	var te *timeoutError
	return errors.As(err, &te)
}

// await runs fn against a deadline and returns whichever finishes first: the
// operation's result or a timeout failure naming the operation. The losing
// branch is discarded; fn may still be running after a timeout but nothing
// waits for it and its eventual result is dropped.
func await[T any](ctx context.Context, budget time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}

	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(cctx)
		ch <- outcome{v, err}
	}()

	select {
	case out := <-ch:
		return out.v, out.err
	case <-cctx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &timeoutError{op: op, budget: budget}
	}
}

func awaitErr(ctx context.Context, budget time.Duration, op string, fn func(context.Context) error) error {
	_, err := await(ctx, budget, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
