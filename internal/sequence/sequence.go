// Package sequence runs batches of device work strictly one item at a time.
package sequence

import (
	"context"
	"fmt"

	"github.com/joe/device-explorer/pkg/errors"
)

// Failure is the error produced by one item.
type Failure struct {
	Index int
	Err   error
}

// Outcome aggregates a run.
type Outcome struct {
	// Completed counts items whose task returned, successfully or not.
	Completed int
	// Failures are in input order.
	Failures  []Failure
	Cancelled bool
}

// Err joins the item failures, or returns nil.
func (o Outcome) Err() error {
	errs := make([]error, 0, len(o.Failures))
	for _, f := range o.Failures {
		errs = append(errs, f.Err)
	}

	return errors.Join(errs...)
}

// Run calls task for each item in order, starting an item only after the
// previous one returned. A failing or panicking item is recorded and the
// run moves on. ctx is checked before each item; once it is done the
// remaining items are skipped and errors.ErrUserCancelled is returned.
func Run[T any](ctx context.Context, items []T, task func(ctx context.Context, item T) error) (Outcome, error) {
	var outcome Outcome

	for i, item := range items {
		if ctx.Err() != nil {
			outcome.Cancelled = true
			return outcome, fmt.Errorf("after %d of %d items: %w", i, len(items), errors.ErrUserCancelled)
		}

		if err := runOne(ctx, item, task); err != nil {
			outcome.Failures = append(outcome.Failures, Failure{Index: i, Err: err})
		}

		outcome.Completed++
	}

	return outcome, nil
}

func runOne[T any](ctx context.Context, item T, task func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r) //nolint:err113 // Recovered value is only known at runtime
		}
	}()

	return task(ctx, item)
}
