// Package pool provides a generic bounded worker pool. Results keep the
// index of the item that produced them regardless of completion order.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most limit invocations in flight and
// returns results in input order. The first error is returned after all
// items finish; a failing item never cancels its siblings, only the
// caller's context does. Results computed by the non-failing items are
// kept. A limit < 1 means unbounded.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range items {
		g.Go(func() error {
			r, err := fn(ctx, items[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Result pairs a per-item value with the error that produced it.
type Result[R any] struct {
	Value R
	Err   error
}

// MapCollect runs fn over items with at most limit invocations in flight
// and returns one Result per item in input order. A failing item never
// cancels its siblings; the caller decides per use site whether to
// propagate an error or substitute a fallback value.
func MapCollect[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range items {
		g.Go(func() error {
			r, err := fn(ctx, items[i])
			results[i] = Result[R]{Value: r, Err: err}
			return nil
		})
	}

	// Workers never return errors; Wait is only the completion barrier.
	_ = g.Wait()
	return results
}
