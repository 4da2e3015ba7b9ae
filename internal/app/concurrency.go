package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Parallel2 runs both functions concurrently. The shared context is
// cancelled as soon as either fails, and the first error is returned.
//
//	posts, total, err := Parallel2(ctx, listPage, countAll)
func Parallel2[T1, T2 any](
	ctx context.Context,
	fn1 func(context.Context) (T1, error),
	fn2 func(context.Context) (T2, error),
) (T1, T2, error) {
	var (
		r1 T1
		r2 T2
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		r1, err = fn1(gctx)
		return err
	})

	g.Go(func() (err error) {
		r2, err = fn2(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zero1 T1
			zero2 T2
		)

		return zero1, zero2, fmt.Errorf("parallel execution failed: %w", err)
	}

	return r1, r2, nil
}

// FanOut feeds items to a fixed number of workers and stops at the first
// error. Used to push several draft files in one CLI invocation.
func FanOut[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan T)

	for range workers {
		g.Go(func() error {
			for item := range queue {
				if err := fn(gctx, item); err != nil {
					return err
				}
			}

			return nil
		})
	}

	g.Go(func() error {
		defer close(queue)

		for _, item := range items {
			select {
			case queue <- item:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fan out failed: %w", err)
	}

	return nil
}
