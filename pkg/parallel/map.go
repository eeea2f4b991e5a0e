package parallel

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrTaskPanicked marks errors produced by a task that panicked inside Map.
var ErrTaskPanicked = errors.New("task panicked")

// Map applies fn to every item on a pool of the given size and returns the
// results in input order. The first error cancels the context passed to the
// remaining calls and is returned; items not yet started are skipped.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error), opts ...Option) ([]R, error) {
	if len(items) == 0 {
		return []R{}, ctx.Err()
	}
	if workers > len(items) {
		workers = len(items)
	}

	pool, err := NewWorkerPool(workers, opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]R, len(items))
	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			r, err := call(ctx, item, fn)
			if err != nil {
				fail(err)
				return
			}
			results[i] = r
		})
	}
	pool.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// call runs fn, turning a panic into an error so Map never loses a result
// silently.
func call[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Mark(errors.Newf("%v", p), ErrTaskPanicked)
		}
	}()
	return fn(ctx, item)
}
