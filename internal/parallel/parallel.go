// Package parallel provides the worker pool used for row-parallel distance
// computation.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// NumWorkers returns the default number of workers for parallel operations.
func NumWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// Workers resolves a configured worker count: 0 means NumWorkers, negative
// values mean 1.
func Workers(n int) int {
	switch {
	case n == 0:
		return NumWorkers()
	case n < 0:
		return 1
	}
	return n
}

// For calls fn for every index in [start, end) using n workers and returns the
// first error. Indices are handed out one at a time so rows of uneven cost
// balance across workers. After the first error, or once ctx is done, no new
// index is started.
func For(ctx context.Context, start, end, n int, fn func(i int) error) error {
	if end <= start {
		return nil
	}
	if n <= 1 || end-start == 1 {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	if n > end-start {
		n = end - start
	}

	var (
		next     atomic.Int64
		stop     atomic.Bool
		once     sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	next.Store(int64(start))
	fail := func(err error) {
		once.Do(func() { firstErr = err })
		stop.Store(true)
	}

	wg.Add(n)
	for w := 0; w < n; w++ {
		go func() {
			defer wg.Done()
			for !stop.Load() {
				i := int(next.Add(1) - 1)
				if i >= end {
					return
				}
				if err := ctx.Err(); err != nil {
					fail(err)
					return
				}
				if err := fn(i); err != nil {
					fail(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// Map applies fn to each index in [start, end) with n workers and collects the
// results in index order. It stops at the first error.
func Map[T any](ctx context.Context, start, end, n int, fn func(i int) (T, error)) ([]T, error) {
	if end < start {
		end = start
	}
	results := make([]T, end-start)
	err := For(ctx, start, end, n, func(i int) error {
		v, err := fn(i)
		if err != nil {
			return err
		}
		results[i-start] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
