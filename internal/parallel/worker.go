// Package parallel provides the worker pool frame operations fan out to.
//
// Eager group aggregation uses it once the group count crosses the
// configured threshold; results are collected in input order so callers
// never observe goroutine scheduling.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines for parallel processing.
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a pool with numWorkers goroutines, defaulting to
// the CPU count when numWorkers is not positive.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{numWorkers: numWorkers, ctx: ctx, cancel: cancel}
}

// Close shuts down the pool. In-flight items finish; queued items are
// abandoned.
func (wp *WorkerPool) Close() {
	wp.cancel()
}

type indexedItem[T any] struct {
	index int
	value T
}

type indexedResult[R any] struct {
	index  int
	result R
}

// ProcessIndexed runs worker over items in parallel and returns the results
// in input order.
func ProcessIndexed[T, R any](wp *WorkerPool, items []T, worker func(int, T) R) []R {
	if len(items) == 0 {
		return nil
	}

	itemCh := make(chan indexedItem[T], len(items))
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: worker(item.index, item.value),
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.result
	}
	return results
}

// Process runs worker over items in parallel when order does not matter.
func Process[T, R any](wp *WorkerPool, items []T, worker func(T) R) []R {
	return ProcessIndexed(wp, items, func(_ int, item T) R {
		return worker(item)
	})
}
