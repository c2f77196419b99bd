// Package parallel runs independent benchmark workloads on a bounded number
// of goroutines. Each task gets its own planner, so tasks share nothing but
// the context and, optionally, a statistics monitor.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrPoolShutdown is returned when trying to submit tasks to a pool that is
// already being waited on.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Task is a unit of work. It should return promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// WorkerPool manages a bounded set of goroutines for running tasks.
// The first task error cancels the pool context; Wait reports it.
type WorkerPool struct {
	maxWorkers int
	group      *errgroup.Group
	ctx        context.Context

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(ctx context.Context, maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(maxWorkers)
	return &WorkerPool{
		maxWorkers: maxWorkers,
		group:      group,
		ctx:        gctx,
	}
}

// MaxWorkers returns the concurrency limit.
func (wp *WorkerPool) MaxWorkers() int {
	return wp.maxWorkers
}

// Submit schedules task. If all workers are busy, this call blocks until one
// becomes available.
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.Lock()
	closed := wp.closed
	wp.mu.Unlock()
	if closed {
		return ErrPoolShutdown
	}
	if err := wp.ctx.Err(); err != nil {
		return err
	}

	wp.group.Go(func() error {
		if err := wp.ctx.Err(); err != nil {
			return err
		}
		return task(wp.ctx)
	})
	return nil
}

// Wait blocks until every submitted task has finished and returns the first
// error. The pool accepts no further tasks.
func (wp *WorkerPool) Wait() error {
	wp.mu.Lock()
	wp.closed = true
	wp.mu.Unlock()
	return wp.group.Wait()
}

// Run executes fn(ctx, i) for i in [0, n) on at most workers goroutines and
// returns the first error.
func Run(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	pool := NewWorkerPool(ctx, workers)
	for i := 0; i < n; i++ {
		if err := pool.Submit(func(ctx context.Context) error { return fn(ctx, i) }); err != nil {
			// Drain what is already running before reporting.
			if werr := pool.Wait(); werr != nil {
				return werr
			}
			return err
		}
	}
	return pool.Wait()
}
