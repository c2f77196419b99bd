package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool_DefaultsToCPUCount(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 0)
	assert.Positive(t, pool.MaxWorkers())
	require.NoError(t, pool.Wait())
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 4)
	var count atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(func(context.Context) error {
			count.Add(1)
			return nil
		}))
	}
	require.NoError(t, pool.Wait())
	assert.Equal(t, int64(100), count.Load())
}

func TestWorkerPool_LimitsConcurrency(t *testing.T) {
	const limit = 3
	pool := NewWorkerPool(context.Background(), limit)
	var running, peak atomic.Int64
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}
	require.NoError(t, pool.Wait())
	assert.LessOrEqual(t, peak.Load(), int64(limit))
}

func TestWorkerPool_FirstErrorCancels(t *testing.T) {
	boom := errors.New("boom")
	pool := NewWorkerPool(context.Background(), 1)

	require.NoError(t, pool.Submit(func(context.Context) error { return boom }))
	// With one worker the next Submit waits for the failing task.
	err := pool.Submit(func(context.Context) error { return nil })
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.ErrorIs(t, pool.Wait(), boom)
}

func TestWorkerPool_SubmitAfterWait(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2)
	require.NoError(t, pool.Wait())
	assert.ErrorIs(t, pool.Submit(func(context.Context) error { return nil }), ErrPoolShutdown)
}

func TestWorkerPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pool := NewWorkerPool(ctx, 2)
	assert.ErrorIs(t, pool.Submit(func(context.Context) error { return nil }), context.Canceled)
	assert.NoError(t, pool.Wait())
}

func TestRun(t *testing.T) {
	seen := make([]atomic.Bool, 10)
	err := Run(context.Background(), 3, len(seen), func(_ context.Context, i int) error {
		seen[i].Store(true)
		return nil
	})
	require.NoError(t, err)
	for i := range seen {
		assert.True(t, seen[i].Load(), "task %d did not run", i)
	}
}

func TestRun_ReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), 2, 5, func(_ context.Context, i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
