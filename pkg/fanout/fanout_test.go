package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	tasks := []Task{
		func(ctx context.Context) error { atomic.AddInt32(&calls, 1); return nil },
		func(ctx context.Context) error { atomic.AddInt32(&calls, 1); return boom },
		func(ctx context.Context) error { atomic.AddInt32(&calls, 1); return nil },
	}

	results := Run(context.Background(), tasks, 2)
	require.Len(t, results, 3)
	assert.NoError(t, results[0])
	assert.ErrorIs(t, results[1], boom)
	assert.NoError(t, results[2])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRunEmpty(t *testing.T) {
	results := Run(context.Background(), nil, 4)
	assert.Empty(t, results)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var active, peak int32
	task := func(ctx context.Context) error {
		current := atomic.AddInt32(&active, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		atomic.AddInt32(&active, -1)
		return nil
	}

	tasks := make([]Task, 16)
	for i := range tasks {
		tasks[i] = task
	}

	results := Run(context.Background(), tasks, 2)
	require.Len(t, results, 16)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Run(ctx, []Task{
		func(ctx context.Context) error { return nil },
	}, 1)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0], context.Canceled)
}
