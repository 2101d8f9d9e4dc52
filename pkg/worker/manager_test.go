package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ProcessesEveryJob(t *testing.T) {
	var sum atomic.Int64
	m := NewManager[int]("Test", 4)

	jobs := make([]int, 100)
	for i := range jobs {
		jobs[i] = i + 1
	}

	summary, err := m.Run(context.Background(), jobs, func(ctx context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Succeeded)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, int64(5050), sum.Load())
}

func TestManager_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	m := NewManager[int]("Test", 3)

	_, err := m.Run(context.Background(), make([]int, 20), func(ctx context.Context, _ int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestManager_PartialFailure(t *testing.T) {
	m := NewManager[string]("Test", 2)
	boom := errors.New("boom")

	summary, err := m.Run(context.Background(), []string{"a", "bad", "c"}, func(ctx context.Context, s string) error {
		if s == "bad" {
			return boom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "bad", summary.Failures[0].Job)
	assert.ErrorIs(t, summary.Failures[0].Err, boom)
}

func TestManager_AllFailed(t *testing.T) {
	m := NewManager[int]("Test", 2)
	_, err := m.Run(context.Background(), []int{1, 2}, func(ctx context.Context, _ int) error {
		return errors.New("nope")
	})
	assert.Error(t, err)
}

func TestManager_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	m := NewManager[int]("Test", 1)
	summary, err := m.Run(ctx, []int{1, 2, 3}, func(ctx context.Context, _ int) error {
		calls.Add(1)
		return nil
	})
	assert.Error(t, err)
	assert.Zero(t, calls.Load())
	assert.Len(t, summary.Failures, 3)
	assert.ErrorIs(t, summary.Failures[0].Err, context.Canceled)
}

func TestManager_Empty(t *testing.T) {
	summary, err := NewManager[int]("Test", 0).Run(context.Background(), nil, func(ctx context.Context, _ int) error {
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Succeeded)
}
