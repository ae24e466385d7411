package worker

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool[int](context.Background(), 3, 10)
	for i := 0; i < 10; i++ {
		n := i
		pool.Submit(strconv.Itoa(n), func(ctx context.Context) (int, error) {
			return n * n, nil
		})
	}
	pool.Close()

	got := map[string]int{}
	for result := range pool.Results() {
		require.NoError(t, result.Err)
		got[result.JobID] = result.Output
	}
	assert.Len(t, got, 10)
	assert.Equal(t, 81, got["9"])
}

func TestPool_LimitsConcurrency(t *testing.T) {
	var running, peak int32
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}

	Run(context.Background(), 2, ids, func(ctx context.Context, id string) (struct{}, error) {
		now := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRun_KeepsSubmissionOrder(t *testing.T) {
	ids := []string{"c", "a", "b", "a"}
	results := Run(context.Background(), 4, ids, func(ctx context.Context, id string) (string, error) {
		if id == "b" {
			return "", errors.New("bad input")
		}
		return id + "!", nil
	})

	require.Len(t, results, 4)
	for i, id := range ids {
		assert.Equal(t, id, results[i].JobID)
	}
	assert.Equal(t, "c!", results[0].Output)
	assert.Equal(t, "a!", results[3].Output)
	assert.EqualError(t, results[2].Err, "bad input")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Run(ctx, 2, []string{"x", "y"}, func(ctx context.Context, id string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})

	assert.Zero(t, atomic.LoadInt32(&calls))
	for _, result := range results {
		assert.ErrorIs(t, result.Err, context.Canceled)
	}
}

func TestRun_NoJobs(t *testing.T) {
	assert.Empty(t, Run(context.Background(), 2, nil, func(ctx context.Context, id string) (int, error) {
		return 0, nil
	}))
}
