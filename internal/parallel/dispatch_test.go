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

func TestMap_CollectsByKey(t *testing.T) {
	keys := []string{"a", "bb", "ccc", "dddd"}
	for _, workers := range []int{0, 1, 2, 16} {
		got, err := Map(context.Background(), keys, workers, func(_ context.Context, k string) (int, error) {
			return len(k), nil
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"a": 1, "bb": 2, "ccc": 3, "dddd": 4}, got, "workers=%d", workers)
	}
}

func TestMap_ResultIndependentOfCompletionOrder(t *testing.T) {
	keys := []int{0, 1, 2, 3, 4, 5}
	got, err := Map(context.Background(), keys, len(keys), func(_ context.Context, k int) (int, error) {
		// Early keys finish last.
		time.Sleep(time.Duration(len(keys)-k) * time.Millisecond)
		return k * k, nil
	})
	require.NoError(t, err)
	for _, k := range keys {
		assert.Equal(t, k*k, got[k])
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	keys := make([]int, 20)
	for i := range keys {
		keys[i] = i
	}
	_, err := Map(context.Background(), keys, 3, func(_ context.Context, _ int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestMap_FirstErrorCancelsAndReturnsNoPartialMap(t *testing.T) {
	boom := errors.New("boom")
	keys := make([]int, 50)
	for i := range keys {
		keys[i] = i
	}

	var started atomic.Int32
	got, err := Map(context.Background(), keys, 2, func(ctx context.Context, k int) (int, error) {
		started.Add(1)
		if k == 1 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		return k, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
	assert.Less(t, started.Load(), int32(len(keys)))
}

func TestMap_ErrorCancelsRunningTasks(t *testing.T) {
	boom := errors.New("boom")
	var sawCancel atomic.Bool
	release := make(chan struct{})

	_, err := Map(context.Background(), []int{0, 1}, 2, func(ctx context.Context, k int) (int, error) {
		if k == 1 {
			close(release)
			return 0, boom
		}
		<-release
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return k, nil
		}
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, sawCancel.Load())
}

func TestMap_DuplicateKeys(t *testing.T) {
	called := false
	_, err := Map(context.Background(), []string{"x", "y", "x"}, 2, func(_ context.Context, _ string) (int, error) {
		called = true
		return 0, nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestMap_CancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Map(ctx, []int{1, 2, 3}, 1, func(ctx context.Context, k int) (int, error) {
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), nil, 4, func(_ context.Context, k int) (int, error) {
		return k, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}
