package pool

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

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 1, 4, 2}
	results, err := Map(context.Background(), items, 8, func(_ context.Context, n int) (string, error) {
		// Later items finish first so completion order is reversed.
		time.Sleep(time.Duration(n) * 2 * time.Millisecond)
		return strconv.Itoa(n), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "3", "1", "4", "2"}, results)
}

func TestMap_LimitOneIsSerial(t *testing.T) {
	var inFlight, maxSeen int32
	items := make([]int, 20)
	_, err := Map(context.Background(), items, 1, func(_ context.Context, _ int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestMap_RespectsLimit(t *testing.T) {
	var inFlight, maxSeen int32
	items := make([]int, 50)
	_, err := Map(context.Background(), items, 4, func(_ context.Context, _ int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(4))
}

func TestMap_EmptyItems(t *testing.T) {
	results, err := Map(context.Background(), nil, 3, func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMap_ErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMap_FailureDoesNotCancelSiblings(t *testing.T) {
	boom := errors.New("boom")
	failed := make(chan struct{})
	results, err := Map(context.Background(), []int{0, 1}, 0, func(ctx context.Context, n int) (string, error) {
		if n == 0 {
			close(failed)
			return "", boom
		}
		// Run strictly after the sibling has failed, then verify the
		// context handed to workers is still live.
		<-failed
		time.Sleep(5 * time.Millisecond)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "ok", nil
	})

	assert.ErrorIs(t, err, boom)
	require.Len(t, results, 2)
	assert.Equal(t, "ok", results[1])
}

func TestMapCollect_FailureDoesNotCancelSiblings(t *testing.T) {
	var completed int32
	results := MapCollect(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, n int) (int, error) {
		atomic.AddInt32(&completed, 1)
		if n == 1 {
			return 0, errors.New("first item failed")
		}
		return n * 10, nil
	})

	assert.Equal(t, int32(4), atomic.LoadInt32(&completed))
	require.Len(t, results, 4)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 20, results[1].Value)
	assert.Equal(t, 30, results[2].Value)
	assert.Equal(t, 40, results[3].Value)
}

func TestMapCollect_OrderMatchesInput(t *testing.T) {
	items := []string{"a", "b", "c"}
	results := MapCollect(context.Background(), items, 3, func(_ context.Context, s string) (string, error) {
		return s + s, nil
	})
	require.Len(t, results, 3)
	assert.Equal(t, "aa", results[0].Value)
	assert.Equal(t, "bb", results[1].Value)
	assert.Equal(t, "cc", results[2].Value)
}
