package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := NewQueue(3)
	require.Equal(t, 3, q.Len())
	for i := 0; i < 3; i++ {
		task, ok := q.Next()
		require.True(t, ok)
		require.Equal(t, i, task)
	}
	_, ok := q.Next()
	require.False(t, ok)
	require.Equal(t, 0, q.Len())
	_, ok = NewQueue(0).Next()
	require.False(t, ok)
	_, ok = NewQueue(-2).Next()
	require.False(t, ok)
}

func TestQueueConcurrent(t *testing.T) {
	const n = 100000
	q := NewQueue(n)
	seen := make([]int32, n)
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func() {
			for {
				task, ok := q.Next()
				if !ok {
					done <- struct{}{}
					return
				}
				atomic.AddInt32(&seen[task], 1)
			}
		}()
	}
	for w := 0; w < 8; w++ {
		<-done
	}
	for i, c := range seen {
		require.Equal(t, int32(1), c, "task %d", i)
	}
}

func TestQueueLarge(t *testing.T) {
	q := NewQueue(1 << 30)
	require.Equal(t, 1<<30, q.Len())
	task, ok := q.Next()
	require.True(t, ok)
	require.Equal(t, 0, task)
}

func TestPoolRunsEveryTaskOnce(t *testing.T) {
	const n = 50
	var seen [n]int32
	var workers [4]int32
	p := Start(context.Background(), 4, NewQueue(n), func(ctx context.Context, w, task int) (int, error) {
		atomic.AddInt32(&seen[task], 1)
		atomic.AddInt32(&workers[w], 1)
		time.Sleep(time.Millisecond)
		return task * task, nil
	})
	count := 0
	for r := range p.Results() {
		require.NoError(t, r.Err)
		require.Equal(t, r.Task*r.Task, r.Value)
		require.True(t, r.Worker >= 0 && r.Worker < 4)
		count++
	}
	require.NoError(t, p.Wait())
	require.Equal(t, n, count)
	for i := range seen {
		require.Equal(t, int32(1), seen[i], "task %d", i)
	}
}

func TestPoolStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var started int32
	p := Start(context.Background(), 2, NewQueue(1000), func(ctx context.Context, w, task int) (int, error) {
		atomic.AddInt32(&started, 1)
		if task == 7 {
			return 0, boom
		}
		select {
		case <-time.After(time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return task, nil
	})
	var failed *Result[int]
	for r := range p.Results() {
		if r.Err != nil {
			r := r
			failed = &r
			p.Terminate()
			break
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, 7, failed.Task)
	require.ErrorIs(t, p.Wait(), boom)
	require.Less(t, int(atomic.LoadInt32(&started)), 1000)
}

func TestPoolRecoversPanics(t *testing.T) {
	p := Start(context.Background(), 1, NewQueue(1), func(ctx context.Context, w, task int) (string, error) {
		panic("bad state")
	})
	r := <-p.Results()
	var perr *PanicError
	require.True(t, errors.As(r.Err, &perr))
	require.Equal(t, "bad state", perr.Value)
	require.Contains(t, string(perr.Stack), "pool_test.go")
	require.Error(t, p.Wait())
}

func TestPoolParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Start(ctx, 3, NewQueue(10), func(ctx context.Context, w, task int) (int, error) {
		return task, nil
	})
	for range p.Results() {
	}
	require.ErrorIs(t, p.Wait(), context.Canceled)
}

func TestWorkers(t *testing.T) {
	require.Equal(t, 3, Workers(3))
	require.Greater(t, Workers(0), 0)
}
