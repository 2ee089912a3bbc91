package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllTasks(t *testing.T) {
	p := NewPool(3, 10)
	require.NoError(t, p.Start(context.Background()))

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
			ran.Add(1)
		}))
	}

	p.Drain()
	assert.Equal(t, int32(20), ran.Load())
}

func TestPool_NeverExceedsWorkerCount(t *testing.T) {
	const workers = 2
	p := NewPool(workers, 50)
	require.NoError(t, p.Start(context.Background()))

	var active, maxActive atomic.Int32
	for i := 0; i < 12; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
		}))
	}

	p.Drain()
	assert.LessOrEqual(t, maxActive.Load(), int32(workers))
	assert.Equal(t, int32(workers), maxActive.Load(), "expected the pool to use every worker")
}

func TestPool_SubmitAfterDrain(t *testing.T) {
	p := NewPool(1, 1)
	require.NoError(t, p.Start(context.Background()))
	p.Drain()

	err := p.Submit(context.Background(), func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.ErrorIs(t, p.Start(context.Background()), ErrPoolClosed)
}

func TestPool_StartTwice(t *testing.T) {
	p := NewPool(1, 1)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Error(t, p.Start(context.Background()))
}

func TestPool_SubmitBlocksWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1)

	// Not started: the single queue slot fills and the next Submit waits.
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func(ctx context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_RecoversTaskPanic(t *testing.T) {
	p := NewPool(1, 4)
	require.NoError(t, p.Start(context.Background()))

	var ran atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		panic("boom")
	}))
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		ran.Store(true)
	}))

	p.Drain()
	assert.True(t, ran.Load(), "worker should survive a panicking task")
}

func TestPool_StopCancelsRunningTasks(t *testing.T) {
	p := NewPool(1, 1)
	require.NoError(t, p.Start(context.Background()))

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}))

	<-started
	p.Stop()
	assert.True(t, cancelled.Load())

	// Stop is idempotent
	p.Stop()
	p.Drain()
}

type countingRecorder struct {
	mu      sync.Mutex
	busy    int
	maxBusy int
	depths  []int
}

func (r *countingRecorder) WorkerBusy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy++
	if r.busy > r.maxBusy {
		r.maxBusy = r.busy
	}
}

func (r *countingRecorder) WorkerIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy--
}

func (r *countingRecorder) SetQueueDepth(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depths = append(r.depths, n)
}

func TestPool_ReportsToRecorder(t *testing.T) {
	rec := &countingRecorder{}
	p := NewPool(2, 8, WithRecorder(rec))
	require.NoError(t, p.Start(context.Background()))

	for i := 0; i < 6; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
		}))
	}
	p.Drain()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 0, rec.busy)
	assert.LessOrEqual(t, rec.maxBusy, 2)
	assert.NotEmpty(t, rec.depths)
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(0, -1)
	assert.Equal(t, DefaultWorkers, p.Workers())
	assert.Equal(t, DefaultQueueSize, cap(p.queue))
}
