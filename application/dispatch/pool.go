package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

const (
	// DefaultWorkers is the number of requests processed at once
	DefaultWorkers = 5

	// DefaultQueueSize is the number of requests that may wait for a worker
	DefaultQueueSize = 100
)

// ErrPoolClosed is returned by Submit once the pool is draining or stopped
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of work run by the pool
type Task func(ctx context.Context)

// Recorder receives pool observations (implemented by the metrics package)
type Recorder interface {
	WorkerBusy()
	WorkerIdle()
	SetQueueDepth(n int)
}

type nopRecorder struct{}

func (nopRecorder) WorkerBusy() {}
func (nopRecorder) WorkerIdle() {}
func (nopRecorder) SetQueueDepth(int) {}

// Pool runs submitted tasks on a fixed number of workers.
// Tasks beyond the worker count wait in a bounded queue.
type Pool struct {
	workers  int
	queue    chan Task
	logger   *slog.Logger
	recorder Recorder

	mu      sync.RWMutex
	started bool
	closed  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PoolOption is a functional option for configuring Pool
type PoolOption func(*Pool)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) PoolOption {
	return func(p *Pool) {
		if r != nil {
			p.recorder = r
		}
	}
}

// NewPool creates a pool; non-positive sizes fall back to the defaults
func NewPool(workers, queueSize int, opts ...PoolOption) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Pool{
		workers:  workers,
		queue:    make(chan Task, queueSize),
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers. Tasks receive a context derived from ctx that
// is cancelled by Stop.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(workerCtx, i)
	}

	p.logger.Info("worker pool started", "workers", p.workers, "queue_size", cap(p.queue))
	return nil
}

// Submit queues a task. It blocks while the queue is full until space frees
// up or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task:
		p.recorder.SetQueueDepth(len(p.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain stops accepting tasks and waits until every queued task has run
func (p *Pool) Drain() {
	if !p.close() {
		return
	}
	p.wg.Wait()
	p.cancelWorkers()
	p.logger.Info("worker pool drained")
}

// Stop stops accepting tasks, cancels running tasks and waits for workers to
// exit. Queued tasks still run, with an already cancelled context.
func (p *Pool) Stop() {
	closed := p.close()
	p.cancelWorkers()
	if !closed {
		return
	}
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// close marks the pool closed and closes the queue; it reports whether this
// call did the closing
func (p *Pool) close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.closed = true
	close(p.queue)
	return true
}

func (p *Pool) cancelWorkers() {
	p.mu.RLock()
	cancel := p.cancel
	p.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()

	for task := range p.queue {
		p.recorder.SetQueueDepth(len(p.queue))
		p.run(ctx, id, task)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	p.recorder.WorkerBusy()
	defer p.recorder.WorkerIdle()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panic", "worker", id, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	task(ctx)
}
