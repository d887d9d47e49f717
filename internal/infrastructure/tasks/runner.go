package tasks

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the dispatch queue cannot accept more work
var ErrQueueFull = errors.New("tasks: dispatch queue is full")

// ErrStopped is returned when work is dispatched after Shutdown began
var ErrStopped = errors.New("tasks: runner is stopped")

// task is one queued unit of background work
type task struct {
	name string
	fn   func(ctx context.Context)
}

// Runner executes background work on a bounded worker pool. Dispatched
// work runs detached from the submitting request: it gets a fresh context
// so an HTTP handler returning early never cancels a running pipeline.
type Runner struct {
	logger  *zap.Logger
	queue   chan task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu      sync.Mutex
	started bool
}

// NewRunner creates a Runner with the given worker count and queue depth.
// Each task is bounded by timeout; zero means no per-task deadline.
func NewRunner(workers, queueDepth int, timeout time.Duration, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		logger:  logger,
		queue:   make(chan task, queueDepth),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.started = true
	return r
}

// Dispatch queues named work for background execution. Returns ErrQueueFull
// when the queue is saturated and ErrStopped once Shutdown has begun; the
// caller decides whether either is fatal.
func (r *Runner) Dispatch(name string, fn func(ctx context.Context)) error {
	// The started check and the send must share the mutex with Shutdown,
	// which closes the queue; a send racing the close would panic.
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrStopped
	}
	select {
	case r.queue <- task{name: name, fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting work and waits for in-flight tasks to finish,
// up to the context deadline.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for t := range r.queue {
		r.run(t)
	}
}

// run executes one task with panic recovery so a misbehaving pipeline
// never takes down the worker pool.
func (r *Runner) run(t task) {
	ctx := r.ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("background task panicked",
				zap.String("task", t.name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	start := time.Now()
	r.logger.Debug("background task started", zap.String("task", t.name))
	t.fn(ctx)
	r.logger.Debug("background task finished",
		zap.String("task", t.name),
		zap.Duration("duration", time.Since(start)))
}
