package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
)

// Pool runs handlers on a fixed set of worker goroutines with a bounded
// queue, so a burst of webhook deliveries cannot spawn unbounded work.
// Each handler gets a detached context: values needed by the handler
// (the ctxlog logger) are preserved, but cancellation of the inbound
// request does not cancel the background work.
type Pool struct {
	queue     chan job
	wg        sync.WaitGroup
	errorHook func(ctx context.Context, err error)

	// mu guards closed and, held shared, the send on queue, so Dispatch
	// after Shutdown reports a drop instead of panicking on the closed
	// channel.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

type job struct {
	ctx     context.Context
	handler func(ctx context.Context) error
}

// Option configures a Pool.
type Option func(*Pool)

// WithErrorHook registers a callback invoked with every error returned
// by a handler, after it has been logged. Used for error reporting
// (e.g. Sentry).
func WithErrorHook(hook func(ctx context.Context, err error)) Option {
	return func(p *Pool) {
		p.errorHook = hook
	}
}

// NewPool starts a pool with the given number of workers and queue
// capacity. Values below 1 are clamped to 1.
func NewPool(workers, queueSize int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		queue: make(chan job, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Dispatch enqueues a handler without blocking. Reports false when the
// queue is full or the pool has been shut down; the caller decides how
// to log the drop.
func (p *Pool) Dispatch(ctx context.Context, handler func(ctx context.Context) error) bool {
	j := job{
		ctx:     detachContext(ctx),
		handler: handler,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.queue <- j:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting work and waits for in-flight handlers to
// finish or ctx to expire. Dispatch calls after Shutdown are rejected.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for j := range p.queue {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(j.ctx).Error("panic in async handler",
				"recover", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := j.handler(j.ctx); err != nil {
		ctxlog.From(j.ctx).Error("error in async handler", "error", err)
		if p.errorHook != nil {
			p.errorHook(j.ctx, err)
		}
	}
}

// detachContext builds a background context preserving the ctxlog
// logger from the request context.
func detachContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
