package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	"github.com/smartreview-app/smartreview/pkg/utils/async"
)

// safeBuffer is a thread-safe buffer for concurrent logging
type safeBuffer struct {
	b bytes.Buffer
	m sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.String()
}

func TestPool(t *testing.T) {
	t.Run("executes handler asynchronously", func(t *testing.T) {
		pool := async.NewPool(2, 4)
		defer pool.Shutdown(context.Background())

		var wg sync.WaitGroup
		var executed atomic.Bool

		wg.Add(1)
		ok := pool.Dispatch(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			executed.Store(true)
			return nil
		})

		gt.True(t, ok)
		wg.Wait()
		gt.True(t, executed.Load())
	})

	t.Run("handler errors do not affect other handlers", func(t *testing.T) {
		pool := async.NewPool(1, 4)
		defer pool.Shutdown(context.Background())

		var wg sync.WaitGroup
		var completed atomic.Int32

		wg.Add(2)
		pool.Dispatch(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			return errors.New("first handler failed")
		})
		pool.Dispatch(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			completed.Add(1)
			return nil
		})

		wg.Wait()
		gt.V(t, completed.Load()).Equal(1)
	})

	t.Run("recovers from panic", func(t *testing.T) {
		pool := async.NewPool(1, 4)
		defer pool.Shutdown(context.Background())

		done := make(chan bool, 1)

		pool.Dispatch(context.Background(), func(ctx context.Context) error {
			defer func() {
				done <- true
			}()
			panic("test panic")
		})

		select {
		case <-done:
			// pass if the worker survived the panic
		case <-time.After(1 * time.Second):
			t.Fatal("handler did not complete within timeout")
		}

		// Worker must still be alive after the panic.
		var wg sync.WaitGroup
		wg.Add(1)
		ok := pool.Dispatch(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			return nil
		})
		gt.True(t, ok)
		wg.Wait()
	})

	t.Run("error hook fires on handler error", func(t *testing.T) {
		var hooked atomic.Int32
		var wg sync.WaitGroup

		pool := async.NewPool(1, 4, async.WithErrorHook(func(ctx context.Context, err error) {
			hooked.Add(1)
			wg.Done()
		}))
		defer pool.Shutdown(context.Background())

		wg.Add(1)
		pool.Dispatch(context.Background(), func(ctx context.Context) error {
			return errors.New("boom")
		})

		wg.Wait()
		gt.V(t, hooked.Load()).Equal(1)
	})

	t.Run("preserves logger in detached context", func(t *testing.T) {
		logBuf := &safeBuffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, nil))

		ctx := ctxlog.With(context.Background(), logger)

		pool := async.NewPool(1, 4)
		defer pool.Shutdown(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		pool.Dispatch(ctx, func(newCtx context.Context) error {
			defer wg.Done()
			gt.NotNil(t, ctxlog.From(newCtx))
			return nil
		})
		wg.Wait()
	})

	t.Run("detached context survives request cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		pool := async.NewPool(1, 4)
		defer pool.Shutdown(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		pool.Dispatch(ctx, func(newCtx context.Context) error {
			defer wg.Done()
			cancel()
			select {
			case <-newCtx.Done():
				t.Error("detached context was cancelled")
			default:
			}
			return nil
		})
		wg.Wait()
	})

	t.Run("full queue rejects without blocking", func(t *testing.T) {
		pool := async.NewPool(1, 1)
		defer pool.Shutdown(context.Background())

		block := make(chan struct{})
		var wg sync.WaitGroup

		// Occupy the single worker.
		wg.Add(1)
		pool.Dispatch(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			<-block
			return nil
		})

		// Fill the queue, then overflow. Exactly one extra dispatch
		// fits; the next must report a drop.
		var accepted int
		for i := 0; i < 3; i++ {
			if pool.Dispatch(context.Background(), func(ctx context.Context) error {
				return nil
			}) {
				accepted++
			}
		}

		gt.V(t, accepted < 3).Equal(true)
		close(block)
		wg.Wait()
	})

	t.Run("dispatch after shutdown is rejected", func(t *testing.T) {
		pool := async.NewPool(1, 4)
		gt.NoError(t, pool.Shutdown(context.Background()))

		ok := pool.Dispatch(context.Background(), func(ctx context.Context) error {
			t.Error("handler ran after shutdown")
			return nil
		})
		gt.V(t, ok).Equal(false)

		// Shutdown stays idempotent.
		gt.NoError(t, pool.Shutdown(context.Background()))
	})
}
