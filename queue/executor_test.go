package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobWithTimeout(id string, seconds int) *Job {
	return &Job{ID: id, Type: "t", TimeoutSeconds: seconds}
}

func TestExecutorPool_SuccessfulRun(t *testing.T) {
	handlers := NewHandlerRegistry()
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error { return nil }))
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(context.Background(), jobWithTimeout("job-1", 10), func(job *Job, o Outcome) {
		outcome = o
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, StatusCompleted, outcome.Status)
}

func TestExecutorPool_HandlerErrorDefaultsToPermanent(t *testing.T) {
	handlers := NewHandlerRegistry()
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error {
		return plainError("handler failed")
	}))
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(context.Background(), jobWithTimeout("job-1", 10), func(job *Job, o Outcome) {
		outcome = o
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, ErrHandlerPermanent, outcome.ErrorCode)
}

func TestExecutorPool_RetryableHandlerError(t *testing.T) {
	handlers := NewHandlerRegistry()
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error {
		return Retryable(plainError("try again"))
	}))
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(context.Background(), jobWithTimeout("job-1", 10), func(job *Job, o Outcome) {
		outcome = o
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, ErrHandlerRetryable, outcome.ErrorCode)
}

func TestExecutorPool_HandlerPanicBecomesCrash(t *testing.T) {
	handlers := NewHandlerRegistry()
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error {
		panic("handler exploded")
	}))
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(context.Background(), jobWithTimeout("job-1", 10), func(job *Job, o Outcome) {
		outcome = o
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, ErrHandlerCrash, outcome.ErrorCode)
}

func TestExecutorPool_MissingHandlerIsPermanentFailure(t *testing.T) {
	handlers := NewHandlerRegistry()
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(context.Background(), jobWithTimeout("job-1", 10), func(job *Job, o Outcome) {
		outcome = o
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, ErrHandlerPermanent, outcome.ErrorCode)
}

func TestExecutorPool_TimeoutReportsTimeoutCode(t *testing.T) {
	handlers := NewHandlerRegistry()
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(context.Background(), jobWithTimeout("job-1", 0), func(job *Job, o Outcome) {
		// TimeoutSeconds=0 immediately expires the handler's context.
		outcome = o
		wg.Done()
	})

	select {
	case <-waitDone(&wg):
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not report an outcome before the test deadline")
	}
	assert.Equal(t, StatusTimeout, outcome.Status)
	assert.Equal(t, ErrTimeout, outcome.ErrorCode)
}

func TestExecutorPool_ExplicitCancelReportsCancelled(t *testing.T) {
	handlers := NewHandlerRegistry()
	started := make(chan struct{})
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	pool := NewExecutorPool(2, handlers)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var outcome Outcome
	pool.Submit(ctx, jobWithTimeout("job-1", 30), func(job *Job, o Outcome) {
		outcome = o
		wg.Done()
	})

	<-started
	cancel()
	wg.Wait()

	assert.Equal(t, StatusCancelled, outcome.Status)
	assert.Equal(t, ErrCancelled, outcome.ErrorCode)
}

func TestExecutorPool_BoundsConcurrency(t *testing.T) {
	handlers := NewHandlerRegistry()
	var active, maxActive int32
	var mu sync.Mutex
	release := make(chan struct{})
	handlers.Register("t", HandlerFunc(func(ctx context.Context, job *Job) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		<-release
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}))
	pool := NewExecutorPool(2, handlers)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		pool.Submit(context.Background(), jobWithTimeout("job", 10), func(job *Job, o Outcome) {
			wg.Done()
		})
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	got := maxActive
	mu.Unlock()
	require.LessOrEqual(t, got, int32(2), "pool of size 2 must never run more than 2 handlers concurrently")

	close(release)
	wg.Wait()
}

func waitDone(wg *sync.WaitGroup) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}
