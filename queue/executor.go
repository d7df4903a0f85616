package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/cheapskatecoder/draconic/errors"
)

// Outcome is what the Executor Pool reports back once a dispatched job
// reaches a terminal state (spec.md §4.6).
type Outcome struct {
	Status       Status
	ErrorCode    ErrorCode
	ErrorMessage string
}

// ExecutorPool runs jobs under a bounded concurrency limit, enforcing a
// per-job timeout and recovering handler panics into HANDLER_CRASH
// outcomes so a misbehaving handler can never take the pool down.
// Grounded on pulse/async.WorkerPool's ticker-driven worker loop and
// panic-safety posture, generalized from N polling goroutines into a
// semaphore-gated submit so the pool's size is a hard concurrency bound
// rather than a count of poll loops.
type ExecutorPool struct {
	handlers *HandlerRegistry
	sem      chan struct{}
}

// NewExecutorPool creates a pool bounded to maxConcurrent simultaneous
// handler invocations, dispatching to handlers for each job's Type.
func NewExecutorPool(maxConcurrent int, handlers *HandlerRegistry) *ExecutorPool {
	return &ExecutorPool{
		handlers: handlers,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Submit blocks until a concurrency slot is free, then runs job in its
// own goroutine and invokes onDone with the terminal Outcome. ctx
// cancellation (scheduler shutdown) aborts the wait for a free slot;
// Submit returns immediately without running the job in that case.
func (p *ExecutorPool) Submit(ctx context.Context, job *Job, onDone func(*Job, Outcome)) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	go func() {
		defer func() { <-p.sem }()
		onDone(job, p.execute(ctx, job))
	}()
}

// handlerPanic tags a recovered panic so execute can distinguish a crash
// from a plain handler-returned error.
type handlerPanic struct{ err error }

func (h *handlerPanic) Error() string { return h.err.Error() }
func (h *handlerPanic) Unwrap() error { return h.err }

// execute invokes the registered handler under a timeout derived from
// job.TimeoutSeconds, converting a missing handler, a handler-reported
// error, a timeout, or a recovered panic into the matching Outcome.
func (p *ExecutorPool) execute(ctx context.Context, job *Job) Outcome {
	handler, ok := p.handlers.Get(job.Type)
	if !ok {
		return Outcome{Status: StatusFailed, ErrorCode: ErrHandlerPermanent, ErrorMessage: errNoHandler.Error()}
	}

	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- &handlerPanic{err: errors.Newf("handler panic: %v", r)}
			}
		}()
		result <- handler.Execute(execCtx, job)
	}()

	select {
	case err := <-result:
		if err == nil {
			return Outcome{Status: StatusCompleted}
		}
		return classifyOutcome(err)
	case <-execCtx.Done():
		if ctx.Err() != nil {
			// Either an explicit per-job cancel or pool-wide shutdown;
			// both are the CANCELLED terminal status, never a retryable FAILED.
			return Outcome{Status: StatusCancelled, ErrorCode: ErrCancelled, ErrorMessage: "job cancelled"}
		}
		return Outcome{Status: StatusTimeout, ErrorCode: ErrTimeout, ErrorMessage: fmt.Sprintf("exceeded %s timeout", timeout)}
	}
}

func classifyOutcome(err error) Outcome {
	var panicErr *handlerPanic
	if errors.As(err, &panicErr) {
		return Outcome{Status: StatusFailed, ErrorCode: ErrHandlerCrash, ErrorMessage: panicErr.Error()}
	}
	code, unwrapped := classifyExecutionError(err)
	return Outcome{Status: StatusFailed, ErrorCode: code, ErrorMessage: unwrapped.Error()}
}
