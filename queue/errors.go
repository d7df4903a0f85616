package queue

import "github.com/cheapskatecoder/draconic/errors"

// ErrorCode classifies why a job did not complete successfully. Unlike
// the teacher's ClassifyError, which sniffs an error's message text at
// report time, draconic's error kinds are enumerated by the spec and
// assigned explicitly at the call site that detects them.
type ErrorCode string

const (
	// Submission-time: no job record is persisted for these.
	ErrCycleDetected        ErrorCode = "CYCLE_DETECTED"
	ErrUnknownParent        ErrorCode = "UNKNOWN_PARENT"
	ErrUnsatisfiableResources ErrorCode = "UNSATISFIABLE_RESOURCES"
	ErrInvalidSpec          ErrorCode = "INVALID_SPEC"

	// Execution-time.
	ErrHandlerRetryable ErrorCode = "HANDLER_ERROR_RETRYABLE"
	ErrHandlerPermanent ErrorCode = "HANDLER_ERROR_PERMANENT"
	ErrHandlerCrash     ErrorCode = "HANDLER_CRASH"
	ErrTimeout          ErrorCode = "TIMEOUT"

	// Cascade-time.
	ErrDependencyFailed ErrorCode = "DEPENDENCY_FAILED"

	// Explicit.
	ErrCancelled ErrorCode = "CANCELLED"
)

// Retryable reports whether a terminal outcome tagged with this code is
// eligible for the Retry/DLQ Manager's backoff path (spec.md §7:
// dependency-failure and cancellation never retry; a permanent handler
// error goes straight to dead-letter; a crash is retried like a timeout
// and dead-lettered once its attempts are exhausted).
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrHandlerRetryable, ErrTimeout, ErrHandlerCrash:
		return true
	default:
		return false
	}
}

// SubmissionError wraps a submission-time rejection with its ErrorCode so
// callers (the HTTP layer, CLI) can report a machine-readable reason
// without parsing error text.
type SubmissionError struct {
	Code ErrorCode
	Err  error
}

func (e *SubmissionError) Error() string { return e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

func newSubmissionError(code ErrorCode, format string, args ...interface{}) *SubmissionError {
	return &SubmissionError{Code: code, Err: errors.Newf(format, args...)}
}

// ExecutionError is what an Executor Pool attempt reports when a job does
// not complete successfully. Handlers that want RETRYABLE semantics
// should wrap their error in one; any other error is treated as
// HANDLER_ERROR_PERMANENT, and a panic is always HANDLER_CRASH.
type ExecutionError struct {
	Code ErrorCode
	Err  error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }
func (e *ExecutionError) Unwrap() error { return e.Err }

// Retryable wraps err as a retryable handler failure (HANDLER_ERROR_RETRYABLE).
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{Code: ErrHandlerRetryable, Err: err}
}

// Permanent wraps err as a non-retryable handler failure (HANDLER_ERROR_PERMANENT).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{Code: ErrHandlerPermanent, Err: err}
}

// classifyExecutionError maps a handler's returned error onto an
// ErrorCode, defaulting to HANDLER_ERROR_PERMANENT for plain errors per
// spec.md §7 (a handler must opt in to retryable semantics via Retryable()).
func classifyExecutionError(err error) (ErrorCode, error) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code, execErr.Err
	}
	return ErrHandlerPermanent, err
}
