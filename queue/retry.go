package queue

import (
	"math"
	"time"

	"github.com/cheapskatecoder/draconic/logger"
)

// RetryPolicy computes backoff delays and decides between a retry
// re-enqueue and a dead-letter handoff (spec.md §4.7).
type RetryPolicy struct {
	BaseDelay time.Duration
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// Delay computes d = base_delay * backoff_multiplier^(attempt-1),
// clamped to [MinDelay, MaxDelay]. attempt is the job's attempt count
// after the failing dispatch (1-indexed).
func (p RetryPolicy) Delay(attempt int, backoffMultiplier float64) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(backoffMultiplier, float64(attempt-1))
	delay := time.Duration(d)
	if delay < p.MinDelay {
		delay = p.MinDelay
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// RetryManager owns the FAILED/TIMEOUT -> {retry, dead-letter} decision
// and the delayed re-enqueue. Grounded on pulse/async.RetryableError's
// increment-and-requeue shape, generalized from the teacher's single
// fixed MaxRetries constant to the spec's per-job max_attempts and
// exponential-backoff clamp.
type RetryManager struct {
	policy RetryPolicy
	store  *Store
	queue  *PriorityQueueSet
	// afterFunc is the scheduling primitive for the retry delay;
	// overridden in tests to avoid real sleeps.
	afterFunc func(time.Duration, func())
}

// NewRetryManager creates a manager using the given policy and
// collaborators. Production callers should leave afterFunc nil to use
// time.AfterFunc.
func NewRetryManager(policy RetryPolicy, store *Store, queue *PriorityQueueSet) *RetryManager {
	return &RetryManager{
		policy: policy,
		store:  store,
		queue:  queue,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// SetAfterFuncForTest overrides the retry-delay scheduling primitive,
// letting tests trigger a scheduled retry deterministically instead of
// waiting out a real backoff.
func (m *RetryManager) SetAfterFuncForTest(fn func(time.Duration, func())) {
	m.afterFunc = fn
}

// Handle processes a terminal FAILED/TIMEOUT outcome, deciding whether to
// schedule a retry or route the job to the dead-letter queue. job must
// already reflect the failing attempt (Attempt incremented, Status set
// by the caller before calling Handle).
func (m *RetryManager) Handle(job *Job) error {
	retryable := job.LastErrorCode.Retryable() && job.Attempt < job.MaxAttempts
	if !retryable {
		return m.deadLetter(job)
	}

	delay := m.policy.Delay(job.Attempt, job.BackoffMultiplier)
	logger.PulseInfow("retry: scheduling delayed re-enqueue", "job_id", job.ID, "attempt", job.Attempt, "delay", delay)

	jobID := job.ID
	priority := job.Priority
	m.afterFunc(delay, func() {
		m.requeue(jobID, priority)
	})
	return nil
}

// requeue transitions a job from its failed terminal state straight to
// READY (no PENDING status is written in between), pushing it back onto
// the Priority Queue Set. attempt is not reset across retries (spec.md §4.7).
func (m *RetryManager) requeue(jobID string, priority Priority) {
	job, err := m.store.Get(jobID)
	if err != nil {
		logger.PulseWarnw("retry: job vanished before re-enqueue", "job_id", jobID, "error", err)
		return
	}

	job.Status = StatusReady
	job.LastErrorCode = ""
	job.LastErrorMessage = ""
	if err := m.store.Update(job); err != nil {
		logger.PulseWarnw("retry: failed to persist re-enqueue", "job_id", jobID, "error", err)
		return
	}

	m.queue.Push(priority, jobID)
}

// deadLetter routes job to the dead-letter queue once attempts are
// exhausted or the error kind is non-retryable.
func (m *RetryManager) deadLetter(job *Job) error {
	job.Status = StatusDeadLettered
	if err := m.store.Update(job); err != nil {
		return err
	}
	logger.DLQWarnw("retry: dead-lettered", "job_id", job.ID, "attempt", job.Attempt, "error_code", job.LastErrorCode)
	return m.store.PutDLQ(job)
}

// Retry resets attempt to 0 and returns a dead-lettered job straight to
// READY, pushing it onto the Priority Queue Set; this is the only way attempt ever decreases (spec.md §4.7's explicit
// administrative DLQ-retry action).
func (m *RetryManager) Retry(jobID string) (*Job, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}

	job.Attempt = 0
	job.Status = StatusReady
	job.LastErrorCode = ""
	job.LastErrorMessage = ""
	if err := m.store.Update(job); err != nil {
		return nil, err
	}
	if err := m.store.DeleteDLQ(jobID); err != nil {
		return nil, err
	}

	m.queue.Push(job.Priority, jobID)
	return job, nil
}
