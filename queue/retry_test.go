package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtest "github.com/cheapskatecoder/draconic/internal/testing"
	"github.com/cheapskatecoder/draconic/queue"
)

func TestRetryPolicy_Delay_ExponentialBackoffClampedToBounds(t *testing.T) {
	p := queue.RetryPolicy{BaseDelay: time.Second, MinDelay: time.Second, MaxDelay: 5 * time.Minute}

	assert.Equal(t, time.Second, p.Delay(1, 2.0))
	assert.Equal(t, 2*time.Second, p.Delay(2, 2.0))
	assert.Equal(t, 4*time.Second, p.Delay(3, 2.0))
	assert.Equal(t, 5*time.Minute, p.Delay(20, 2.0), "delay must clamp to MaxDelay for large attempt counts")
}

func TestRetryPolicy_Delay_ClampsToMinimum(t *testing.T) {
	p := queue.RetryPolicy{BaseDelay: time.Millisecond, MinDelay: time.Second, MaxDelay: time.Minute}
	assert.Equal(t, time.Second, p.Delay(1, 2.0))
}

// syncAfterFunc lets tests trigger a scheduled retry deterministically
// instead of waiting out a real backoff, mirroring the teacher's
// mockClock-style injected time seam.
type syncAfterFunc struct {
	mu      sync.Mutex
	pending []func()
}

func (s *syncAfterFunc) schedule(_ time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
}

func (s *syncAfterFunc) runAll() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

func newTestRetryManager(t *testing.T) (*queue.RetryManager, *queue.Store, *syncAfterFunc) {
	t.Helper()
	db := dbtest.CreateTestDB(t)
	store := queue.NewStore(db)
	q := queue.NewPriorityQueueSet()
	policy := queue.RetryPolicy{BaseDelay: time.Millisecond, MinDelay: time.Millisecond, MaxDelay: time.Second}

	manager := queue.NewRetryManager(policy, store, q)
	sync := &syncAfterFunc{}
	manager.SetAfterFuncForTest(sync.schedule)
	return manager, store, sync
}

func TestRetryManager_RetryableFailureRequeuesAfterDelay(t *testing.T) {
	manager, store, sync := newTestRetryManager(t)

	job := sampleJob("job-1")
	job.Status = queue.StatusFailed
	job.Attempt = 1
	job.MaxAttempts = 3
	job.LastErrorCode = queue.ErrHandlerRetryable
	require.NoError(t, store.Create(job))

	require.NoError(t, manager.Handle(job))
	sync.runAll()

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReady, got.Status)
	assert.Equal(t, 1, got.Attempt, "attempt count is never reset by a retry")
}

func TestRetryManager_ExhaustedAttemptsDeadLetters(t *testing.T) {
	manager, store, _ := newTestRetryManager(t)

	job := sampleJob("job-1")
	job.Status = queue.StatusFailed
	job.Attempt = 3
	job.MaxAttempts = 3
	job.LastErrorCode = queue.ErrHandlerRetryable
	require.NoError(t, store.Create(job))

	require.NoError(t, manager.Handle(job))

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusDeadLettered, got.Status)

	ids, err := store.ListDLQ()
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, ids)
}

func TestRetryManager_PermanentErrorDeadLettersImmediately(t *testing.T) {
	manager, store, _ := newTestRetryManager(t)

	job := sampleJob("job-1")
	job.Status = queue.StatusFailed
	job.Attempt = 1
	job.MaxAttempts = 3
	job.LastErrorCode = queue.ErrHandlerPermanent
	require.NoError(t, store.Create(job))

	require.NoError(t, manager.Handle(job))

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusDeadLettered, got.Status)
}

func TestRetryManager_Retry_ResetsAttemptAndClearsDLQ(t *testing.T) {
	manager, store, _ := newTestRetryManager(t)

	job := sampleJob("job-1")
	job.Status = queue.StatusDeadLettered
	job.Attempt = 3
	job.LastErrorCode = queue.ErrHandlerPermanent
	job.LastErrorMessage = "boom"
	require.NoError(t, store.Create(job))
	require.NoError(t, store.PutDLQ(job))

	got, err := manager.Retry("job-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempt)
	assert.Equal(t, queue.StatusReady, got.Status)
	assert.Empty(t, got.LastErrorCode)

	ids, err := store.ListDLQ()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
