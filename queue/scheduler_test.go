package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtest "github.com/cheapskatecoder/draconic/internal/testing"
	"github.com/cheapskatecoder/draconic/queue"
)

func newTestScheduler(t *testing.T) (*queue.Scheduler, *queue.HandlerRegistry) {
	t.Helper()
	db := dbtest.CreateTestDB(t)
	store := queue.NewStore(db)
	handlers := queue.NewHandlerRegistry()

	cfg := queue.Config{
		CPUCapacity:    4,
		MemCapacityMB:  1024,
		MaxConcurrent:  4,
		AdmissionLoops: 1,
		Defaults:       queue.DefaultsConfig{MaxAttempts: 3, BackoffMultiplier: 2.0, TimeoutSeconds: 5},
	}
	return queue.NewScheduler(cfg, store, handlers), handlers
}

func TestScheduler_SubmitRootJobRunsToCompletion(t *testing.T) {
	s, handlers := newTestScheduler(t)
	done := make(chan struct{})
	handlers.Register("noop", queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error {
		close(done)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	job, err := s.Submit(queue.Spec{Type: "noop", CPUUnits: 1, MemoryMB: 64})
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReady, job.Status)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submitted job never ran")
	}

	// Give handleOutcome a moment to persist the terminal status.
	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == queue.StatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_Submit_RejectsUnsatisfiableResources(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Submit(queue.Spec{Type: "noop", CPUUnits: 100, MemoryMB: 64})
	require.Error(t, err)

	var subErr *queue.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, queue.ErrUnsatisfiableResources, subErr.Code)
}

func TestScheduler_Submit_RejectsUnknownParent(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Submit(queue.Spec{Type: "noop", DependsOn: []string{"ghost"}})
	require.Error(t, err)

	var subErr *queue.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, queue.ErrUnknownParent, subErr.Code)
}

func TestScheduler_Submit_RejectsEmptyType(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Submit(queue.Spec{})
	require.Error(t, err)

	var subErr *queue.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, queue.ErrInvalidSpec, subErr.Code)
}

func TestScheduler_Submit_ChildStartsBlockedUntilParentCompletes(t *testing.T) {
	s, handlers := newTestScheduler(t)
	handlers.Register("noop", queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error { return nil }))

	// Submit both jobs before starting admission so the parent cannot
	// have completed yet when the child's initial status is resolved.
	parent, err := s.Submit(queue.Spec{Type: "noop"})
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReady, parent.Status)

	child, err := s.Submit(queue.Spec{Type: "noop", DependsOn: []string{parent.ID}})
	require.NoError(t, err)
	assert.Equal(t, queue.StatusBlocked, child.Status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		got, err := s.Get(child.ID)
		return err == nil && got.Status == queue.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_Cancel_QueuedJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	job, err := s.Submit(queue.Spec{Type: "noop"})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(job.ID))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCancelled, got.Status)
}

func TestScheduler_Cancel_AlreadyTerminalReturnsError(t *testing.T) {
	s, _ := newTestScheduler(t)

	job, err := s.Submit(queue.Spec{Type: "noop"})
	require.NoError(t, err)
	require.NoError(t, s.Cancel(job.ID))

	err = s.Cancel(job.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrAlreadyTerminal)
}

func TestScheduler_DLQRetry(t *testing.T) {
	s, handlers := newTestScheduler(t)
	handlers.Register("always_fails", queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error {
		return queue.Permanent(assertErr("boom"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	job, err := s.Submit(queue.Spec{Type: "always_fails", MaxAttempts: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := s.Get(job.ID)
		return err == nil && got.Status == queue.StatusDeadLettered
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	ids, err := s.DLQList()
	require.NoError(t, err)
	assert.Contains(t, ids, job.ID)

	retried, err := s.DLQRetry(job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReady, retried.Status)
	assert.Equal(t, 0, retried.Attempt)
}

func TestScheduler_Metrics(t *testing.T) {
	s, _ := newTestScheduler(t)
	_, err := s.Submit(queue.Spec{Type: "noop"})
	require.NoError(t, err)

	m := s.Metrics()
	assert.Equal(t, 4, m.CPUCapacity)
	assert.Equal(t, 1024, m.MemCapacityMB)
	assert.GreaterOrEqual(t, m.StatusCounts[queue.StatusReady], 1)
}

func TestScheduler_Subscribe_ReceivesSubmittedEvent(t *testing.T) {
	s, _ := newTestScheduler(t)
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	job, err := s.Submit(queue.Spec{Type: "noop"})
	require.NoError(t, err)

	select {
	case e := <-ch:
		assert.Equal(t, job.ID, e.JobID)
		assert.Equal(t, queue.EventSubmitted, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the SUBMITTED event")
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
