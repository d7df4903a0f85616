package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtest "github.com/cheapskatecoder/draconic/internal/testing"
	"github.com/cheapskatecoder/draconic/queue"
)

func newTestStore(t *testing.T) *queue.Store {
	t.Helper()
	db := dbtest.CreateTestDB(t)
	return queue.NewStore(db)
}

func sampleJob(id string) *queue.Job {
	now := time.Now()
	return &queue.Job{
		ID:                id,
		Type:              "send_email",
		Priority:          queue.PriorityNormal,
		CPUUnits:          1,
		MemoryMB:          256,
		MaxAttempts:       3,
		BackoffMultiplier: 2.0,
		TimeoutSeconds:    60,
		Status:            queue.StatusReady,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	job := sampleJob("job-1")
	require.NoError(t, s.Create(job))

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, job.Type, got.Type)
	assert.Equal(t, job.Status, got.Status)
	assert.Equal(t, job.CPUUnits, got.CPUUnits)
}

func TestStore_GetMissingReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestStore_CASStatus_SucceedsOnMatch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(sampleJob("job-1")))

	ok, err := s.CASStatus("job-1", queue.StatusReady, queue.StatusRunning)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusRunning, got.Status)
}

func TestStore_CASStatus_FailsOnMismatch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(sampleJob("job-1")))

	ok, err := s.CASStatus("job-1", queue.StatusRunning, queue.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, ok, "CAS must fail when the current status doesn't match expected")

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReady, got.Status, "a failed CAS must not mutate the row")
}

func TestStore_ListByStatus(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(sampleJob("ready-1")))

	blocked := sampleJob("blocked-1")
	blocked.Status = queue.StatusBlocked
	require.NoError(t, s.Create(blocked))

	ready, err := s.ListByStatus(queue.StatusReady)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "ready-1", ready[0].ID)
}

func TestStore_DLQRoundTrip(t *testing.T) {
	s := newTestStore(t)
	job := sampleJob("job-1")
	job.Status = queue.StatusDeadLettered
	job.LastErrorCode = queue.ErrHandlerPermanent
	job.LastErrorMessage = "boom"
	require.NoError(t, s.Create(job))
	require.NoError(t, s.PutDLQ(job))

	ids, err := s.ListDLQ()
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, ids)

	require.NoError(t, s.DeleteDLQ("job-1"))
	ids, err = s.ListDLQ()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_EdgesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(sampleJob("parent-1")))
	require.NoError(t, s.Create(sampleJob("child-1")))

	require.NoError(t, s.AddEdges("child-1", []string{"parent-1"}))

	children, err := s.Children("parent-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"child-1"}, children)
}
