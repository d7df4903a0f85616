package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtest "github.com/cheapskatecoder/draconic/internal/testing"
	"github.com/cheapskatecoder/draconic/queue"
)

func TestAdmissionController_DispatchesReadyJobUnderCapacity(t *testing.T) {
	db := dbtest.CreateTestDB(t)
	store := queue.NewStore(db)
	q := queue.NewPriorityQueueSet()
	ledger := queue.NewLedger(4, 1024)
	handlers := queue.NewHandlerRegistry()

	ran := make(chan struct{})
	handlers.Register("t", queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error {
		close(ran)
		return nil
	}))
	executor := queue.NewExecutorPool(2, handlers)

	job := sampleJob("job-1")
	job.Type = "t"
	job.CPUUnits = 1
	job.MemoryMB = 128
	require.NoError(t, store.Create(job))
	q.Push(queue.PriorityNormal, "job-1")

	done := make(chan struct{})
	ac := queue.NewAdmissionController(q, ledger, store, executor, func(*queue.Job, queue.Outcome) {
		close(done)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go ac.Run(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDone was never called")
	}

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempt)
}

func TestAdmissionController_RequeuesOnResourceShortage(t *testing.T) {
	db := dbtest.CreateTestDB(t)
	store := queue.NewStore(db)
	q := queue.NewPriorityQueueSet()
	ledger := queue.NewLedger(1, 128) // too small for the job below
	handlers := queue.NewHandlerRegistry()
	executor := queue.NewExecutorPool(1, handlers)

	job := sampleJob("job-1")
	job.CPUUnits = 4
	job.MemoryMB = 1024
	require.NoError(t, store.Create(job))
	q.Push(queue.PriorityNormal, "job-1")

	ac := queue.NewAdmissionController(q, ledger, store, executor, func(*queue.Job, queue.Outcome) {})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ac.Run(ctx)

	// Requeued rather than dispatched: status must remain READY.
	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReady, got.Status)
	assert.Equal(t, 0, got.Attempt)
}

func TestAdmissionController_SkipsStaleQueueEntry(t *testing.T) {
	db := dbtest.CreateTestDB(t)
	store := queue.NewStore(db)
	q := queue.NewPriorityQueueSet()
	ledger := queue.NewLedger(4, 1024)
	handlers := queue.NewHandlerRegistry()
	invoked := false
	handlers.Register("t", queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error {
		invoked = true
		return nil
	}))
	executor := queue.NewExecutorPool(1, handlers)

	job := sampleJob("job-1")
	job.Type = "t"
	job.Status = queue.StatusCancelled // already cancelled before admission runs
	require.NoError(t, store.Create(job))
	q.Push(queue.PriorityNormal, "job-1")

	ac := queue.NewAdmissionController(q, ledger, store, executor, func(*queue.Job, queue.Outcome) {})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ac.Run(ctx)

	assert.False(t, invoked, "a stale (non-READY) queue entry must never reach the executor")
}

// TestAdmissionController_CASRaceLossReleasesLedger injects a CAS
// failure via sqlmock to exercise the branch where another admitter (or
// an explicit cancel) wins the race to transition the job, verifying
// the ledger capacity acquired for the attempt is still released.
func TestAdmissionController_CASRaceLossReleasesLedger(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	store := queue.NewStore(mockDB)
	q := queue.NewPriorityQueueSet()
	ledger := queue.NewLedger(4, 1024)
	handlers := queue.NewHandlerRegistry()
	executor := queue.NewExecutorPool(1, handlers)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "type", "priority", "payload", "cpu_units", "memory_mb",
		"max_attempts", "backoff_multiplier", "timeout_seconds",
		"status", "attempt", "last_error_code", "last_error_message",
		"created_at", "updated_at", "started_at", "finished_at",
	}).AddRow("job-1", "t", "NORMAL", []byte(nil), 1, 128, 3, 2.0, 60, "READY", 0, nil, nil, now, now, nil, nil)

	mock.ExpectQuery("SELECT").WillReturnRows(rows)
	// CAS loses the race: RowsAffected 0.
	mock.ExpectExec("UPDATE jobs SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	q.Push(queue.PriorityNormal, "job-1")
	ac := queue.NewAdmissionController(q, ledger, store, executor, func(*queue.Job, queue.Outcome) {})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	ac.Run(ctx)

	cpuFree, memFree := ledger.Snapshot()
	assert.Equal(t, 4, cpuFree, "a lost CAS race must release the capacity it provisionally acquired")
	assert.Equal(t, 1024, memFree)

	assert.NoError(t, mock.ExpectationsWereMet())
}
