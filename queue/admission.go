package queue

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/cheapskatecoder/draconic/logger"
)

// resourceShortageBackoff bounds the admission loop's spin-avoidance
// sleep on a resource-shortage requeue (spec.md §4.5: "sleep small
// backoff (e.g. 10-50ms) to avoid spin"). Grounded on the teacher's
// golang.org/x/time/rate use in ats/watcher.Engine, adopted here to
// smooth the requeue retry rate under sustained contention instead of a
// fixed time.Sleep, so a burst of simultaneously-blocked admitters
// doesn't all wake on the same tick.
var resourceShortageLimiter = rate.NewLimiter(rate.Every(10*time.Millisecond), 1)

// AdmissionController implements the single logical loop of spec.md
// §4.5: pop in priority order, acquire resources, CAS to RUNNING, hand
// to the Executor Pool. Multiple instances may run concurrently against
// the same PriorityQueueSet/Ledger/Store (spec.md §5) since every step
// is either lock-protected (ledger, queue) or CAS-guarded (store).
type AdmissionController struct {
	queue    *PriorityQueueSet
	ledger   *Ledger
	store    *Store
	executor *ExecutorPool
	onDone   func(*Job, Outcome)

	// registerRunning, if set, is called with a per-job cancel func right
	// before dispatch so the Scheduler can support explicit cancellation
	// of a RUNNING job (spec.md §4.9). Optional.
	registerRunning func(jobID string, cancel context.CancelFunc)
}

// NewAdmissionController wires one admission loop. onDone is invoked by
// the Executor Pool once a dispatched job reaches a terminal outcome;
// the Scheduler supplies this to fold in cascade and retry handling.
func NewAdmissionController(queue *PriorityQueueSet, ledger *Ledger, store *Store, executor *ExecutorPool, onDone func(*Job, Outcome)) *AdmissionController {
	return &AdmissionController{
		queue:    queue,
		ledger:   ledger,
		store:    store,
		executor: executor,
		onDone:   onDone,
	}
}

// OnRegisterRunning installs the callback used to hand the Scheduler a
// cancel func for each dispatched job.
func (a *AdmissionController) OnRegisterRunning(fn func(jobID string, cancel context.CancelFunc)) {
	a.registerRunning = fn
}

// Run executes the admission loop until ctx is cancelled. Intended to be
// started as its own goroutine; the Scheduler may start several for
// extra admission throughput (spec.md §5).
func (a *AdmissionController) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return // a requeued job would otherwise be popped again forever
		}
		id, ok := a.queue.PopBlocking(ctx)
		if !ok {
			return // ctx cancelled
		}
		a.tryAdmit(ctx, id)
	}
}

func (a *AdmissionController) tryAdmit(ctx context.Context, id string) {
	job, err := a.store.Get(id)
	if err != nil {
		logger.PulseWarnw("admission: job vanished from store", "job_id", id, "error", err)
		return
	}

	if job.Status != StatusReady {
		// Stale entry: cancelled or superseded since it was pushed.
		return
	}

	if !a.ledger.TryAcquire(job.CPUUnits, job.MemoryMB) {
		a.queue.Push(job.Priority, id) // requeue at tail of same priority
		if err := resourceShortageLimiter.Wait(ctx); err != nil {
			return
		}
		return
	}

	ok, err := a.store.CASStatus(id, StatusReady, StatusRunning)
	if err != nil {
		logger.PulseWarnw("admission: cas to running failed", "job_id", id, "error", err)
		a.ledger.Release(job.CPUUnits, job.MemoryMB)
		return
	}
	if !ok {
		// Lost the race (e.g. a cancel beat us to it); release and move on.
		a.ledger.Release(job.CPUUnits, job.MemoryMB)
		return
	}

	now := time.Now()
	job.Attempt++
	job.Status = StatusRunning
	job.StartedAt = &now
	if err := a.store.Update(job); err != nil {
		logger.PulseWarnw("admission: failed to persist dispatch", "job_id", id, "error", err)
	}

	logger.PulseInfow("admission: dispatched", "job_id", id, "type", job.Type, "priority", job.Priority, "attempt", job.Attempt)

	jobCtx, cancel := context.WithCancel(ctx)
	if a.registerRunning != nil {
		a.registerRunning(id, cancel)
	}
	a.executor.Submit(jobCtx, job, a.onDone)
}
