package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/logger"
)

// Metrics is a point-in-time snapshot of engine load, returned by the
// Core API's Metrics operation (spec.md §6). HostCPUPercent/HostMemPercent
// fields are populated by an optional host-stats sampler and are purely
// informational: they never gate admission (spec.md's Resource Ledger is
// the sole admission gate).
type Metrics struct {
	QueueDepth      int            `json:"queue_depth"`
	QueueDepthByTier map[string]int `json:"queue_depth_by_tier"`
	CPUFree         int            `json:"cpu_free"`
	CPUCapacity     int            `json:"cpu_capacity"`
	MemFreeMB       int            `json:"mem_free_mb"`
	MemCapacityMB   int            `json:"mem_capacity_mb"`
	StatusCounts    map[Status]int `json:"status_counts"`
	DLQDepth        int            `json:"dlq_depth"`

	HostCPUPercent float64 `json:"host_cpu_percent,omitempty"`
	HostMemPercent float64 `json:"host_mem_percent,omitempty"`
}

// HostSampler is implemented by an optional diagnostic sampler (see
// hoststats.go) that reports host-wide resource usage for Metrics.
type HostSampler interface {
	Sample() (cpuPercent, memPercent float64, err error)
}

// Scheduler wires every queue/ collaborator into the Core API spec.md §6
// describes: Submit, Get, List, Cancel, Subscribe, Metrics, DLQList,
// DLQRetry. It owns the admission loops' lifecycle and folds an
// Executor Pool's terminal Outcome into ledger release, status
// persistence, cascade propagation, and retry/dead-letter handling.
type Scheduler struct {
	defaults DefaultsConfig

	ledger   *Ledger
	queue    *PriorityQueueSet
	graph    *DependencyGraph
	store    *Store
	handlers *HandlerRegistry
	executor *ExecutorPool
	retry    *RetryManager
	cascade  *CascadeEngine
	events   *eventBus

	sampler HostSampler

	runningMu    sync.Mutex
	running      map[string]context.CancelFunc
	admitters    []*AdmissionController
	cancelAdmit  context.CancelFunc
	admitWG      sync.WaitGroup
}

// Config bundles the construction-time parameters a Scheduler needs.
type Config struct {
	CPUCapacity     int
	MemCapacityMB   int
	MaxConcurrent   int
	AdmissionLoops  int
	Defaults        DefaultsConfig
	RetryPolicy     RetryPolicy
}

// NewScheduler constructs a Scheduler backed by store (already
// migrated) and handlers (already populated with every registered job
// type). It does not start the admission loops; call Start for that.
func NewScheduler(cfg Config, store *Store, handlers *HandlerRegistry) *Scheduler {
	if cfg.AdmissionLoops <= 0 {
		cfg.AdmissionLoops = 1
	}

	ledger := NewLedger(cfg.CPUCapacity, cfg.MemCapacityMB)
	q := NewPriorityQueueSet()
	graph := NewDependencyGraph()
	executor := NewExecutorPool(cfg.MaxConcurrent, handlers)
	retry := NewRetryManager(cfg.RetryPolicy, store, q)
	cascade := NewCascadeEngine(graph, store, q)

	s := &Scheduler{
		defaults: cfg.Defaults,
		ledger:   ledger,
		queue:    q,
		graph:    graph,
		store:    store,
		handlers: handlers,
		executor: executor,
		retry:    retry,
		cascade:  cascade,
		events:   newEventBus(),
		running:  make(map[string]context.CancelFunc),
	}

	for i := 0; i < cfg.AdmissionLoops; i++ {
		ac := NewAdmissionController(q, ledger, store, executor, s.handleOutcome)
		ac.OnRegisterRunning(s.registerRunning)
		s.admitters = append(s.admitters, ac)
	}
	return s
}

// SetHostSampler installs an optional host-diagnostics sampler used by
// Metrics. Never required for correct scheduling.
func (s *Scheduler) SetHostSampler(sampler HostSampler) {
	s.sampler = sampler
}

// Start launches every admission loop. It returns immediately; the
// loops run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelAdmit = cancel

	for _, ac := range s.admitters {
		ac := ac
		s.admitWG.Add(1)
		go func() {
			defer s.admitWG.Done()
			ac.Run(runCtx)
		}()
	}
}

// Stop cancels every admission loop and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancelAdmit != nil {
		s.cancelAdmit()
	}
	s.admitWG.Wait()
}

// Submit validates and admits a new job, rejecting invalid submissions
// with no record ever persisted (spec.md §7). It returns the stored Job
// on success, already pushed to the queue if its dependencies are
// satisfied.
func (s *Scheduler) Submit(spec Spec) (*Job, error) {
	if err := s.validateSpec(spec); err != nil {
		return nil, err
	}
	if !s.ledger.Fits(spec.CPUUnits, spec.MemoryMB) {
		return nil, newSubmissionError(ErrUnsatisfiableResources,
			"job requests cpu_units=%d memory_mb=%d, exceeding total capacity", spec.CPUUnits, spec.MemoryMB)
	}

	id := uuid.NewString()
	now := time.Now()
	job := newJob(id, spec, s.defaults, now)

	if err := s.graph.Insert(id, spec.DependsOn); err != nil {
		return nil, err
	}

	status, failCode, err := s.resolveInitialStatus(spec.DependsOn)
	if err != nil {
		return nil, err
	}
	job.Status = status
	if status == StatusFailed {
		job.LastErrorCode = failCode
		job.LastErrorMessage = "a dependency did not complete successfully"
		finished := now
		job.FinishedAt = &finished
	}

	if err := s.store.Create(job); err != nil {
		return nil, err
	}
	if len(spec.DependsOn) > 0 {
		if err := s.store.AddEdges(id, spec.DependsOn); err != nil {
			return nil, err
		}
	}

	s.events.publish(Event{Kind: EventSubmitted, JobID: id, Status: job.Status, Timestamp: now})

	switch job.Status {
	case StatusReady:
		s.queue.Push(job.Priority, id)
		s.events.publish(Event{Kind: EventReady, JobID: id, Status: StatusReady, Timestamp: now})
	case StatusFailed:
		s.events.publish(Event{Kind: EventFailed, JobID: id, Status: StatusFailed, Timestamp: now})
		s.cascade.OnTerminal(id, StatusFailed)
	}

	logger.PulseInfow("scheduler: submitted", "job_id", id, "type", job.Type, "priority", job.Priority, "status", job.Status)
	return job, nil
}

func (s *Scheduler) validateSpec(spec Spec) error {
	if spec.Type == "" {
		return newSubmissionError(ErrInvalidSpec, "job type must not be empty")
	}
	if spec.Priority != "" && !spec.Priority.Valid() {
		return newSubmissionError(ErrInvalidSpec, "invalid priority %q", spec.Priority)
	}
	if spec.CPUUnits < 0 || spec.MemoryMB < 0 {
		return newSubmissionError(ErrInvalidSpec, "cpu_units and memory_mb must be non-negative")
	}
	if spec.BackoffMultiplier < 0 {
		return newSubmissionError(ErrInvalidSpec, "backoff_multiplier must be non-negative")
	}
	if spec.TimeoutSeconds < 0 {
		return newSubmissionError(ErrInvalidSpec, "timeout_seconds must be non-negative")
	}
	return nil
}

// resolveInitialStatus inspects the current status of every declared
// parent (already-known jobs, guaranteed by graph.Insert's
// UNKNOWN_PARENT check) to decide whether a new job starts READY,
// BLOCKED, or immediately FAILED(DEPENDENCY_FAILED) because a parent
// already failed before this child was submitted (spec.md §4.8).
func (s *Scheduler) resolveInitialStatus(dependsOn []string) (Status, ErrorCode, error) {
	if len(dependsOn) == 0 {
		return StatusReady, "", nil
	}

	allCompleted := true
	for _, parentID := range dependsOn {
		parent, err := s.store.Get(parentID)
		if err != nil {
			return "", "", err
		}
		if parent.Status.Terminal() && !parent.Status.TerminalSuccess() {
			return StatusFailed, ErrDependencyFailed, nil
		}
		if parent.Status != StatusCompleted {
			allCompleted = false
		}
	}
	if allCompleted {
		return StatusReady, "", nil
	}
	return StatusBlocked, "", nil
}

// Get returns a single job by id.
func (s *Scheduler) Get(id string) (*Job, error) {
	return s.store.Get(id)
}

// List returns every job known to the engine.
func (s *Scheduler) List() ([]*Job, error) {
	return s.store.List()
}

// Cancel transitions a job to CANCELLED. A queued job (PENDING, BLOCKED,
// READY) is cancelled immediately and removed from the Priority Queue
// Set; a RUNNING job's handler context is cancelled and the Executor
// Pool reports the CANCELLED outcome asynchronously once the handler
// observes ctx.Done(). A job already in a terminal status returns
// ErrAlreadyTerminal.
func (s *Scheduler) Cancel(id string) error {
	job, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return errors.Wrapf(ErrAlreadyTerminal, "job %s", id)
	}

	if job.Status == StatusRunning {
		s.runningMu.Lock()
		cancel, ok := s.running[id]
		s.runningMu.Unlock()
		if ok {
			cancel()
		}
		return nil
	}

	ok, err := s.store.CASStatus(id, job.Status, StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf("job %s changed status concurrently, retry cancel", id)
	}
	s.queue.Remove(id)

	now := time.Now()
	job.Status = StatusCancelled
	job.LastErrorCode = ErrCancelled
	job.FinishedAt = &now
	if err := s.store.Update(job); err != nil {
		return err
	}

	s.events.publish(Event{Kind: EventCancelled, JobID: id, Status: StatusCancelled, Timestamp: now})
	s.cascade.OnTerminal(id, StatusCancelled)
	return nil
}

// ErrAlreadyTerminal is returned by Cancel when the job has already
// reached a terminal status.
var ErrAlreadyTerminal = errors.New("job already in a terminal status")

// Subscribe returns a stream of lifecycle Events and an unsubscribe func.
func (s *Scheduler) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// Metrics returns a point-in-time load snapshot.
func (s *Scheduler) Metrics() Metrics {
	cpuFree, memFree := s.ledger.Snapshot()
	cpuCap, memCap := s.ledger.Capacity()

	byTier := make(map[string]int, len(priorityOrder))
	for _, p := range priorityOrder {
		byTier[string(p)] = s.queue.LenByTier(p)
	}

	statusCounts := make(map[Status]int)
	jobs, err := s.store.List()
	if err == nil {
		for _, j := range jobs {
			statusCounts[j.Status]++
		}
	}

	dlq, err := s.store.ListDLQ()
	dlqDepth := 0
	if err == nil {
		dlqDepth = len(dlq)
	}

	m := Metrics{
		QueueDepth:       s.queue.Len(),
		QueueDepthByTier: byTier,
		CPUFree:          cpuFree,
		CPUCapacity:      cpuCap,
		MemFreeMB:        memFree,
		MemCapacityMB:    memCap,
		StatusCounts:     statusCounts,
		DLQDepth:         dlqDepth,
	}

	if s.sampler != nil {
		if cpuPct, memPct, err := s.sampler.Sample(); err == nil {
			m.HostCPUPercent = cpuPct
			m.HostMemPercent = memPct
		}
	}
	return m
}

// DLQList returns every job ID currently dead-lettered.
func (s *Scheduler) DLQList() ([]string, error) {
	return s.store.ListDLQ()
}

// DLQRetry resets a dead-lettered job's attempt count and returns it to
// the READY queue (spec.md §4.7's explicit administrative action).
func (s *Scheduler) DLQRetry(id string) (*Job, error) {
	job, err := s.retry.Retry(id)
	if err != nil {
		return nil, err
	}
	s.events.publish(Event{Kind: EventRetrying, JobID: id, Status: StatusReady, Timestamp: time.Now()})
	return job, nil
}

func (s *Scheduler) registerRunning(jobID string, cancel context.CancelFunc) {
	s.runningMu.Lock()
	s.running[jobID] = cancel
	s.runningMu.Unlock()
	s.events.publish(Event{Kind: EventStarted, JobID: jobID, Status: StatusRunning, Timestamp: time.Now()})
}

// handleOutcome is the Executor Pool's onDone callback: it releases
// ledger capacity, persists the terminal status, starts the cascade in
// its own goroutine, and hands FAILED/TIMEOUT jobs to the Retry/DLQ Manager (spec.md §4.6).
func (s *Scheduler) handleOutcome(job *Job, outcome Outcome) {
	s.runningMu.Lock()
	if cancel, ok := s.running[job.ID]; ok {
		cancel()
		delete(s.running, job.ID)
	}
	s.runningMu.Unlock()

	s.ledger.Release(job.CPUUnits, job.MemoryMB)

	ok, err := s.store.CASStatus(job.ID, StatusRunning, outcome.Status)
	if err != nil || !ok {
		logger.PulseWarnw("scheduler: failed to cas terminal status", "job_id", job.ID, "status", outcome.Status, "error", err, "cas_ok", ok)
	}

	now := time.Now()
	job.Status = outcome.Status
	job.LastErrorCode = outcome.ErrorCode
	job.LastErrorMessage = outcome.ErrorMessage
	job.FinishedAt = &now
	if err := s.store.Update(job); err != nil {
		logger.PulseWarnw("scheduler: failed to persist terminal job", "job_id", job.ID, "error", err)
	}

	s.events.publish(Event{Kind: eventKindFor(outcome.Status), JobID: job.ID, Status: outcome.Status, Timestamp: now})

	go s.cascade.OnTerminal(job.ID, outcome.Status)

	if outcome.Status == StatusFailed || outcome.Status == StatusTimeout {
		if err := s.retry.Handle(job); err != nil {
			logger.PulseWarnw("scheduler: retry/dlq handling failed", "job_id", job.ID, "error", err)
		}
	}
}

func eventKindFor(status Status) EventKind {
	switch status {
	case StatusCompleted:
		return EventCompleted
	case StatusFailed:
		return EventFailed
	case StatusTimeout:
		return EventTimedOut
	case StatusCancelled:
		return EventCancelled
	default:
		return EventFailed
	}
}
