package queue

import (
	"encoding/json"
	"time"
)

// Priority is one of four scheduling tiers. The Priority Queue Set drains
// higher tiers before lower ones.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityNormal   Priority = "NORMAL"
	PriorityLow      Priority = "LOW"
)

// priorityOrder lists tiers from highest to lowest drain precedence.
var priorityOrder = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}

// Valid reports whether p is one of the four defined tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

// Status is a job's position in its lifecycle.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusBlocked      Status = "BLOCKED"
	StatusReady        Status = "READY"
	StatusRunning      Status = "RUNNING"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
	StatusTimeout      Status = "TIMEOUT"
	StatusCancelled    Status = "CANCELLED"
	StatusDeadLettered Status = "DEAD_LETTERED"
)

// Terminal reports whether a status never transitions further except
// through the Retry/DLQ manager's explicit re-enqueue.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled, StatusDeadLettered:
		return true
	default:
		return false
	}
}

// TerminalSuccess reports whether s is the one status that satisfies a
// child's dependency readiness condition (spec.md §3 invariant 6).
func (s Status) TerminalSuccess() bool {
	return s == StatusCompleted
}

// Job is the unit of work scheduled and executed by draconic. Payload is
// an opaque blob handed verbatim to the registered handler; the engine
// never inspects its contents.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Priority Priority        `json:"priority"`
	Payload  json.RawMessage `json:"payload,omitempty"`

	CPUUnits int `json:"cpu_units"`
	MemoryMB int `json:"memory_mb"`

	DependsOn []string `json:"depends_on,omitempty"`

	MaxAttempts       int     `json:"max_attempts"`
	BackoffMultiplier float64 `json:"backoff_multiplier"`
	TimeoutSeconds    int     `json:"timeout_seconds"`

	Status  Status `json:"status"`
	Attempt int    `json:"attempt"`

	LastErrorCode    ErrorCode `json:"last_error_code,omitempty"`
	LastErrorMessage string    `json:"last_error_message,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Spec is the caller-supplied description of a job submission; the
// scheduler fills in defaults, assigns an ID, and produces a Job from it.
type Spec struct {
	Type      string          `json:"type"`
	Priority  Priority        `json:"priority"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CPUUnits  int             `json:"cpu_units"`
	MemoryMB  int             `json:"memory_mb"`
	DependsOn []string        `json:"depends_on,omitempty"`

	MaxAttempts       int     `json:"max_attempts,omitempty"`
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty"`
	TimeoutSeconds    int     `json:"timeout_seconds,omitempty"`
}

// newJob constructs a Job from a submission Spec, an assigned ID, and the
// resolved defaults (spec.md §3: max_attempts, backoff_multiplier,
// timeout_seconds fall back to configured defaults when unset).
func newJob(id string, spec Spec, defaults DefaultsConfig, now time.Time) *Job {
	maxAttempts := spec.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaults.MaxAttempts
	}
	backoffMultiplier := spec.BackoffMultiplier
	if backoffMultiplier == 0 {
		backoffMultiplier = defaults.BackoffMultiplier
	}
	timeoutSeconds := spec.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaults.TimeoutSeconds
	}

	priority := spec.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	return &Job{
		ID:                id,
		Type:              spec.Type,
		Priority:          priority,
		Payload:           spec.Payload,
		CPUUnits:          spec.CPUUnits,
		MemoryMB:          spec.MemoryMB,
		DependsOn:         spec.DependsOn,
		MaxAttempts:       maxAttempts,
		BackoffMultiplier: backoffMultiplier,
		TimeoutSeconds:    timeoutSeconds,
		Status:            StatusPending,
		Attempt:           0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// DefaultsConfig mirrors config.DefaultsConfig without importing the
// config package, keeping queue free of a dependency on how the process
// loads its configuration.
type DefaultsConfig struct {
	MaxAttempts       int
	BackoffMultiplier float64
	TimeoutSeconds    int
}
