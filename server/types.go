package server

import (
	"encoding/json"

	"github.com/cheapskatecoder/draconic/queue"
)

// submitRequest is the JSON body of POST /v1/jobs. Its fields mirror
// queue.Spec directly since the server does no scheduling of its own.
type submitRequest struct {
	Type              string          `json:"type"`
	Priority          queue.Priority  `json:"priority,omitempty"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	CPUUnits          int             `json:"cpu_units"`
	MemoryMB          int             `json:"memory_mb"`
	DependsOn         []string        `json:"depends_on,omitempty"`
	MaxAttempts       int             `json:"max_attempts,omitempty"`
	BackoffMultiplier float64         `json:"backoff_multiplier,omitempty"`
	TimeoutSeconds    int             `json:"timeout_seconds,omitempty"`
}

func (r submitRequest) toSpec() queue.Spec {
	return queue.Spec{
		Type:              r.Type,
		Priority:          r.Priority,
		Payload:           r.Payload,
		CPUUnits:          r.CPUUnits,
		MemoryMB:          r.MemoryMB,
		DependsOn:         r.DependsOn,
		MaxAttempts:       r.MaxAttempts,
		BackoffMultiplier: r.BackoffMultiplier,
		TimeoutSeconds:    r.TimeoutSeconds,
	}
}

// jobListResponse wraps a job slice so the envelope can grow fields
// (e.g. pagination) without breaking existing clients.
type jobListResponse struct {
	Jobs []*queue.Job `json:"jobs"`
}

// dlqListResponse wraps a dead-letter id slice in the same spirit.
type dlqListResponse struct {
	JobIDs []string `json:"job_ids"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string          `json:"error"`
	Code  queue.ErrorCode `json:"code,omitempty"`
}
