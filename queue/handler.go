package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/cheapskatecoder/draconic/errors"
)

// Handler executes one job type's opaque payload. A handler that wants
// a failure treated as retryable must return an error wrapped with
// Retryable(); any other error (or a panic) is treated as permanent or
// a crash respectively (spec.md §4.6).
type Handler interface {
	Execute(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

// HandlerRegistry is a thread-safe map from job type name to the
// Handler that executes it. Grounded on pulse/async.HandlerRegistry.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given job type name. It panics on a
// duplicate registration, since two handlers silently racing for the
// same type name is always a programming error, never a runtime
// condition to recover from.
func (r *HandlerRegistry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[jobType]; exists {
		panic(fmt.Sprintf("queue: handler already registered for job type %q", jobType))
	}
	r.handlers[jobType] = handler
}

// Get returns the handler for jobType, or (nil, false) if none is registered.
func (r *HandlerRegistry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Has reports whether a handler is registered for jobType.
func (r *HandlerRegistry) Has(jobType string) bool {
	_, ok := r.Get(jobType)
	return ok
}

// Names returns every registered job type name.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// errNoHandler is returned (wrapped as HANDLER_ERROR_PERMANENT) when a
// job's type has no registered handler at dispatch time.
var errNoHandler = errors.New("no handler registered for job type")
