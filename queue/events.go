package queue

import (
	"sync"
	"time"
)

// EventKind enumerates the job lifecycle transitions the Core API's
// Subscribe stream reports (spec.md §6).
type EventKind string

const (
	EventSubmitted    EventKind = "SUBMITTED"
	EventReady        EventKind = "READY"
	EventStarted      EventKind = "STARTED"
	EventCompleted    EventKind = "COMPLETED"
	EventFailed       EventKind = "FAILED"
	EventTimedOut     EventKind = "TIMED_OUT"
	EventCancelled    EventKind = "CANCELLED"
	EventDeadLettered EventKind = "DEAD_LETTERED"
	EventRetrying     EventKind = "RETRYING"
)

// Event is a single job lifecycle notification delivered to subscribers.
type Event struct {
	Kind      EventKind `json:"kind"`
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// eventBus fans a single stream of Events out to any number of
// subscribers without letting a slow subscriber back-pressure the
// scheduler. Grounded on pulse/async.Queue's subscriber slice + the
// non-blocking "select default" send in notifySubscribers.
type eventBus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

func newEventBus() *eventBus {
	return &eventBus{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a channel that receives every future Event, and an
// unsubscribe function the caller must call when done listening.
func (b *eventBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// publish delivers event to every current subscriber. A subscriber whose
// buffer is full is skipped for this event rather than blocking the
// publisher (spec.md's engine must never stall on an inattentive
// observer).
func (b *eventBus) publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
