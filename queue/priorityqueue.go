package queue

import (
	"container/list"
	"context"
	"sync"
)

// PriorityQueueSet holds four independent FIFO queues, one per Priority
// tier, and drains higher tiers before lower ones (spec.md §4.2).
// Grounded on the teacher's non-blocking channel-fanout idiom in
// pulse/async.Queue.notifySubscribers, generalized here into a
// sync.Cond-based blocking pop so PopBlocking can park a goroutine
// instead of requiring callers to poll.
type PriorityQueueSet struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tiers map[Priority]*list.List
}

// NewPriorityQueueSet creates an empty set of the four tiers.
func NewPriorityQueueSet() *PriorityQueueSet {
	q := &PriorityQueueSet{
		tiers: map[Priority]*list.List{
			PriorityCritical: list.New(),
			PriorityHigh:     list.New(),
			PriorityNormal:   list.New(),
			PriorityLow:      list.New(),
		},
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push inserts jobID at the tail of its priority tier in O(1).
func (q *PriorityQueueSet) Push(priority Priority, jobID string) {
	q.mu.Lock()
	q.tiers[priority].PushBack(jobID)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// popLocked returns the head of the highest non-empty tier, or ("", false)
// if every tier is empty. Caller must hold q.mu.
func (q *PriorityQueueSet) popLocked() (string, bool) {
	for _, p := range priorityOrder {
		tier := q.tiers[p]
		if front := tier.Front(); front != nil {
			tier.Remove(front)
			return front.Value.(string), true
		}
	}
	return "", false
}

// TryPop returns the head of the highest non-empty tier without
// blocking, or ("", false) if every tier is currently empty.
func (q *PriorityQueueSet) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopBlocking blocks until any tier is non-empty, then returns the head
// of the highest-priority non-empty tier, strictly FIFO within a tier.
// Returns false if ctx is cancelled before an item becomes available.
func (q *PriorityQueueSet) PopBlocking(ctx context.Context) (string, bool) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-done:
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if jobID, ok := q.popLocked(); ok {
			return jobID, true
		}
		if ctx.Err() != nil {
			return "", false
		}
		q.cond.Wait()
	}
}

// Remove does a best-effort O(n) removal of jobID from whichever tier
// holds it, for cancellation (spec.md §4.2). Returns true if found.
func (q *PriorityQueueSet) Remove(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range priorityOrder {
		tier := q.tiers[p]
		for e := tier.Front(); e != nil; e = e.Next() {
			if e.Value.(string) == jobID {
				tier.Remove(e)
				return true
			}
		}
	}
	return false
}

// Len returns the total number of queued job IDs across all tiers.
func (q *PriorityQueueSet) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, tier := range q.tiers {
		total += tier.Len()
	}
	return total
}

// LenByTier returns the queue depth of a single tier. Used for metrics.
func (q *PriorityQueueSet) LenByTier(priority Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tiers[priority].Len()
}
