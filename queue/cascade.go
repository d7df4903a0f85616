package queue

import "github.com/cheapskatecoder/draconic/logger"

// CascadeEngine walks a terminal job's children transitively, promoting
// BLOCKED children to READY once every parent has COMPLETED, or failing
// them with DEPENDENCY_FAILED when a parent's outcome was not a success
// (spec.md §4.8). Cascade runs off the executor's critical path so a
// deep dependency chain never delays the resource release that freed
// the Ledger capacity.
type CascadeEngine struct {
	graph *DependencyGraph
	store *Store
	queue *PriorityQueueSet
}

// NewCascadeEngine wires the collaborators needed to walk and mutate
// dependent jobs.
func NewCascadeEngine(graph *DependencyGraph, store *Store, queue *PriorityQueueSet) *CascadeEngine {
	return &CascadeEngine{graph: graph, store: store, queue: queue}
}

// OnTerminal is invoked once for every job that reaches a terminal
// status, propagating readiness or failure to its direct and transitive
// children.
func (c *CascadeEngine) OnTerminal(parentID string, parentStatus Status) {
	c.propagate(parentID, parentStatus)
}

func (c *CascadeEngine) propagate(parentID string, outcome Status) {
	for _, childID := range c.graph.Children(parentID) {
		child, err := c.store.Get(childID)
		if err != nil {
			logger.PulseWarnw("cascade: child vanished", "parent_id", parentID, "child_id", childID, "error", err)
			continue
		}
		if child.Status != StatusBlocked {
			continue // already progressed past BLOCKED by another path
		}

		if outcome.TerminalSuccess() {
			if c.allParentsCompleted(childID) {
				child.Status = StatusReady
				if err := c.store.Update(child); err != nil {
					logger.PulseWarnw("cascade: failed to ready child", "child_id", childID, "error", err)
					continue
				}
				c.queue.Push(child.Priority, childID)
			}
			continue
		}

		child.Status = StatusFailed
		child.LastErrorCode = ErrDependencyFailed
		child.LastErrorMessage = "a dependency did not complete successfully"
		if err := c.store.Update(child); err != nil {
			logger.PulseWarnw("cascade: failed to fail child", "child_id", childID, "error", err)
			continue
		}
		c.propagate(childID, StatusFailed)
	}
}

func (c *CascadeEngine) allParentsCompleted(jobID string) bool {
	for _, parentID := range c.graph.Parents(jobID) {
		parent, err := c.store.Get(parentID)
		if err != nil || parent.Status != StatusCompleted {
			return false
		}
	}
	return true
}
