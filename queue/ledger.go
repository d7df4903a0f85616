package queue

import (
	"sync"

	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/logger"
)

// Ledger is a pure two-dimensional semaphore over CPU units and memory
// MB. It has no knowledge of jobs, priority, or the host machine — it
// only ever answers "does the configured capacity have room" (spec.md
// §4.1). Grounded on pulse/budget.Limiter's injectable-clock,
// mutex-guarded counter shape, generalized from a single rolling-window
// counter to the two independent capacity counters this ledger needs.
type Ledger struct {
	mu sync.Mutex

	cpuCapacity int
	memCapacity int

	cpuFree int
	memFree int
}

// NewLedger creates a Ledger with the given total capacity.
func NewLedger(cpuCapacity, memCapacity int) *Ledger {
	return &Ledger{
		cpuCapacity: cpuCapacity,
		memCapacity: memCapacity,
		cpuFree:     cpuCapacity,
		memFree:     memCapacity,
	}
}

// TryAcquire atomically succeeds iff both cpu and mem fit within the
// currently free capacity, decrementing both. It never blocks; callers
// re-queue on false (spec.md §4.1).
func (l *Ledger) TryAcquire(cpu, mem int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cpu > l.cpuFree || mem > l.memFree {
		return false
	}

	l.cpuFree -= cpu
	l.memFree -= mem
	logger.LedgerDebugw("acquired", "cpu", cpu, "mem", mem, "cpu_free", l.cpuFree, "mem_free", l.memFree)
	return true
}

// Release increments both counters. It panics if doing so would exceed
// configured capacity — that can only happen from a double-release bug,
// never from normal operation (spec.md §4.1).
func (l *Ledger) Release(cpu, mem int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cpuFree+cpu > l.cpuCapacity || l.memFree+mem > l.memCapacity {
		panic(errors.Newf("ledger release would exceed capacity: cpu_free=%d+%d cap=%d, mem_free=%d+%d cap=%d",
			l.cpuFree, cpu, l.cpuCapacity, l.memFree, mem, l.memCapacity))
	}

	l.cpuFree += cpu
	l.memFree += mem
	logger.LedgerDebugw("released", "cpu", cpu, "mem", mem, "cpu_free", l.cpuFree, "mem_free", l.memFree)
}

// Snapshot returns the currently free capacity. Observational only.
func (l *Ledger) Snapshot() (cpuFree, memFree int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cpuFree, l.memFree
}

// Capacity returns the total configured capacity.
func (l *Ledger) Capacity() (cpuCapacity, memCapacity int) {
	return l.cpuCapacity, l.memCapacity
}

// Fits reports whether cpu/mem could ever be admitted against total
// capacity, regardless of current availability. Used at submission time
// to reject UNSATISFIABLE_RESOURCES jobs immediately (spec.md §7) rather
// than queueing something that can never be dispatched.
func (l *Ledger) Fits(cpu, mem int) bool {
	return cpu <= l.cpuCapacity && mem <= l.memCapacity
}
