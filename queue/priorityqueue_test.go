package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueueSet_DrainsHighestTierFirst(t *testing.T) {
	q := NewPriorityQueueSet()

	q.Push(PriorityLow, "low-1")
	q.Push(PriorityNormal, "normal-1")
	q.Push(PriorityCritical, "critical-1")
	q.Push(PriorityHigh, "high-1")

	id, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "critical-1", id)

	id, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "high-1", id)

	id, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "normal-1", id)

	id, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "low-1", id)
}

func TestPriorityQueueSet_FIFOWithinTier(t *testing.T) {
	q := NewPriorityQueueSet()
	q.Push(PriorityNormal, "first")
	q.Push(PriorityNormal, "second")
	q.Push(PriorityNormal, "third")

	for _, want := range []string{"first", "second", "third"} {
		id, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, id)
	}
}

func TestPriorityQueueSet_TryPopEmpty(t *testing.T) {
	q := NewPriorityQueueSet()
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestPriorityQueueSet_PopBlockingWakesOnPush(t *testing.T) {
	q := NewPriorityQueueSet()
	ctx := context.Background()

	result := make(chan string, 1)
	go func() {
		id, ok := q.PopBlocking(ctx)
		if ok {
			result <- id
		} else {
			result <- ""
		}
	}()

	time.Sleep(20 * time.Millisecond) // let the blocking pop actually park
	q.Push(PriorityHigh, "job-1")

	select {
	case id := <-result:
		assert.Equal(t, "job-1", id)
	case <-time.After(time.Second):
		t.Fatal("PopBlocking did not wake up after Push")
	}
}

func TestPriorityQueueSet_PopBlockingReturnsOnCancel(t *testing.T) {
	q := NewPriorityQueueSet()
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan bool, 1)
	go func() {
		_, ok := q.PopBlocking(ctx)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("PopBlocking did not return after ctx cancellation")
	}
}

func TestPriorityQueueSet_Remove(t *testing.T) {
	q := NewPriorityQueueSet()
	q.Push(PriorityNormal, "a")
	q.Push(PriorityNormal, "b")
	q.Push(PriorityNormal, "c")

	assert.True(t, q.Remove("b"))
	assert.False(t, q.Remove("b"), "second remove of the same id finds nothing")

	var remaining []string
	for {
		id, ok := q.TryPop()
		if !ok {
			break
		}
		remaining = append(remaining, id)
	}
	assert.Equal(t, []string{"a", "c"}, remaining)
}

func TestPriorityQueueSet_LenAndLenByTier(t *testing.T) {
	q := NewPriorityQueueSet()
	q.Push(PriorityCritical, "a")
	q.Push(PriorityCritical, "b")
	q.Push(PriorityLow, "c")

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 2, q.LenByTier(PriorityCritical))
	assert.Equal(t, 0, q.LenByTier(PriorityHigh))
	assert.Equal(t, 1, q.LenByTier(PriorityLow))
}
