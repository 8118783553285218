package vesselsync

import (
	"sync"

	"github.com/coregx/vesselsync/model"
)

// DefaultQueueCapacity bounds the offline queue when no capacity is configured.
const DefaultQueueCapacity = 10000

// OfflineQueue is a bounded in-memory FIFO of not-yet-delivered messages.
//
// Insertion order is the call order of the business logic; the queue never
// reorders or deduplicates. When the queue is at capacity, enqueueing removes
// exactly one element, the oldest, before appending the new tail: under
// sustained overload the policy favors recency over completeness.
//
// Thread safety: all operations hold an internal mutex. The queue is mutated
// from publish paths and the flush loop concurrently.
type OfflineQueue struct {
	mu       sync.Mutex
	items    []model.QueuedMessage
	capacity int
}

// NewOfflineQueue creates a bounded queue.
// A capacity <= 0 falls back to DefaultQueueCapacity.
func NewOfflineQueue(capacity int) *OfflineQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &OfflineQueue{
		items:    make([]model.QueuedMessage, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue appends a message at the tail. If the queue is at capacity the
// oldest message is evicted first and returned with dropped=true.
func (q *OfflineQueue) Enqueue(m model.QueuedMessage) (evicted model.QueuedMessage, dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		evicted = q.items[0]
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, m)
	return evicted, dropped
}

// Dequeue removes and returns the oldest message.
// Returns ok=false when the queue is empty.
func (q *OfflineQueue) Dequeue() (m model.QueuedMessage, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.QueuedMessage{}, false
	}
	m = q.items[0]
	q.items = q.items[1:]
	return m, true
}

// Len returns the current queue length.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured maximum queue length.
func (q *OfflineQueue) Capacity() int {
	return q.capacity
}

// Utilization returns the queue fill level as a percentage (0-100).
func (q *OfflineQueue) Utilization() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float64(len(q.items)) / float64(q.capacity) * 100
}
