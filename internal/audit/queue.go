package audit

import "sync"

// retryQueue is a bounded FIFO of events awaiting redelivery. When full, the
// oldest event is evicted to admit the newest.
type retryQueue struct {
	mu       sync.Mutex
	events   []Event
	head     int
	size     int
	capacity int
}

func newRetryQueue(capacity int) *retryQueue {
	return &retryQueue{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

func (q *retryQueue) push(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == q.capacity {
		// Evict the oldest.
		q.head = (q.head + 1) % q.capacity
		q.size--
	}
	q.events[(q.head+q.size)%q.capacity] = event
	q.size++
}

// drain removes and returns all queued events in arrival order.
func (q *retryQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]Event, 0, q.size)
	for i := 0; i < q.size; i++ {
		drained = append(drained, q.events[(q.head+i)%q.capacity])
	}
	q.head = 0
	q.size = 0
	return drained
}

func (q *retryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
