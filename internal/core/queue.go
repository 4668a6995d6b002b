package core

import (
	"time"

	"Hydrosync/internal/model"
	"Hydrosync/internal/syncutil"
)

// Queue is the unbounded FIFO between the producer and the consumer.
// Push never blocks; any number of goroutines may push and pop.
type Queue struct {
	wake  chan struct{}
	items []model.Sample
	mu    syncutil.Mutex
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends s to the tail of the queue.
func (q *Queue) Push(s model.Sample) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// TryPop removes the head of the queue without waiting.
func (q *Queue) TryPop() (model.Sample, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return model.Sample{}, false
	}
	s := q.items[0]
	q.items[0] = model.Sample{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return s, true
}

// Pop waits up to timeout for a sample. It reports false on timeout.
func (q *Queue) Pop(timeout time.Duration) (model.Sample, bool) {
	if s, ok := q.TryPop(); ok {
		return s, true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.wake:
			if s, ok := q.TryPop(); ok {
				q.rearm()
				return s, true
			}
		case <-timer.C:
			return q.TryPop()
		}
	}
}

// Drain removes and returns every pending sample in arrival order.
func (q *Queue) Drain() []model.Sample {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len returns the number of pending samples.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// rearm passes the wake-up on to another waiter when items remain.
func (q *Queue) rearm() {
	if q.Len() == 0 {
		return
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
