// Package queue holds rows between the simulation tick and the batch writer
// that flushes them to the database.
package queue

import "sync"

// Queue is a FIFO safe for one producer and one flushing consumer.
// Rows taken with PopN and handed back with Requeue keep their order.
type Queue[T any] struct {
	mu   sync.Mutex
	rows []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends rows at the back.
func (q *Queue[T]) Push(rows ...T) {
	q.mu.Lock()
	q.rows = append(q.rows, rows...)
	q.mu.Unlock()
}

// Requeue puts rows from a failed write back in front of anything pushed
// since they were taken.
func (q *Queue[T]) Requeue(rows ...T) {
	if len(rows) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(rows)+len(q.rows))
	merged = append(merged, rows...)
	q.rows = append(merged, q.rows...)
}

// PopN takes at most n rows from the front. The result does not alias the
// queue's storage.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n = min(n, len(q.rows))
	if n <= 0 {
		return nil
	}
	batch := make([]T, n)
	copy(batch, q.rows)
	clear(q.rows[:n])
	q.rows = q.rows[n:]
	return batch
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.rows)
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}
