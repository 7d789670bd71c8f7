// Package fifo provides a fixed capacity ring buffer for single-producer,
// single-consumer hand-off inside one cooperative context.
package fifo

import "errors"

var (
	// ErrFull indicates the queue has no free slot.
	ErrFull = errors.New("queue full")
	// ErrEmpty indicates there is nothing to get.
	ErrEmpty = errors.New("queue empty")
	// ErrCapacity indicates an invalid capacity at construction.
	ErrCapacity = errors.New("invalid queue capacity")
)

// Queue is a ring buffer of fixed capacity.
// It performs no synchronization: one producer and one consumer,
// both stepped from the same context.
type Queue[T any] struct {
	items   []T
	head    int
	count   int
	dropped uint32
}

// New creates a Queue holding at most capacity elements.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity < 1 {
		return nil, ErrCapacity
	}
	return &Queue[T]{items: make([]T, capacity)}, nil
}

// MustNew is New which panics on invalid capacity.
func MustNew[T any](capacity int) *Queue[T] {
	q, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// Put appends item. A full queue is left untouched and ErrFull is returned.
func (q *Queue[T]) Put(item T) error {
	if q.count == len(q.items) {
		q.dropped++
		return ErrFull
	}
	q.items[(q.head+q.count)%len(q.items)] = item
	q.count++
	return nil
}

// Get moves the oldest element into out.
func (q *Queue[T]) Get(out *T) error {
	if q.count == 0 {
		return ErrEmpty
	}
	var zero T
	*out, q.items[q.head] = q.items[q.head], zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return nil
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() (item T, ok bool) {
	if q.count == 0 {
		return
	}
	return q.items[q.head], true
}

// Len is the number of queued elements.
func (q *Queue[T]) Len() int { return q.count }

// Cap is the fixed capacity.
func (q *Queue[T]) Cap() int { return len(q.items) }

// Full reports whether Put would fail.
func (q *Queue[T]) Full() bool { return q.count == len(q.items) }

// Dropped counts rejected Puts since creation or the last Reset.
func (q *Queue[T]) Dropped() uint32 { return q.dropped }

// Reset discards all elements and the drop counter.
func (q *Queue[T]) Reset() {
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.head, q.count, q.dropped = 0, 0, 0
}
