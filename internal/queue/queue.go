// Package queue holds the FIFO used for pending declarations and outgoing
// packets.
package queue

import "sync"

// compactAt is how many popped slots may pile up before the live items
// are moved back to the front of the buffer.
const compactAt = 64

// Queue is a mutex-guarded FIFO. Popped slots are zeroed so the queue does
// not keep packets or declarations alive.
type Queue[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items in order.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.buf = append(q.buf, items...)
	q.mu.Unlock()
}

// Pop removes the oldest item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.buf) {
		return item, false
	}
	item = q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.buf):
		q.buf, q.head = q.buf[:0], 0
	case q.head >= compactAt && 2*q.head >= len(q.buf):
		n := copy(q.buf, q.buf[q.head:])
		clear(q.buf[n:])
		q.buf, q.head = q.buf[:n], 0
	}
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Clear drops everything queued.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	clear(q.buf)
	q.buf, q.head = q.buf[:0], 0
	q.mu.Unlock()
}

// Drain returns everything queued, oldest first, and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.buf)-q.head)
	copy(out, q.buf[q.head:])
	clear(q.buf)
	q.buf, q.head = q.buf[:0], 0
	return out
}
