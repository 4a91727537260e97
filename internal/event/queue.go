// Package event provides the unbounded FIFO queues that connect the
// daemon's producer goroutines to its single-consumer tasks.
package event

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close, and by Recv once a closed queue
// has been drained.
var ErrClosed = errors.New("event: queue closed")

// Queue is an unbounded multi-producer, single-consumer FIFO.
// Send never blocks. Recv blocks until an item is available, the context is
// done, or the queue is closed and empty.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool
	ready  chan struct{} // signalled (non-blocking) on every Send and on Close
}

// NewQueue returns an empty open queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Send appends v. It returns ErrClosed if the queue has been closed.
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Recv removes and returns the oldest item.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	for {
		if v, ok, err := q.TryRecv(); ok || err != nil {
			return v, err
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryRecv returns the oldest item without blocking. ok is false when the
// queue is empty; err is ErrClosed when it is also closed.
func (q *Queue[T]) TryRecv() (v T, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		if q.closed {
			return v, false, ErrClosed
		}
		return v, false, nil
	}
	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		// Reuse the backing array once drained.
		q.items = q.items[:0]
		q.head = 0
	}
	return v, true, nil
}

// Close marks the queue closed. Items already queued can still be received.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
