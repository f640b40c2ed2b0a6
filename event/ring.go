// Package event carries game events between exactly two goroutines
// through a bounded single-producer single-consumer ring. Push and Pop
// never block and never spin; a full ring rejects the push and a
// drained ring reports empty.
package event

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidCapacity is returned for capacities that are not a power of
// two of at least 2. The power-of-two constraint makes index wrap a
// single mask.
var ErrInvalidCapacity = errors.New("event: capacity must be a power of two >= 2")

// Ring is a bounded SPSC queue. One goroutine may call Push and one may
// call Pop; no other concurrent use is allowed.
type Ring[T any] struct {
	buf  []T
	mask uint64

	// head is the next slot to pop, tail the next slot to push. Both
	// increase without bound; the mask wraps them into the buffer.
	head atomic.Uint64
	tail atomic.Uint64
}

// NewRing creates a ring holding up to capacity events.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrInvalidCapacity
	}
	return &Ring[T]{
		buf:  make([]T, capacity),
		mask: uint64(capacity - 1),
	}, nil
}

// Push appends v. It reports false when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head == uint64(len(r.buf)) {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest event. It reports false when the ring is
// empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	tail := r.tail.Load()
	if tail == head {
		return zero, false
	}
	v := r.buf[head&r.mask]
	r.buf[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

// Len returns the number of queued events. It is exact only when called
// from the producer or consumer goroutine.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}
