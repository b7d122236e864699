// Package queue provides the bounded outbound buffer used while no
// connection is available.
package queue

import (
	"sync"
)

// Ring is a thread-safe, fixed-capacity FIFO buffer. Pushing into a full
// ring evicts the single oldest entry first; recent messages are worth
// more than stale ones for a live-telemetry client.
type Ring[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int

	// Stats
	totalPushed  int64
	totalDropped int64
}

// NewRing creates a ring holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends an item, evicting the oldest entry if the ring is full.
// It reports whether an eviction happened.
func (r *Ring[T]) Push(item T) (evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == r.capacity {
		var zero T
		r.buf[r.head] = zero
		r.head = (r.head + 1) % r.capacity
		r.count--
		r.totalDropped++
		evicted = true
	}

	r.buf[r.tail] = item
	r.tail = (r.tail + 1) % r.capacity
	r.count++
	r.totalPushed++
	return evicted
}

// Drain removes and returns every queued item in FIFO order.
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	out := make([]T, r.count)
	for i := range out {
		out[i] = r.buf[r.head]
		var zero T
		r.buf[r.head] = zero // clear reference for GC
		r.head = (r.head + 1) % r.capacity
	}
	r.count = 0
	return out
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the configured bound.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Stats returns cumulative counters.
func (r *Ring[T]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Len:          r.count,
		Cap:          r.capacity,
		TotalPushed:  r.totalPushed,
		TotalDropped: r.totalDropped,
	}
}

// Stats describes ring usage.
type Stats struct {
	Len          int
	Cap          int
	TotalPushed  int64
	TotalDropped int64
}
