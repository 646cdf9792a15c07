// Package workqueue implements the per-worker task queues of a parallel
// traversal and the cross-worker stealing that balances load between them.
//
// Each worker owns one Deque per task kind. The owner pushes newly
// discovered tasks and pops them back in two orders: the overflow segment
// first (oldest tasks, FIFO) and the local segment second (most recent
// tasks, LIFO, for cache locality). Idle peers steal from the opposite end,
// taking the oldest task available so that the owner keeps its hot recent
// work.
//
// Every operation on a deque holds that deque's mutex, which makes the
// single-consumer guarantee trivial: a task is removed by exactly one
// caller, whether that caller is the owner popping or a peer stealing.
// Throughput of the traversal is dominated by marking and field enumeration,
// not by queue transfers, so a small mutex-guarded structure is preferred
// over an intricate lock-free deque.
package workqueue

import "sync"

// spillThreshold is the local-segment length at which older tasks are moved
// to the overflow segment. Spilling keeps a supply of older tasks at the
// stealable end even while the owner works LIFO on recent ones.
const spillThreshold = 64

// Deque is an unbounded two-segment task queue owned by one worker.
//
// Invariant: a pushed task is returned by exactly one of PopLocal,
// PopOverflow, or Steal. Push never fails; both segments grow as needed.
//
// The zero Deque is ready to use.
type Deque[T any] struct {
	mu sync.Mutex

	// overflow holds older tasks in FIFO order. Consumed from the front by
	// both the owner (PopOverflow) and stealing peers.
	overflow []T

	// local holds recent tasks. The owner consumes from the back (LIFO);
	// stealers fall back to the front when overflow is empty.
	local []T
}

// Push appends a task. Always succeeds.
//
// When the local segment reaches the spill threshold its older half is
// donated to the overflow segment, preserving age order.
func (d *Deque[T]) Push(v T) {
	d.mu.Lock()
	d.local = append(d.local, v)
	if len(d.local) >= spillThreshold {
		half := len(d.local) / 2
		d.overflow = append(d.overflow, d.local[:half]...)
		d.local = append(d.local[:0:0], d.local[half:]...)
	}
	d.mu.Unlock()
}

// PopLocal removes and returns the most recently pushed task in the local
// segment. Returns false when the local segment is empty.
func (d *Deque[T]) PopLocal() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	n := len(d.local)
	if n == 0 {
		return zero, false
	}
	v := d.local[n-1]
	d.local[n-1] = zero // release for GC
	d.local = d.local[:n-1]
	return v, true
}

// PopOverflow removes and returns the oldest task in the overflow segment.
// Returns false when the overflow segment is empty.
func (d *Deque[T]) PopOverflow() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.takeOldest(&d.overflow)
}

// Steal removes one task from the stealable end: the oldest overflow task
// if any, otherwise the oldest local task. Returns false when the deque is
// empty.
//
// Steal is called by peers, never by the owner; the mutex guarantees it can
// never hand out a task that a concurrent owner pop also returns.
func (d *Deque[T]) Steal() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.takeOldest(&d.overflow); ok {
		return v, true
	}
	return d.takeOldest(&d.local)
}

// Empty reports whether both segments are empty.
func (d *Deque[T]) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.local) == 0 && len(d.overflow) == 0
}

// Len returns the total number of queued tasks.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.local) + len(d.overflow)
}

// takeOldest removes the front element of a segment. Caller holds d.mu.
func (d *Deque[T]) takeOldest(seg *[]T) (T, bool) {
	var zero T
	s := *seg
	if len(s) == 0 {
		return zero, false
	}
	v := s[0]
	s[0] = zero
	*seg = s[1:]
	return v, true
}
