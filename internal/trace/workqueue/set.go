package workqueue

// Set groups the deques of all workers for one task kind and implements
// cross-worker stealing over them.
type Set[T any] struct {
	queues []*Deque[T]
}

// NewSet creates a set of n empty worker deques, indexed [0, n).
func NewSet[T any](n int) *Set[T] {
	qs := make([]*Deque[T], n)
	for i := range qs {
		qs[i] = new(Deque[T])
	}
	return &Set[T]{queues: qs}
}

// Queue returns worker i's deque.
func (s *Set[T]) Queue(i int) *Deque[T] {
	return s.queues[i]
}

// Size returns the number of worker deques.
func (s *Set[T]) Size() int {
	return len(s.queues)
}

// Steal attempts to remove one task from some peer of the thief worker.
//
// Peers are scanned round-robin starting just past the thief, so every peer
// is tried exactly once per attempt and repeated attempts cover all peers
// fairly. The thief's own deque is never touched; the owner reaches it
// through PopOverflow and PopLocal.
//
// Returns false only after every peer came up empty during the scan. A
// false result is a snapshot, not a proof of global emptiness; termination
// needs the separate detector.
func (s *Set[T]) Steal(thief int) (T, bool) {
	n := len(s.queues)
	for i := 1; i < n; i++ {
		victim := (thief + i) % n
		if v, ok := s.queues[victim].Steal(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// HasWork reports whether any deque in the set currently holds a task.
// Used by the termination detector as its work probe.
func (s *Set[T]) HasWork() bool {
	for _, q := range s.queues {
		if !q.Empty() {
			return true
		}
	}
	return false
}
