package tracer

import "github.com/kolkov/heaptracer/internal/trace/workqueue"

// context binds one worker to its queues for the duration of a traversal.
//
// A context is created on entry to ObjectIterate and never escapes its
// worker. All cross-worker traffic goes through the queue sets (stealing)
// and the marking table; the context itself is single-owner state.
type context struct {
	session    *Session
	queue      *workqueue.Deque[ObjectRef]
	arrayQueue *workqueue.Deque[arrayChunk]
	workerID   int
}

func newContext(s *Session, workerID int) *context {
	return &context{
		session:    s,
		queue:      s.queues.Queue(workerID),
		arrayQueue: s.arrayQueues.Queue(workerID),
		workerID:   workerID,
	}
}

// markAndPush attempts to claim ref in the marking table and, on success,
// queues it on this worker's object queue for visiting and enumeration.
//
// This is the only producer path of the traversal: every object enters a
// queue exactly once, guarded by the mark's first-discoverer guarantee.
// Nil refs and already marked refs are dropped silently.
func (c *context) markAndPush(ref ObjectRef) {
	if c.session.table.Mark(uint64(ref)) {
		c.queue.Push(ref)
	}
}

// pushArray queues an array-chunk task on this worker's chunk queue.
func (c *context) pushArray(chunk arrayChunk) {
	c.arrayQueue.Push(chunk)
}

// pop removes one object from this worker's own queue, preferring the
// overflow segment (older tasks) over the local segment.
func (c *context) pop() (ObjectRef, bool) {
	if ref, ok := c.queue.PopOverflow(); ok {
		return ref, true
	}
	return c.queue.PopLocal()
}

// popArray removes one chunk task from this worker's own chunk queue.
func (c *context) popArray() (arrayChunk, bool) {
	if chunk, ok := c.arrayQueue.PopOverflow(); ok {
		return chunk, true
	}
	return c.arrayQueue.PopLocal()
}

// steal removes one object from some peer's queue.
func (c *context) steal() (ObjectRef, bool) {
	return c.session.queues.Steal(c.workerID)
}

// stealArray removes one chunk task from some peer's chunk queue.
func (c *context) stealArray() (arrayChunk, bool) {
	return c.session.arrayQueues.Steal(c.workerID)
}

// isDrained reports whether both of this worker's own queues are empty.
func (c *context) isDrained() bool {
	return c.queue.Empty() && c.arrayQueue.Empty()
}
