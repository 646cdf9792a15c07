// Package termination implements distributed termination detection for a
// group of workers draining a dynamically discovered work set.
//
// The problem: a worker whose queues are empty cannot conclude the traversal
// is over, because a peer may still be processing a task whose children will
// land in some queue at any moment. Workers therefore "offer" termination
// and wait until every worker offers simultaneously; any sign of remaining
// or newly produced work withdraws the offer.
//
// The detector is a shared atomic counter of offering workers plus a
// generation token. Termination fires only when the counter reaches the
// worker count while the generation is stable and the work probe stays
// empty.
package termination

import (
	"runtime"
	"sync/atomic"
)

// Terminator coordinates the shutdown of one worker group.
//
// Construct one per traversal session with the group size and a probe that
// reports whether any stealable work exists anywhere. All workers of the
// session must use the same Terminator instance.
type Terminator struct {
	workers int32

	// hasWork reports whether any queue in the session holds a task. It is
	// read-only from the detector's point of view and must be safe for
	// concurrent calls.
	hasWork func() bool

	// offered counts workers currently offering termination. A worker
	// increments on entry to Offer and decrements when it withdraws.
	offered atomic.Int32

	// generation is bumped by Announce whenever a worker obtains new work
	// after being idle. Spinning offerers treat a bump as proof that the
	// frontier is not empty and withdraw.
	generation atomic.Uint64
}

// New creates a Terminator for a group of the given size.
//
// workers must be at least 1. hasWork is the shared work probe; it is
// consulted while offering and should be cheap.
func New(workers int, hasWork func() bool) *Terminator {
	if workers < 1 {
		panic("termination: worker count must be at least 1")
	}
	return &Terminator{
		workers: int32(workers),
		hasWork: hasWork,
	}
}

// Offer declares the calling worker idle and blocks until the group either
// terminates or work reappears.
//
// Returns:
//   - true: every worker offered simultaneously with no work anywhere; the
//     traversal is over and the caller may exit its loop.
//   - false: work exists (or appeared) somewhere; the offer was withdrawn
//     and the caller must resume draining and stealing.
//
// Correctness argument: a worker calls Offer only when both of its queues
// are empty and it holds no in-flight task. Tasks move between queues only
// through a worker that is not offering (it is busy processing). So at any
// instant when offered == workers, no worker is processing and every queue
// is empty: the frontier is globally empty and cannot refill. Conversely a
// worker that steals bumps the generation, which forces offerers that might
// observe momentarily empty queues to withdraw and re-scan.
func (t *Terminator) Offer() bool {
	if t.offered.Add(1) == t.workers {
		return true
	}

	gen := t.generation.Load()
	for {
		if t.offered.Load() == t.workers {
			return true
		}
		if t.hasWork() || t.generation.Load() != gen {
			t.offered.Add(-1)
			return false
		}
		runtime.Gosched()
	}
}

// Announce records that new work became available: a previously idle worker
// obtained a task by stealing. Every worker currently spinning in Offer will
// observe the generation bump and withdraw.
func (t *Terminator) Announce() {
	t.generation.Add(1)
}
