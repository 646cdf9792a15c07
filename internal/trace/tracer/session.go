package tracer

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/heaptracer/internal/trace/granule"
	"github.com/kolkov/heaptracer/internal/trace/marktable"
	"github.com/kolkov/heaptracer/internal/trace/termination"
	"github.com/kolkov/heaptracer/internal/trace/workqueue"
)

// DefaultChunkStride is the element count an array-chunk task covers when
// the session does not configure its own stride. Chunking bounds the
// sequential work a single task represents, so a huge array never pins one
// worker while its peers idle.
const DefaultChunkStride = 512

// Config fixes the parameters of one traversal session. All fields are
// immutable after NewSession.
type Config struct {
	// Workers is the number of parallel worker threads that will each call
	// ObjectIterate exactly once. Must be at least 1.
	Workers int

	// IncludeWeak selects whether weak/phantom roots and referent fields
	// are traversed and visited. When false, weak root classes are skipped
	// entirely and referent slots are never loaded.
	IncludeWeak bool

	// ChunkStride caps the element range of one array-chunk task.
	// Zero means DefaultChunkStride.
	ChunkStride int

	// Layout describes the traced address space. The zero value means
	// granule.DefaultLayout.
	Layout granule.Layout
}

// Stats is a snapshot of session counters, readable after (or during) a
// traversal. Counters are aggregated across all workers.
type Stats struct {
	// ObjectsVisited counts visitor invocations: distinct objects visited.
	ObjectsVisited uint64

	// ArrayChunks counts processed array-chunk tasks.
	ArrayChunks uint64

	// Steals counts successful object steals between workers.
	Steals uint64

	// ArrayChunkSteals counts successful array-chunk steals.
	ArrayChunkSteals uint64

	// Bitmaps counts marking bitmaps created (granules touched).
	Bitmaps uint64
}

// sessionStats holds the live counters behind Stats.
type sessionStats struct {
	objectsVisited   atomic.Uint64
	arrayChunks      atomic.Uint64
	steals           atomic.Uint64
	arrayChunkSteals atomic.Uint64
}

// Session owns all traversal state for a single one-shot traversal: the
// marking table, the per-worker queues, the root set, and the termination
// detector.
//
// Lifecycle: construct with NewSession, have each of cfg.Workers workers
// call ObjectIterate exactly once with its own worker index, then drop the
// session. A session must not be reused for a second traversal; marking
// state is never reset.
type Session struct {
	heap  Heap
	roots RootSet
	cfg   Config

	fieldMode FieldMode

	table       *marktable.Table
	queues      *workqueue.Set[ObjectRef]
	arrayQueues *workqueue.Set[arrayChunk]
	terminator  *termination.Terminator

	// entered guards the one-call-per-worker-index contract.
	entered []atomic.Bool

	stats sessionStats
}

// NewSession creates a traversal session over the given heap and root set.
//
// The worker count, weak-inclusion flag, chunk stride, and address layout
// are fixed for the session's lifetime. Returns an error for an invalid
// configuration; nothing is allocated in that case.
func NewSession(heap Heap, roots RootSet, cfg Config) (*Session, error) {
	if heap == nil {
		return nil, fmt.Errorf("tracer: heap must not be nil")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("tracer: worker count %d, want at least 1", cfg.Workers)
	}
	if cfg.ChunkStride < 0 {
		return nil, fmt.Errorf("tracer: chunk stride %d, want positive", cfg.ChunkStride)
	}
	if cfg.ChunkStride == 0 {
		cfg.ChunkStride = DefaultChunkStride
	}
	if cfg.Layout == (granule.Layout{}) {
		cfg.Layout = granule.DefaultLayout()
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	mode := SkipReferents
	if cfg.IncludeWeak {
		mode = AllFields
	}

	s := &Session{
		heap:        heap,
		roots:       roots,
		cfg:         cfg,
		fieldMode:   mode,
		table:       marktable.New(cfg.Layout),
		queues:      workqueue.NewSet[ObjectRef](cfg.Workers),
		arrayQueues: workqueue.NewSet[arrayChunk](cfg.Workers),
		entered:     make([]atomic.Bool, cfg.Workers),
	}
	s.terminator = termination.New(cfg.Workers, s.hasWork)
	return s, nil
}

// Config returns the session's normalized configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		ObjectsVisited:   s.stats.objectsVisited.Load(),
		ArrayChunks:      s.stats.arrayChunks.Load(),
		Steals:           s.stats.steals.Load(),
		ArrayChunkSteals: s.stats.arrayChunkSteals.Load(),
		Bitmaps:          s.table.Bitmaps(),
	}
}

// IsMarked reports whether ref was marked during the traversal. Intended
// for verification tooling after the session completes.
func (s *Session) IsMarked(ref ObjectRef) bool {
	return s.table.IsMarked(uint64(ref))
}

// ObjectIterate is the per-worker traversal entry point.
//
// Each of the session's cfg.Workers workers calls it exactly once, in
// parallel, passing its own index in [0, Workers). The call seeds roots,
// then drains, steals, and offers termination until the whole group agrees
// the frontier is empty. visit is invoked once per distinct object the
// group discovers; invocations for different objects may run concurrently
// on different workers.
//
// Violating the entry contract (index out of range, reuse of an index) is a
// fatal logic error and panics.
func (s *Session) ObjectIterate(visit Visitor, workerID int) {
	if workerID < 0 || workerID >= s.cfg.Workers {
		panic(fmt.Sprintf("tracer: worker id %d out of range [0,%d)", workerID, s.cfg.Workers))
	}
	if visit == nil {
		panic("tracer: visitor must not be nil")
	}
	if s.entered[workerID].Swap(true) {
		panic(fmt.Sprintf("tracer: worker id %d entered twice", workerID))
	}

	c := newContext(s, workerID)
	s.seedRoots(c)
	s.drainAndSteal(c, visit)
}

// hasWork is the termination detector's probe: true while any queue in the
// session holds a task.
func (s *Session) hasWork() bool {
	return s.queues.HasWork() || s.arrayQueues.HasWork()
}

// drain processes the worker's own queues until both are empty: all queued
// objects first, then one array chunk (which may refill the object queue),
// repeated until nothing local remains.
func (s *Session) drain(c *context, visit Visitor) {
	for {
		for {
			obj, ok := c.pop()
			if !ok {
				break
			}
			s.visitAndFollow(c, visit, obj)
		}

		if chunk, ok := c.popArray(); ok {
			s.followArrayChunk(c, chunk)
		}

		if c.isDrained() {
			return
		}
	}
}

// steal attempts to take one task from a peer. Array chunks are preferred:
// a chunk is guaranteed expansion work, while a stolen object may turn out
// to be a leaf.
func (s *Session) steal(c *context, visit Visitor) {
	if chunk, ok := c.stealArray(); ok {
		s.stats.arrayChunkSteals.Add(1)
		s.terminator.Announce()
		s.followArrayChunk(c, chunk)
		return
	}

	if obj, ok := c.steal(); ok {
		s.stats.steals.Add(1)
		s.terminator.Announce()
		s.visitAndFollow(c, visit, obj)
	}
}

// drainAndSteal is the worker control loop: drain local work, try one
// steal, and offer termination once nothing is left locally. A withdrawn
// offer loops back to draining, because a failed offer means work exists
// somewhere and a future steal attempt can obtain it.
func (s *Session) drainAndSteal(c *context, visit Visitor) {
	for {
		s.drain(c, visit)
		s.steal(c, visit)

		if c.isDrained() && s.terminator.Offer() {
			return
		}
	}
}
