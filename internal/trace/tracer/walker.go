package tracer

import "fmt"

// visitAndFollow invokes the visitor on a freshly popped object and expands
// the frontier with its children.
//
// The object was marked by whichever worker pushed it, so the visitor runs
// at most once for it across the whole session. Arrays are not enumerated
// inline; they are scheduled as chunk tasks so their element work can be
// stolen in bounded pieces.
func (s *Session) visitAndFollow(c *context, visit Visitor, ref ObjectRef) {
	visit(ref)
	s.stats.objectsVisited.Add(1)

	if s.heap.IsArray(ref) {
		s.followArray(c, ref)
	} else {
		s.followObject(c, ref)
	}
}

// followObject enumerates the children directly reachable from ref's
// fields, plus its metadata object, and mark-pushes each.
//
// Metadata goes through the same marking discipline as ordinary objects, so
// a class shared by a million instances is visited exactly once. When the
// session excludes weak reachability, the heap skips referent slots without
// loading them (SkipReferents).
func (s *Session) followObject(c *context, ref ObjectRef) {
	c.markAndPush(s.heap.Metadata(ref))
	s.heap.VisitFields(ref, s.fieldMode, c.markAndPush)
}

// followArray follows an array object's metadata and schedules its elements
// as the initial chunk task starting at index 0.
func (s *Session) followArray(c *context, ref ObjectRef) {
	c.markAndPush(s.heap.Metadata(ref))
	c.pushArray(arrayChunk{ref: ref, index: 0})
}

// followArrayChunk enumerates one bounded element range of an array and
// re-splits the remainder.
//
// The continuation chunk for [end, length) is pushed before the current
// range is enumerated, so a peer can steal the tail while this worker scans
// [start, end). Successive chunks tile [0, length) exactly: no overlap, no
// gap, regardless of which workers end up processing them.
//
// A chunk task referring to a non-array object means the frontier was
// corrupted; that is fatal.
func (s *Session) followArrayChunk(c *context, chunk arrayChunk) {
	if !s.heap.IsArray(chunk.ref) {
		panic(fmt.Sprintf("tracer: array chunk task for non-array object %#x", uint64(chunk.ref)))
	}

	length := s.heap.ArrayLength(chunk.ref)
	start := chunk.index
	stride := min(length-start, s.cfg.ChunkStride)
	end := start + stride

	// Donate the tail before scanning, so it is stealable immediately.
	if end < length {
		c.pushArray(arrayChunk{ref: chunk.ref, index: end})
	}

	s.heap.VisitArrayRange(chunk.ref, start, end, c.markAndPush)
	s.stats.arrayChunks.Add(1)
}
