// Package tracer implements a parallel, concurrent-safe traversal of a heap
// object graph: every object reachable from the enabled root classes is
// passed to a caller-supplied visitor exactly once, while a fixed group of
// workers cooperatively drains a shared, dynamically discovered work set.
//
// The engine does not own the heap. Object layout, root discovery, and the
// load discipline for individual reference slots are all behind the Heap and
// RootProvider interfaces; the engine only guarantees the traversal
// properties: at-most-once visiting, completeness over the enabled roots,
// bounded per-task work for large arrays, and clean distributed termination.
package tracer

// ObjectRef is an opaque handle to a heap-resident object.
//
// A ref is an address in the traced heap's address space, reduced to bitmap
// coordinates by the session's layout. NilRef is the null reference; refs
// are comparable for identity only and carry no other meaning inside the
// engine.
type ObjectRef uint64

// NilRef is the null object reference.
const NilRef ObjectRef = 0

// IsNil reports whether the reference is null.
func (r ObjectRef) IsNil() bool {
	return r == NilRef
}

// FieldMode selects which reference slots of an object the heap enumerates
// during field walking.
type FieldMode int

const (
	// AllFields enumerates every reference slot, including weak and
	// phantom referent slots.
	AllFields FieldMode = iota

	// SkipReferents enumerates every slot except weak/phantom referent
	// slots, which are skipped without being loaded at all. Used when the
	// session excludes weak reachability.
	SkipReferents
)

// Heap is the engine's window onto object layout. Implementations are
// responsible for any metadata barriers or reference-strength-aware load
// discipline their memory model requires; in particular, loads performed on
// behalf of the tracer must not extend object lifetimes during a concurrent
// collection cycle.
//
// All methods must be safe for concurrent use by every worker, and refs
// passed in are always non-nil and previously produced by a root provider
// or an earlier enumeration.
type Heap interface {
	// IsArray reports whether ref is an array-typed object whose elements
	// are object references.
	IsArray(ref ObjectRef) bool

	// ArrayLength returns the element count of an array object. Called
	// only for refs that IsArray reported true for.
	ArrayLength(ref ObjectRef) int

	// Metadata returns the type/class metadata object associated with ref,
	// or NilRef when the metadata is not a heap object. Metadata refs are
	// visited under the same at-most-once discipline as ordinary objects.
	Metadata(ref ObjectRef) ObjectRef

	// VisitFields calls emit once per reference held in ref's fields,
	// subject to mode. Null fields may be emitted as NilRef or skipped;
	// the engine treats both the same. Not called for array objects.
	VisitFields(ref ObjectRef, mode FieldMode, emit func(ObjectRef))

	// VisitArrayRange calls emit once per element reference in the index
	// range [start, end) of an array object.
	VisitArrayRange(ref ObjectRef, start, end int, emit func(ObjectRef))
}

// RootProvider enumerates the references of one root class.
//
// The provider owns the access discipline for its source locations: a
// synchronous provider may load plainly, a concurrent-safe provider must
// load in a way that tolerates simultaneous mutation, and a weak provider
// must load without keeping referents alive. The engine treats every
// obtained reference uniformly.
type RootProvider interface {
	// VisitRoots calls emit once per discoverable reference. Emitting
	// NilRef is allowed and ignored.
	VisitRoots(emit func(ObjectRef))
}

// RootProviderFunc adapts a plain function to the RootProvider interface.
type RootProviderFunc func(emit func(ObjectRef))

// VisitRoots calls f(emit).
func (f RootProviderFunc) VisitRoots(emit func(ObjectRef)) {
	f(emit)
}

// RootSet carries the four root classes injected at session construction,
// classified along two independent axes: synchronous vs concurrent-safe
// access, and strong vs weak reference semantics. Any provider may be nil,
// meaning that class contributes no roots.
//
// The weak classes are consulted only when the session is configured to
// include weak reachability.
type RootSet struct {
	Strong           RootProvider
	ConcurrentStrong RootProvider
	Weak             RootProvider
	ConcurrentWeak   RootProvider
}

// Visitor is invoked exactly once per distinct live object discovered by
// the traversal. It runs on worker goroutines, possibly on several
// concurrently for different objects, and must not mutate the heap in ways
// that invalidate in-flight enumeration.
type Visitor func(ObjectRef)

// arrayChunk is a pending enumeration of a bounded index range of an array:
// the elements [index, min(index+stride, length)). The continuation for the
// remaining range is pushed when the chunk is processed.
type arrayChunk struct {
	ref   ObjectRef
	index int
}
