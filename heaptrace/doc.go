// Package heaptrace implements a parallel, concurrent-safe traversal of a
// managed heap's object graph: every object reachable from the enabled root
// classes is handed to a caller-supplied visitor exactly once, even while
// many workers discover the graph cooperatively through work stealing.
//
// # Overview
//
// The tracer is built for heap dumping, verification, and inspection
// tooling layered on a garbage-collected runtime. It does not reclaim or
// move memory and it does not compute liveness for collection; it only
// walks what is reachable, once, completely.
//
// The engine consists of:
//   - A marking table: one lazily created atomic bitmap per address-space
//     granule, recording "already scheduled for visiting" per alignment
//     slot. Marking is the single linearization point deciding which worker
//     first discovered an object.
//   - Per-worker work queues for objects and for array chunks, with
//     cross-worker stealing. Large arrays are split into bounded chunk
//     tasks so any worker can steal the remainder of a huge array.
//   - A root seeder over four injected root classes: {synchronous,
//     concurrent} x {strong, weak}.
//   - A drain/steal/terminate loop with distributed termination detection,
//     so all workers exit only once the frontier is globally empty.
//
// # Collaborators
//
// The heap itself stays behind two small interfaces. [Heap] answers layout
// questions (is this an array, what is its metadata object, enumerate its
// field or element references), and [RootProvider] enumerates one root
// class. Any metadata barriers or reference-strength-aware load discipline
// live inside those implementations; in particular, loads performed for the
// tracer must not keep weak referents alive during a concurrent collection
// cycle.
//
// # Usage
//
//	cfg := heaptrace.Config{Workers: 8, IncludeWeak: false}
//	stats, err := heaptrace.Traverse(myHeap, myRoots, cfg, func(ref heaptrace.ObjectRef) {
//		dump.Record(ref)
//	})
//
// Callers that own their worker threads construct a [Session] with
// [NewSession] and have each worker call [Session.ObjectIterate] exactly
// once with its own index. A session is one-shot: construct a new one per
// traversal.
//
// # Guarantees
//
//   - At-most-once: no object is passed to the visitor twice, regardless of
//     worker count or how many edges lead to it.
//   - Completeness: every object transitively reachable from the enabled
//     root classes is visited; unreachable objects never are.
//   - No visitation order is guaranteed, only consistency with some valid
//     traversal of the graph.
//   - Termination: for any finite reachable graph all workers return.
//
// Cancellation is intentionally out of scope: a traversal runs to
// completion. Callers needing early abort can have their visitor flip a
// flag and their Heap enumerate nothing once it is set.
package heaptrace
