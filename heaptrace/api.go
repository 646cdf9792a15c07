// Package heaptrace provides the public API of the parallel heap object
// graph tracer.
//
// See doc.go for detailed documentation and examples.
package heaptrace

import (
	"sync"

	"github.com/kolkov/heaptracer/internal/trace/granule"
	internal "github.com/kolkov/heaptracer/internal/trace/tracer"
)

// Core model types, re-exported from the engine.
type (
	// ObjectRef is an opaque handle to a heap-resident object. The zero
	// value NilRef is the null reference.
	ObjectRef = internal.ObjectRef

	// Heap is the caller-supplied window onto object layout: array
	// recognition, metadata, and field/element enumeration.
	Heap = internal.Heap

	// FieldMode selects which reference slots a Heap enumerates.
	FieldMode = internal.FieldMode

	// RootProvider enumerates the references of one root class.
	RootProvider = internal.RootProvider

	// RootProviderFunc adapts a function to RootProvider.
	RootProviderFunc = internal.RootProviderFunc

	// RootSet carries the four injected root classes:
	// {synchronous, concurrent} x {strong, weak}.
	RootSet = internal.RootSet

	// Visitor is called exactly once per distinct live object.
	Visitor = internal.Visitor

	// Config fixes worker count, weak inclusion, chunk stride, and
	// address layout for one session.
	Config = internal.Config

	// Session owns all state of one one-shot traversal.
	Session = internal.Session

	// Stats is a snapshot of session counters.
	Stats = internal.Stats

	// Layout describes the traced address space partitioning.
	Layout = granule.Layout
)

// NilRef is the null object reference.
const NilRef = internal.NilRef

// Field enumeration modes.
const (
	AllFields     = internal.AllFields
	SkipReferents = internal.SkipReferents
)

// DefaultChunkStride is the array-chunk element cap used when Config leaves
// ChunkStride zero.
const DefaultChunkStride = internal.DefaultChunkStride

// DefaultLayout returns the address layout used when Config leaves Layout
// zero: heap base 0, 2 MiB granules, 8-byte object alignment.
func DefaultLayout() Layout {
	return granule.DefaultLayout()
}

// NewSession creates a traversal session over the given heap and root set.
//
// The configuration is fixed for the session's lifetime. After
// construction, each of cfg.Workers workers calls Session.ObjectIterate
// exactly once with its own index in [0, cfg.Workers); the session must not
// be reused for a second traversal.
//
// Callers that do not need to own the worker threads themselves can use
// Traverse instead.
func NewSession(heap Heap, roots RootSet, cfg Config) (*Session, error) {
	return internal.NewSession(heap, roots, cfg)
}

// Traverse runs a complete traversal, owning the worker fan-out.
//
// It constructs a session, starts cfg.Workers goroutines that each enter
// the traversal once, waits for all of them to agree on termination, and
// returns the session statistics. visit may be called concurrently from all
// workers, for distinct objects only.
//
// Fatal traversal conditions (invariant violations, allocation failure)
// panic on the worker that hit them, in line with the engine's
// no-partial-result contract.
func Traverse(heap Heap, roots RootSet, cfg Config, visit Visitor) (Stats, error) {
	s, err := internal.NewSession(heap, roots, cfg)
	if err != nil {
		return Stats{}, err
	}

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.ObjectIterate(visit, id)
		}(w)
	}
	wg.Wait()

	return s.Stats(), nil
}
