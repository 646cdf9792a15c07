// Package memheap implements a synthetic in-memory heap for driving the
// tracer: objects, reference arrays, class metadata, weak reference slots,
// and the four root classes, all addressed by opaque integer handles laid
// out under a real granule/alignment scheme.
//
// It backs the package's tests, the example programs, and the heapdump
// tool. It is not a memory allocator; it only models the object graph and
// layout queries the tracer consumes.
//
// Concurrency: a Heap is built single-threaded (the Add/Set calls) and is
// strictly read-only during a traversal, which is what makes the Heap and
// RootProvider implementations trivially safe for concurrent workers.
package memheap

import (
	"fmt"

	"github.com/kolkov/heaptracer/internal/trace/granule"
	"github.com/kolkov/heaptracer/internal/trace/tracer"
)

// RootClass identifies one of the four root classes of a heap.
type RootClass int

const (
	StrongRoots RootClass = iota
	ConcurrentStrongRoots
	WeakRoots
	ConcurrentWeakRoots
	numRootClasses
)

// String returns the fixture/dump name of the root class.
func (rc RootClass) String() string {
	switch rc {
	case StrongRoots:
		return "strong"
	case ConcurrentStrongRoots:
		return "concurrent"
	case WeakRoots:
		return "weak"
	case ConcurrentWeakRoots:
		return "concurrent_weak"
	default:
		return fmt.Sprintf("RootClass(%d)", int(rc))
	}
}

// slot is one reference field of an object.
type slot struct {
	ref  tracer.ObjectRef
	weak bool
}

// object is the layout record behind one handle.
type object struct {
	class   tracer.ObjectRef
	fields  []slot
	elems   []tracer.ObjectRef
	isArray bool
	size    uint64
}

const (
	headerBytes = 16
	refBytes    = 8
)

// Heap is a synthetic object graph with addressable handles.
type Heap struct {
	layout   granule.Layout
	nextAddr uint64

	objects map[tracer.ObjectRef]*object
	labels  map[tracer.ObjectRef]string
	byLabel map[string]tracer.ObjectRef
	classes map[string]tracer.ObjectRef

	roots [numRootClasses][]tracer.ObjectRef

	totalBytes uint64
}

// New creates an empty heap under the default address layout.
func New() *Heap {
	return NewWithLayout(granule.DefaultLayout())
}

// NewWithLayout creates an empty heap under the given layout. The layout
// must be valid.
func NewWithLayout(layout granule.Layout) *Heap {
	if err := layout.Validate(); err != nil {
		panic(err)
	}
	return &Heap{
		layout: layout,
		// The first alignment slot is reserved so that no object ever
		// receives the nil handle.
		nextAddr: layout.Base + (1 << layout.AlignShift),
		objects:  make(map[tracer.ObjectRef]*object),
		labels:   make(map[tracer.ObjectRef]string),
		byLabel:  make(map[string]tracer.ObjectRef),
		classes:  make(map[string]tracer.ObjectRef),
	}
}

// Layout returns the heap's address layout, for session configuration.
func (h *Heap) Layout() granule.Layout {
	return h.layout
}

// allocate reserves an aligned address range for size bytes and returns its
// start as a handle.
func (h *Heap) allocate(size uint64) tracer.ObjectRef {
	align := uint64(1) << h.layout.AlignShift
	size = (size + align - 1) &^ (align - 1)

	addr := h.nextAddr
	h.nextAddr += size
	h.totalBytes += size
	return tracer.ObjectRef(addr)
}

// register records an allocated object under its label.
func (h *Heap) register(label string, obj *object) tracer.ObjectRef {
	if _, dup := h.byLabel[label]; dup {
		panic(fmt.Sprintf("memheap: duplicate label %q", label))
	}
	ref := h.allocate(obj.size)
	h.objects[ref] = obj
	h.labels[ref] = label
	h.byLabel[label] = ref
	return ref
}

// AddClass creates (or returns the existing) class metadata object for the
// given class name. Class objects have no class of their own and no fields.
func (h *Heap) AddClass(name string) tracer.ObjectRef {
	if ref, ok := h.classes[name]; ok {
		return ref
	}
	ref := h.register("class:"+name, &object{size: headerBytes})
	h.classes[name] = ref
	return ref
}

// AddObject creates an ordinary object of the given class with no fields
// yet. The label must be unique within the heap.
func (h *Heap) AddObject(label string, class tracer.ObjectRef) tracer.ObjectRef {
	return h.register(label, &object{class: class, size: headerBytes})
}

// AddArray creates a reference array of the given class and length, with
// all elements nil.
func (h *Heap) AddArray(label string, class tracer.ObjectRef, length int) tracer.ObjectRef {
	if length < 0 {
		panic(fmt.Sprintf("memheap: negative array length %d", length))
	}
	return h.register(label, &object{
		class:   class,
		elems:   make([]tracer.ObjectRef, length),
		isArray: true,
		size:    headerBytes + uint64(length)*refBytes,
	})
}

// AddField appends a strong reference field to an ordinary object.
func (h *Heap) AddField(obj, ref tracer.ObjectRef) {
	h.addField(obj, ref, false)
}

// AddWeakField appends a weak/phantom referent field to an ordinary object.
// The tracer skips such slots when the session excludes weak reachability.
func (h *Heap) AddWeakField(obj, ref tracer.ObjectRef) {
	h.addField(obj, ref, true)
}

func (h *Heap) addField(obj, ref tracer.ObjectRef, weak bool) {
	o := h.lookup(obj)
	if o.isArray {
		panic(fmt.Sprintf("memheap: AddField on array %q", h.labels[obj]))
	}
	o.fields = append(o.fields, slot{ref: ref, weak: weak})
	o.size += refBytes
	h.totalBytes += refBytes
}

// SetElem stores a reference at an array index.
func (h *Heap) SetElem(arr tracer.ObjectRef, i int, ref tracer.ObjectRef) {
	o := h.lookup(arr)
	if !o.isArray {
		panic(fmt.Sprintf("memheap: SetElem on non-array %q", h.labels[arr]))
	}
	o.elems[i] = ref
}

// AddRoot registers ref with one of the four root classes.
func (h *Heap) AddRoot(rc RootClass, ref tracer.ObjectRef) {
	h.roots[rc] = append(h.roots[rc], ref)
}

func (h *Heap) lookup(ref tracer.ObjectRef) *object {
	o, ok := h.objects[ref]
	if !ok {
		panic(fmt.Sprintf("memheap: unknown object handle %#x", uint64(ref)))
	}
	return o
}

// Lookup resolves a label to its handle.
func (h *Heap) Lookup(label string) (tracer.ObjectRef, bool) {
	ref, ok := h.byLabel[label]
	return ref, ok
}

// Label returns the label an object was created under.
func (h *Heap) Label(ref tracer.ObjectRef) string {
	return h.labels[ref]
}

// ClassName returns the class name of an object, or "" for class objects
// themselves.
func (h *Heap) ClassName(ref tracer.ObjectRef) string {
	class := h.lookup(ref).class
	if class.IsNil() {
		return ""
	}
	label := h.labels[class]
	return label[len("class:"):]
}

// SizeOf returns the modeled size of an object in bytes.
func (h *Heap) SizeOf(ref tracer.ObjectRef) uint64 {
	return h.lookup(ref).size
}

// NumObjects returns the number of objects in the heap, class objects
// included.
func (h *Heap) NumObjects() int {
	return len(h.objects)
}

// TotalBytes returns the modeled heap footprint.
func (h *Heap) TotalBytes() uint64 {
	return h.totalBytes
}

// ========================================
// tracer.Heap implementation
// ========================================

// IsArray implements tracer.Heap.
func (h *Heap) IsArray(ref tracer.ObjectRef) bool {
	return h.lookup(ref).isArray
}

// ArrayLength implements tracer.Heap.
func (h *Heap) ArrayLength(ref tracer.ObjectRef) int {
	o := h.lookup(ref)
	if !o.isArray {
		panic(fmt.Sprintf("memheap: ArrayLength on non-array %q", h.labels[ref]))
	}
	return len(o.elems)
}

// Metadata implements tracer.Heap: the class object, or nil for classes.
func (h *Heap) Metadata(ref tracer.ObjectRef) tracer.ObjectRef {
	return h.lookup(ref).class
}

// VisitFields implements tracer.Heap. Weak slots are skipped, not loaded,
// under SkipReferents.
func (h *Heap) VisitFields(ref tracer.ObjectRef, mode tracer.FieldMode, emit func(tracer.ObjectRef)) {
	for _, f := range h.lookup(ref).fields {
		if f.weak && mode == tracer.SkipReferents {
			continue
		}
		emit(f.ref)
	}
}

// VisitArrayRange implements tracer.Heap.
func (h *Heap) VisitArrayRange(ref tracer.ObjectRef, start, end int, emit func(tracer.ObjectRef)) {
	o := h.lookup(ref)
	if !o.isArray {
		panic(fmt.Sprintf("memheap: VisitArrayRange on non-array %q", h.labels[ref]))
	}
	for _, e := range o.elems[start:end] {
		emit(e)
	}
}

// ========================================
// Root providers
// ========================================

// Roots returns a provider enumerating one root class.
func (h *Heap) Roots(rc RootClass) tracer.RootProvider {
	refs := h.roots[rc]
	return tracer.RootProviderFunc(func(emit func(tracer.ObjectRef)) {
		for _, ref := range refs {
			emit(ref)
		}
	})
}

// RootSet returns all four root classes wired for session construction.
func (h *Heap) RootSet() tracer.RootSet {
	return tracer.RootSet{
		Strong:           h.Roots(StrongRoots),
		ConcurrentStrong: h.Roots(ConcurrentStrongRoots),
		Weak:             h.Roots(WeakRoots),
		ConcurrentWeak:   h.Roots(ConcurrentWeakRoots),
	}
}

// ========================================
// Reference traversal (verification oracle)
// ========================================

// ReachableSet computes, by a plain sequential search, the set of objects a
// correct traversal must visit: everything transitively reachable from the
// enabled root classes, metadata included. Used by tests and the verify
// tool as the oracle the parallel traversal is compared against.
func (h *Heap) ReachableSet(includeWeak bool) map[tracer.ObjectRef]bool {
	visited := make(map[tracer.ObjectRef]bool)
	var stack []tracer.ObjectRef

	push := func(ref tracer.ObjectRef) {
		if ref.IsNil() || visited[ref] {
			return
		}
		visited[ref] = true
		stack = append(stack, ref)
	}

	classes := []RootClass{StrongRoots, ConcurrentStrongRoots}
	if includeWeak {
		classes = append(classes, WeakRoots, ConcurrentWeakRoots)
	}
	for _, rc := range classes {
		for _, ref := range h.roots[rc] {
			push(ref)
		}
	}

	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		o := h.lookup(ref)
		push(o.class)
		if o.isArray {
			for _, e := range o.elems {
				push(e)
			}
			continue
		}
		for _, f := range o.fields {
			if f.weak && !includeWeak {
				continue
			}
			push(f.ref)
		}
	}

	return visited
}
