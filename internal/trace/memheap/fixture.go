package memheap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sugawarayuuta/sonnet"
	"github.com/tailscale/hujson"
	yaml "gopkg.in/yaml.v2"

	"github.com/kolkov/heaptracer/internal/trace/tracer"
)

// Fixture is the file representation of a synthetic heap.
//
// JSON fixtures may use the human-friendly JWCC flavor (comments and
// trailing commas); YAML fixtures are selected by file extension. Objects
// and roots refer to each other by label; the empty label denotes a nil
// reference.
//
// Example (JWCC):
//
//	{
//		"objects": [
//			{"id": "a", "class": "Node", "fields": ["b"]},
//			{"id": "b", "class": "Node", "fields": ["a"]}, // cycle back to a
//			{"id": "arr", "class": "Node[]", "array": true, "elements": ["a", "b"]},
//		],
//		"roots": {"strong": ["arr"]},
//	}
type Fixture struct {
	Objects []FixtureObject `json:"objects" yaml:"objects"`
	Roots   FixtureRoots    `json:"roots" yaml:"roots"`
}

// FixtureObject describes one object of a fixture heap.
type FixtureObject struct {
	// ID is the object's unique label.
	ID string `json:"id" yaml:"id"`

	// Class is the class name; distinct names become distinct metadata
	// objects. Empty means the default class "Object".
	Class string `json:"class" yaml:"class"`

	// Fields lists strong reference fields by target label.
	Fields []string `json:"fields" yaml:"fields"`

	// WeakFields lists weak/phantom referent fields by target label.
	WeakFields []string `json:"weak_fields" yaml:"weak_fields"`

	// Array marks the object as a reference array. Implied by a non-empty
	// Elements list; set it explicitly for empty arrays.
	Array bool `json:"array" yaml:"array"`

	// Elements lists the array elements by target label.
	Elements []string `json:"elements" yaml:"elements"`
}

// FixtureRoots lists the four root classes by target label.
type FixtureRoots struct {
	Strong         []string `json:"strong" yaml:"strong"`
	Concurrent     []string `json:"concurrent" yaml:"concurrent"`
	Weak           []string `json:"weak" yaml:"weak"`
	ConcurrentWeak []string `json:"concurrent_weak" yaml:"concurrent_weak"`
}

// LoadFixture reads and builds a heap from a fixture file. The format is
// chosen by extension: .yaml/.yml parse as YAML, everything else as JWCC
// JSON.
func LoadFixture(path string) (*Heap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memheap: read fixture: %w", err)
	}

	var fx Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fx); err != nil {
			return nil, fmt.Errorf("memheap: parse %s: %w", filepath.Base(path), err)
		}
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("memheap: standardize %s: %w", filepath.Base(path), err)
		}
		if err := sonnet.Unmarshal(std, &fx); err != nil {
			return nil, fmt.Errorf("memheap: parse %s: %w", filepath.Base(path), err)
		}
	}

	return BuildFixture(&fx)
}

// BuildFixture constructs a heap from an in-memory fixture.
//
// Construction is two-pass: every object is created first so that fields,
// elements, and roots can refer to labels in any order, cycles included.
func BuildFixture(fx *Fixture) (*Heap, error) {
	h := New()

	// Pass 1: create all objects and their classes.
	for _, fo := range fx.Objects {
		if fo.ID == "" {
			return nil, fmt.Errorf("memheap: fixture object without id")
		}
		if _, dup := h.Lookup(fo.ID); dup {
			return nil, fmt.Errorf("memheap: duplicate fixture id %q", fo.ID)
		}

		className := fo.Class
		if className == "" {
			className = "Object"
		}
		class := h.AddClass(className)

		isArray := fo.Array || len(fo.Elements) > 0
		if isArray {
			if len(fo.Fields) > 0 || len(fo.WeakFields) > 0 {
				return nil, fmt.Errorf("memheap: fixture array %q has fields", fo.ID)
			}
			h.AddArray(fo.ID, class, len(fo.Elements))
		} else {
			h.AddObject(fo.ID, class)
		}
	}

	resolve := func(owner, label string) (ref tracer.ObjectRef, err error) {
		if label == "" {
			return 0, nil // nil reference
		}
		r, ok := h.Lookup(label)
		if !ok {
			return 0, fmt.Errorf("memheap: %q refers to unknown id %q", owner, label)
		}
		return r, nil
	}

	// Pass 2: wire fields, elements, and roots.
	for _, fo := range fx.Objects {
		ref, _ := h.Lookup(fo.ID)

		for _, target := range fo.Fields {
			t, err := resolve(fo.ID, target)
			if err != nil {
				return nil, err
			}
			h.AddField(ref, t)
		}
		for _, target := range fo.WeakFields {
			t, err := resolve(fo.ID, target)
			if err != nil {
				return nil, err
			}
			h.AddWeakField(ref, t)
		}
		for i, target := range fo.Elements {
			t, err := resolve(fo.ID, target)
			if err != nil {
				return nil, err
			}
			h.SetElem(ref, i, t)
		}
	}

	rootLists := []struct {
		rc     RootClass
		labels []string
	}{
		{StrongRoots, fx.Roots.Strong},
		{ConcurrentStrongRoots, fx.Roots.Concurrent},
		{WeakRoots, fx.Roots.Weak},
		{ConcurrentWeakRoots, fx.Roots.ConcurrentWeak},
	}
	for _, rl := range rootLists {
		for _, label := range rl.labels {
			t, err := resolve("roots."+rl.rc.String(), label)
			if err != nil {
				return nil, err
			}
			h.AddRoot(rl.rc, t)
		}
	}

	return h, nil
}
