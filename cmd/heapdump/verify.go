package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/pflag"

	"github.com/kolkov/heaptracer/heaptrace"
	"github.com/kolkov/heaptracer/internal/trace/memheap"
)

func verifyCommand(args []string) {
	fs := pflag.NewFlagSet("verify", pflag.ExitOnError)
	workers := fs.IntP("workers", "w", 4, "number of parallel traversal workers")
	weak := fs.Bool("weak", false, "include weak/phantom roots and referent fields")
	stride := fs.Int("stride", heaptrace.DefaultChunkStride, "array chunk stride in elements")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: heapdump verify [flags] <fixture>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	ok, err := runVerify(fs.Arg(0), *workers, *weak, *stride, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heapdump: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// runVerify traverses the fixture in parallel and compares the visited set
// against the sequential reference search. Returns false when the sets
// differ or any object was visited more than once.
func runVerify(fixture string, workers int, weak bool, stride int, out io.Writer) (bool, error) {
	h, err := memheap.LoadFixture(fixture)
	if err != nil {
		return false, err
	}

	var mu sync.Mutex
	visits := make(map[heaptrace.ObjectRef]int)
	_, err = heaptrace.Traverse(h, h.RootSet(), heaptrace.Config{
		Workers:     workers,
		IncludeWeak: weak,
		ChunkStride: stride,
		Layout:      h.Layout(),
	}, func(ref heaptrace.ObjectRef) {
		mu.Lock()
		visits[ref]++
		mu.Unlock()
	})
	if err != nil {
		return false, err
	}

	want := h.ReachableSet(weak)

	ok := true
	for ref, n := range visits {
		if n > 1 {
			fmt.Fprintf(out, "FAIL: object %q visited %d times\n", h.Label(ref), n)
			ok = false
		}
		if !want[ref] {
			fmt.Fprintf(out, "FAIL: object %q visited but not reachable\n", h.Label(ref))
			ok = false
		}
	}
	for ref := range want {
		if visits[ref] == 0 {
			fmt.Fprintf(out, "FAIL: reachable object %q never visited\n", h.Label(ref))
			ok = false
		}
	}

	if ok {
		fmt.Fprintf(out, "OK: %d objects visited exactly once with %d workers\n", len(visits), workers)
	}
	return ok, nil
}
