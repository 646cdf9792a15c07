package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"
	"github.com/sugawarayuuta/sonnet"

	"github.com/kolkov/heaptracer/heaptrace"
	"github.com/kolkov/heaptracer/internal/trace/memheap"
)

// dumpOptions are the resolved settings of one dump run.
type dumpOptions struct {
	fixture string
	output  string
	format  string // "json" or "sqlite"
	workers int
	weak    bool
	stride  int
}

// dumpObject is one visited object in the dump output.
type dumpObject struct {
	Addr  uint64 `json:"addr"`
	Label string `json:"label"`
	Class string `json:"class,omitempty"`
	Kind  string `json:"kind"` // "object", "array", or "class"
	Size  uint64 `json:"size"`
}

// dumpFile is the JSON dump document.
type dumpFile struct {
	Fixture     string       `json:"fixture"`
	Workers     int          `json:"workers"`
	IncludeWeak bool         `json:"include_weak"`
	ChunkStride int          `json:"chunk_stride"`
	Objects     []dumpObject `json:"objects"`
}

func dumpCommand(args []string) {
	fs := pflag.NewFlagSet("dump", pflag.ExitOnError)
	workers := fs.IntP("workers", "w", 4, "number of parallel traversal workers")
	weak := fs.Bool("weak", false, "include weak/phantom roots and referent fields")
	stride := fs.Int("stride", heaptrace.DefaultChunkStride, "array chunk stride in elements")
	format := fs.StringP("format", "f", "json", "dump format: json or sqlite")
	output := fs.StringP("output", "o", "", "output path (default: fixture path + .dump.json / .dump.db)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: heapdump dump [flags] <fixture>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	opts := dumpOptions{
		fixture: fs.Arg(0),
		output:  *output,
		format:  strings.ToLower(*format),
		workers: *workers,
		weak:    *weak,
		stride:  *stride,
	}
	if err := runDump(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "heapdump: %v\n", err)
		os.Exit(1)
	}
}

// runDump loads the fixture, traverses it, and writes the dump. Progress
// and the final summary go to out.
func runDump(opts dumpOptions, out io.Writer) error {
	if opts.format != "json" && opts.format != "sqlite" {
		return fmt.Errorf("unknown dump format %q (want json or sqlite)", opts.format)
	}
	if opts.output == "" {
		ext := ".dump.json"
		if opts.format == "sqlite" {
			ext = ".dump.db"
		}
		opts.output = opts.fixture + ext
	}

	h, err := memheap.LoadFixture(opts.fixture)
	if err != nil {
		return err
	}

	doc := &dumpFile{
		Fixture:     opts.fixture,
		Workers:     opts.workers,
		IncludeWeak: opts.weak,
		ChunkStride: opts.stride,
	}

	var mu sync.Mutex
	start := time.Now()
	stats, err := heaptrace.Traverse(h, h.RootSet(), heaptrace.Config{
		Workers:     opts.workers,
		IncludeWeak: opts.weak,
		ChunkStride: opts.stride,
		Layout:      h.Layout(),
	}, func(ref heaptrace.ObjectRef) {
		obj := dumpObject{
			Addr:  uint64(ref),
			Label: h.Label(ref),
			Class: h.ClassName(ref),
			Kind:  kindOf(h, ref),
			Size:  h.SizeOf(ref),
		}
		mu.Lock()
		doc.Objects = append(doc.Objects, obj)
		mu.Unlock()
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	// Deterministic output regardless of traversal order.
	sort.Slice(doc.Objects, func(i, j int) bool {
		return doc.Objects[i].Addr < doc.Objects[j].Addr
	})

	switch opts.format {
	case "json":
		err = writeJSONDump(opts.output, doc)
	case "sqlite":
		err = writeSQLiteDump(opts.output, doc)
	}
	if err != nil {
		return err
	}

	var total uint64
	for _, o := range doc.Objects {
		total += o.Size
	}
	fmt.Fprintf(out, "visited %d objects (%s) in %s with %d workers\n",
		len(doc.Objects), bytesize.New(float64(total)), elapsed.Round(time.Microsecond), opts.workers)
	fmt.Fprintf(out, "chunks %d, steals %d objects / %d chunks, granule bitmaps %d\n",
		stats.ArrayChunks, stats.Steals, stats.ArrayChunkSteals, stats.Bitmaps)
	fmt.Fprintf(out, "wrote %s\n", opts.output)
	return nil
}

func kindOf(h *memheap.Heap, ref heaptrace.ObjectRef) string {
	switch {
	case h.IsArray(ref):
		return "array"
	case h.ClassName(ref) == "":
		return "class"
	default:
		return "object"
	}
}

// writeJSONDump marshals the dump and writes it atomically, so a crash
// mid-write never leaves a truncated dump at the target path.
func writeJSONDump(path string, doc *dumpFile) error {
	data, err := sonnet.MarshalIndent(doc, "", "\t")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}
