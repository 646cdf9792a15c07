// Package main implements the heapdump CLI tool.
//
// heapdump loads a synthetic heap fixture, traverses its object graph in
// parallel with the heaptrace engine, and writes the set of reachable
// objects as a dump file. It doubles as a correctness harness: the verify
// command compares a parallel traversal against a sequential reference
// search of the same fixture.
//
// Usage:
//
//	heapdump dump [flags] <fixture>      # Traverse and write a dump
//	heapdump verify [flags] <fixture>    # Cross-check traversal vs reference search
//
// Fixtures are JSON (JWCC, comments allowed) or YAML files describing
// objects, classes, weak slots, array elements, and the four root classes.
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/heaptracer/heaptrace"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "dump":
		dumpCommand(os.Args[2:])
	case "verify":
		verifyCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("heapdump version %s\n", heaptrace.Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`heapdump - Parallel heap graph dump tool

USAGE:
    heapdump <command> [arguments]

COMMANDS:
    dump       Traverse a fixture heap and write a dump file
    verify     Compare a parallel traversal against the reference search
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Dump a fixture to JSON with 8 workers
    heapdump dump -w 8 -o heap.dump.json testdata/heap.json

    # Dump into a SQLite database, weak references included
    heapdump dump --format sqlite --weak heap.yaml

    # Verify traversal correctness across worker counts
    heapdump verify -w 8 heap.json
`)
}
