package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Expected strong-reachable objects of testdata/small.json: the array, the
// cycle a/b, the watcher (weak field skipped), and the three class objects.
var smallStrong = []string{
	"arr", "a", "b", "watcher",
	"class:Node", "class:Node[]", "class:Watcher",
}

func TestRunDump_JSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "small.dump.json")

	var summary bytes.Buffer
	err := runDump(dumpOptions{
		fixture: "testdata/small.json",
		output:  out,
		format:  "json",
		workers: 2,
		stride:  2,
	}, &summary)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc dumpFile
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "testdata/small.json", doc.Fixture)
	assert.Equal(t, 2, doc.Workers)
	assert.False(t, doc.IncludeWeak)

	labels := make([]string, 0, len(doc.Objects))
	for _, o := range doc.Objects {
		labels = append(labels, o.Label)
		assert.NotZero(t, o.Addr, "dumped object %q has nil address", o.Label)
		assert.NotZero(t, o.Size, "dumped object %q has zero size", o.Label)
	}
	assert.ElementsMatch(t, smallStrong, labels)

	// Addresses are sorted for deterministic dumps.
	for i := 1; i < len(doc.Objects); i++ {
		assert.Less(t, doc.Objects[i-1].Addr, doc.Objects[i].Addr)
	}

	assert.Contains(t, summary.String(), "wrote "+out)
}

func TestRunDump_JSON_Weak(t *testing.T) {
	out := filepath.Join(t.TempDir(), "small.dump.json")

	err := runDump(dumpOptions{
		fixture: "testdata/small.json",
		output:  out,
		format:  "json",
		workers: 1,
		weak:    true,
		stride:  16,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc dumpFile
	require.NoError(t, json.Unmarshal(data, &doc))

	labels := make([]string, 0, len(doc.Objects))
	for _, o := range doc.Objects {
		labels = append(labels, o.Label)
	}
	assert.ElementsMatch(t, append(smallStrong, "shadow"), labels,
		"weak dump additionally reaches the weak root")
}

func TestRunDump_SQLite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "small.dump.db")

	err := runDump(dumpOptions{
		fixture: "testdata/small.json",
		output:  out,
		format:  "sqlite",
		workers: 2,
		stride:  2,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", out)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM objects`).Scan(&count))
	assert.Equal(t, len(smallStrong), count)

	var workers string
	require.NoError(t, db.QueryRow(`SELECT value FROM meta WHERE key = 'workers'`).Scan(&workers))
	assert.Equal(t, "2", workers)
}

func TestRunDump_BadInputs(t *testing.T) {
	err := runDump(dumpOptions{fixture: "testdata/small.json", format: "xml", workers: 1}, &bytes.Buffer{})
	assert.Error(t, err, "unknown format")

	err = runDump(dumpOptions{fixture: "testdata/nope.json", format: "json", workers: 1}, &bytes.Buffer{})
	assert.Error(t, err, "missing fixture")
}

func TestRunVerify(t *testing.T) {
	var out bytes.Buffer
	ok, err := runVerify("testdata/small.json", 4, false, 2, &out)
	require.NoError(t, err)
	assert.True(t, ok, "verify failed:\n%s", out.String())
	assert.Contains(t, out.String(), "OK:")

	out.Reset()
	ok, err = runVerify("testdata/small.json", 4, true, 2, &out)
	require.NoError(t, err)
	assert.True(t, ok, "weak verify failed:\n%s", out.String())
}
