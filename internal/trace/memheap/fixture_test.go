package memheap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFixture_JWCC(t *testing.T) {
	path := writeFixture(t, "heap.json", `{
		// Two nodes in a cycle plus an array root.
		"objects": [
			{"id": "a", "class": "Node", "fields": ["b"]},
			{"id": "b", "class": "Node", "fields": ["a", ""]}, // second field is nil
			{"id": "arr", "class": "Node[]", "elements": ["a", "b", ""]},
		],
		"roots": {
			"strong": ["arr"],
			"concurrent_weak": ["b"],
		},
	}`)

	h, err := LoadFixture(path)
	require.NoError(t, err)

	a, ok := h.Lookup("a")
	require.True(t, ok)
	arr, ok := h.Lookup("arr")
	require.True(t, ok)

	assert.Equal(t, "Node", h.ClassName(a))
	assert.True(t, h.IsArray(arr))
	assert.Equal(t, 3, h.ArrayLength(arr))

	// 3 fixture objects + 2 class objects.
	assert.Equal(t, 5, h.NumObjects())

	reach := h.ReachableSet(false)
	assert.Contains(t, reach, a, "a reachable through the array root")
}

func TestLoadFixture_YAML(t *testing.T) {
	path := writeFixture(t, "heap.yaml", `
objects:
  - id: root
    class: Holder
    fields: [leaf]
    weak_fields: [shadow]
  - id: leaf
  - id: shadow
  - id: empty
    array: true
roots:
  strong: [root]
  weak: [shadow]
`)

	h, err := LoadFixture(path)
	require.NoError(t, err)

	root, ok := h.Lookup("root")
	require.True(t, ok)
	leaf, ok := h.Lookup("leaf")
	require.True(t, ok)
	shadow, ok := h.Lookup("shadow")
	require.True(t, ok)
	empty, ok := h.Lookup("empty")
	require.True(t, ok)

	assert.Equal(t, "Object", h.ClassName(leaf), "empty class defaults to Object")
	assert.True(t, h.IsArray(empty))
	assert.Equal(t, 0, h.ArrayLength(empty))

	strong := h.ReachableSet(false)
	assert.Contains(t, strong, root)
	assert.Contains(t, strong, leaf)
	assert.NotContains(t, strong, shadow, "weak root and weak field only")

	weak := h.ReachableSet(true)
	assert.Contains(t, weak, shadow)
}

func TestLoadFixture_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing id", `{"objects": [{"class": "X"}]}`},
		{"duplicate id", `{"objects": [{"id": "a"}, {"id": "a"}]}`},
		{"unknown field target", `{"objects": [{"id": "a", "fields": ["ghost"]}]}`},
		{"unknown root target", `{"objects": [{"id": "a"}], "roots": {"strong": ["ghost"]}}`},
		{"array with fields", `{"objects": [{"id": "a", "array": true, "fields": ["a"]}]}`},
		{"malformed json", `{"objects": [`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFixture(t, "bad.json", tc.content)
			_, err := LoadFixture(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFixture_MissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
