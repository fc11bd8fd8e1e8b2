package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func TestFindFilesByExtension_SortedAndFiltered(t *testing.T) {
	root := writeTree(t, "b.hcl", "a.hcl", "notes.txt", "sub/c.hcl")

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "sub", "c.hcl"),
	}
	assert.Equal(t, want, files)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(".", "") })
}

func TestCollectFiles(t *testing.T) {
	root := writeTree(t, "graph/a.hcl", "graph/b.hcl", "extra.graph")
	extra := filepath.Join(root, "extra.graph")
	dir := filepath.Join(root, "graph")

	files, err := CollectFiles([]string{extra, dir, filepath.Join(dir, "a.hcl")}, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{extra, filepath.Join(dir, "a.hcl"), filepath.Join(dir, "b.hcl")}, files)

	_, err = CollectFiles([]string{filepath.Join(root, "missing")}, ".hcl")
	assert.Error(t, err)
}
