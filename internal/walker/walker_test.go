package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(files []FileInfo) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.RelPath
	}
	return paths
}

func TestWalkBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "internal/server/handler.go", "package server")
	writeFile(t, root, "docs/guide.md", "# Guide")

	files, err := New(nil, nil).Walk(root)
	require.NoError(t, err)

	paths := relPaths(files)
	assert.ElementsMatch(t, []string{"main.go", "internal/server/handler.go", "docs/guide.md"}, paths)
	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path))
		assert.Greater(t, f.Size, int64(0))
	}
}

func TestWalkExcludesPolicy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "kept.go", "package main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, ".git/config", "[core]")
	writeFile(t, root, "vendor/dep/dep.go", "package dep")
	writeFile(t, root, ".hidden", "dotfile")
	writeFile(t, root, "package-lock.json", "{}")
	writeFile(t, root, "logo.png", "binarydata")
	writeFile(t, root, "empty.go", "")

	files, err := New(nil, nil).Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.go"}, relPaths(files))
}

func TestWalkSizeLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package main")

	big := make([]byte, maxFileSize+1)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), big, 0o644))

	files, err := New(nil, nil).Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, relPaths(files))
}

func TestWalkIncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main")
	writeFile(t, root, "b.md", "# doc")
	writeFile(t, root, "gen/c.go", "package gen")

	// Include narrows to Go files only.
	files, err := New([]string{"*.go"}, nil).Walk(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "gen/c.go"}, relPaths(files))

	// Exclude by directory prefix.
	files, err = New(nil, []string{"gen/"}).Walk(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.md"}, relPaths(files))
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := New(nil, nil).Walk(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestExcludedDir(t *testing.T) {
	assert.True(t, ExcludedDir("node_modules"))
	assert.True(t, ExcludedDir(".git"))
	assert.True(t, ExcludedDir(".anything"))
	assert.False(t, ExcludedDir("internal"))
}
