package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevisionMarkerFromRef(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "refs", "heads", "main"), []byte("abc123def456\n"), 0o644))

	assert.Equal(t, "abc123def456", revisionMarker(root))
}

func TestRevisionMarkerDetachedHead(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("deadbeef0123\n"), 0o644))

	assert.Equal(t, "deadbeef0123", revisionMarker(root))
}

func TestRevisionMarkerNoGit(t *testing.T) {
	marker := revisionMarker(t.TempDir())
	assert.True(t, strings.HasPrefix(marker, "run-"))
	assert.NotEqual(t, marker, revisionMarker(t.TempDir()), "synthesized markers are unique")
}
