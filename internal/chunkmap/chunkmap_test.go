package chunkmap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexlab/kodex/pkg/types"
)

func sampleEntries() []types.ChunkMapEntry {
	return []types.ChunkMapEntry{
		{ChunkID: "id-1", File: "internal/a.go", Start: 1, End: 40, ParentID: "parent-a", Area: "backend"},
		{ChunkID: "id-2", File: "internal/a.go", Start: 33, End: 72, ParentID: "parent-a", Area: "backend"},
		{ChunkID: "id-3", File: "docs/b.md", Start: 1, End: 80, ParentID: "parent-b", Area: "docs"},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "chunks.jsonl")
	entries := sampleEntries()

	require.NoError(t, Write(path, entries))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadMissing(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "chunks.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestReadMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	content := `{"chunk_id":"id-1","file":"a.go","start":1,"end":10}` + "\nnot json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestResolverByID(t *testing.T) {
	r := NewResolver(sampleEntries(), nil)
	require.Equal(t, 3, r.Len())

	e, ok := r.Resolve("id-2", "", 0)
	require.True(t, ok)
	assert.Equal(t, 33, e.Start)
	assert.Equal(t, 72, e.End)
}

func TestResolverByFileAndStart(t *testing.T) {
	r := NewResolver(sampleEntries(), nil)

	e, ok := r.Resolve("unknown-id", "docs/b.md", 1)
	require.True(t, ok)
	assert.Equal(t, "id-3", e.ChunkID)
}

func TestResolverBySuffix(t *testing.T) {
	r := NewResolver(sampleEntries(), nil)

	// The stored path is relative; a caller holding a longer path still
	// resolves through the suffix fallback.
	e, ok := r.Resolve("unknown-id", "old-root/internal/a.go", 33)
	require.True(t, ok)
	assert.Equal(t, "id-2", e.ChunkID)
}

func TestResolverMiss(t *testing.T) {
	r := NewResolver(sampleEntries(), nil)

	_, ok := r.Resolve("unknown-id", "internal/zzz.go", 99)
	assert.False(t, ok)

	_, ok = r.Resolve("unknown-id", "", 0)
	assert.False(t, ok)
}

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "manifest.json")
	m := &types.Manifest{
		EmbeddingModel: "hash-projection-v1",
		Dimension:      384,
		BuiltAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TotalFiles:     10,
		ProcessedFiles: 4,
		SkippedFiles:   6,
		TotalChunks:    42,
		Revision:       "abc123",
	}

	require.NoError(t, WriteManifest(path, m))

	loaded, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestManifestMissing(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "manifest.json"))
	assert.ErrorIs(t, err, types.ErrNotIndexed)
}
