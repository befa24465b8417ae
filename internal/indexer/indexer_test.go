package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexlab/kodex/internal/chunkmap"
	"github.com/kodexlab/kodex/internal/config"
	"github.com/kodexlab/kodex/internal/embedder"
	"github.com/kodexlab/kodex/internal/store"
	"github.com/kodexlab/kodex/internal/tracker"
	"github.com/kodexlab/kodex/pkg/types"
)

func sourceLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "// line %03d of generated source content\n", i)
	}
	return b.String()
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestIndexer(t *testing.T, emb embedder.Embedder, required bool) (*Indexer, *store.MemoryStore, config.IndexHome) {
	t.Helper()
	home := config.IndexHome{Dir: t.TempDir()}
	st := store.NewMemoryStore()
	if emb == nil {
		var err error
		emb, err = embedder.NewLocalProvider(nil)
		require.NoError(t, err)
	}
	idx := New(st, emb, home, Config{BatchSize: 10, EmbeddingRequired: required}, nil)
	return idx, st, home
}

func TestRunFreshIndex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"internal/server/handler.go": sourceLines(60),
		"cmd/app/main.go":            sourceLines(20),
		"docs/guide.md":              sourceLines(90),
	})

	idx, st, home := newTestIndexer(t, nil, true)
	stats, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Failed)
	assert.False(t, stats.Degraded)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.Equal(t, stats.ChunksCreated, stats.TotalChunks)

	// Store contents match the chunk map exactly.
	records, err := st.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, stats.TotalChunks)
	for _, r := range records {
		assert.NotEmpty(t, r.Vector)
	}

	entries, err := chunkmap.Read(home.ChunkMapPath())
	require.NoError(t, err)
	assert.Len(t, entries, stats.TotalChunks)

	hashes, err := tracker.Load(home.HashStorePath())
	require.NoError(t, err)
	assert.Len(t, hashes, 3)

	manifest, err := chunkmap.ReadManifest(home.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, stats.TotalChunks, manifest.TotalChunks)
	assert.Equal(t, "hash-projection-v1", manifest.EmbeddingModel)
	assert.False(t, manifest.BuiltAt.IsZero())
}

func TestRunIdempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"internal/a.go": sourceLines(50),
		"internal/b.go": sourceLines(50),
	})

	idx, _, _ := newTestIndexer(t, nil, true)
	first, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)

	second, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
	assert.Equal(t, 2, second.Skipped)
	assert.Zero(t, second.ChunksCreated)
	assert.Zero(t, second.ChunksRemoved)
	assert.Equal(t, first.TotalChunks, second.TotalChunks)
}

func TestRunDetectsModification(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"internal/a.go": sourceLines(50),
		"internal/b.go": sourceLines(50),
	})

	idx, st, _ := newTestIndexer(t, nil, true)
	_, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"internal/a.go": sourceLines(120)})

	stats, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Greater(t, stats.ChunksRemoved, 0, "the old chunks of the changed file are replaced")
	assert.Greater(t, stats.ChunksCreated, 0)

	// No stale chunks: every stored chunk for a.go comes from the new content.
	records, err := st.ListAll(ctx)
	require.NoError(t, err)
	count := 0
	for _, r := range records {
		if r.File == "internal/a.go" {
			count++
		}
	}
	// 120 lines with window 40 step 32: chunks at 1, 33, 65, 97.
	assert.Equal(t, 4, count)
}

func TestRunDetectsDeletion(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"internal/keep.go": sourceLines(50),
		"internal/gone.go": sourceLines(50),
	})

	idx, st, home := newTestIndexer(t, nil, true)
	_, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "internal", "gone.go")))

	stats, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)
	assert.Greater(t, stats.ChunksRemoved, 0)

	records, err := st.ListAll(ctx)
	require.NoError(t, err)
	for _, r := range records {
		assert.NotEqual(t, "internal/gone.go", r.File)
	}

	// The deleted file is out of the durable state too.
	hashes, err := tracker.Load(home.HashStorePath())
	require.NoError(t, err)
	_, ok := hashes["internal/gone.go"]
	assert.False(t, ok)

	entries, err := chunkmap.Read(home.ChunkMapPath())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "internal/gone.go", e.File)
	}
}

func TestRunForce(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"internal/a.go": sourceLines(50)})

	idx, _, _ := newTestIndexer(t, nil, true)
	_, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)

	stats, err := idx.Run(ctx, root, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Zero(t, stats.Skipped)
}

func TestRunMissingTarget(t *testing.T) {
	idx, _, _ := newTestIndexer(t, nil, true)
	_, err := idx.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	assert.ErrorIs(t, err, types.ErrTargetMissing)
}

func TestRunEmbeddingRequiredFails(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"internal/a.go": sourceLines(50)})

	emb := embedder.NewUnavailable("openai", "test", "missing key")
	idx, _, home := newTestIndexer(t, emb, true)

	_, err := idx.Run(context.Background(), root, Options{})
	require.ErrorIs(t, err, embedder.ErrUnavailable)

	// A failed run leaves no durable state behind.
	_, err = chunkmap.ReadManifest(home.ManifestPath())
	assert.ErrorIs(t, err, types.ErrNotIndexed)
}

func TestRunDegradedWhenOptional(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"internal/a.go": sourceLines(50)})

	emb := embedder.NewUnavailable("openai", "test", "missing key")
	idx, st, _ := newTestIndexer(t, emb, false)

	stats, err := idx.Run(ctx, root, Options{})
	require.NoError(t, err)
	assert.True(t, stats.Degraded)
	assert.Equal(t, 1, stats.Processed)

	// Chunks are stored without vectors and stay lexically listable.
	records, err := st.ListAll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, r := range records {
		assert.Empty(t, r.Vector)
		assert.NotEmpty(t, r.Text)
	}
}
