package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.InDelta(t, 0.7, cfg.Search.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.LexicalWeight, 1e-9)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, 3, cfg.Search.SnippetsPerFile)
	assert.Equal(t, 100, cfg.Index.BatchSize)
	assert.Equal(t, 400, cfg.Watch.DebounceMs)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestIsRequiredDefaultsTrue(t *testing.T) {
	var e EmbeddingConfig
	assert.True(t, e.IsRequired())

	f := false
	e.Required = &f
	assert.False(t, e.IsRequired())

	tr := true
	e.Required = &tr
	assert.True(t, e.IsRequired())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
state_dir: /tmp/kodex-test
embedding:
  provider: ollama
  model: nomic-embed-text
  required: false
store:
  backend: memory
search:
  vector_weight: 0.6
  lexical_weight: 0.4
index:
  exclude:
    - "gen/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kodex-test", cfg.StateDir)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.False(t, cfg.Embedding.IsRequired())
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.InDelta(t, 0.6, cfg.Search.VectorWeight, 1e-9)
	assert.Equal(t, []string{"gen/"}, cfg.Index.Exclude)

	// Unset fields keep their defaults.
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Index.BatchSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: sqlite\n"), 0o644))

	t.Setenv("KODEX_STORE_BACKEND", "qdrant")
	t.Setenv("KODEX_QDRANT_HOST", "qdrant.internal")
	t.Setenv("KODEX_QDRANT_PORT", "7001")
	t.Setenv("KODEX_EMBEDDING_PROVIDER", "OLLAMA")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Store.QdrantHost)
	assert.Equal(t, 7001, cfg.Store.QdrantPort)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: cassandra\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestHomeForIsStablePerRoot(t *testing.T) {
	cfg := Default()
	cfg.StateDir = t.TempDir()

	a := cfg.HomeFor("/repos/alpha")
	b := cfg.HomeFor("/repos/alpha")
	c := cfg.HomeFor("/repos/beta")

	assert.Equal(t, a.Dir, b.Dir)
	assert.NotEqual(t, a.Dir, c.Dir)
	assert.True(t, filepath.IsAbs(a.Dir))

	assert.Equal(t, filepath.Join(a.Dir, "kodex.db"), a.DBPath())
	assert.Equal(t, filepath.Join(a.Dir, "hashes.json"), a.HashStorePath())
	assert.Equal(t, filepath.Join(a.Dir, "chunks.jsonl"), a.ChunkMapPath())
	assert.Equal(t, filepath.Join(a.Dir, "manifest.json"), a.ManifestPath())
}
