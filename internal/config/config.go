// Package config loads kodex configuration from an optional YAML file with
// environment-variable overrides, producing a single explicit Config that is
// passed into constructors. There is no ambient process-wide settings state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	StateDir  string          `yaml:"state_dir"` // per-root index homes live under here
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Watch     WatchConfig     `yaml:"watch"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama, local
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	Endpoint  string `yaml:"endpoint"` // ollama base URL
	CacheSize int    `yaml:"cache_size"`
	// Required decides what an unavailable embedder means for an indexing
	// run: true fails the run, false indexes with zero vectors so chunks
	// stay lexically searchable. This is the single degraded-mode decision
	// point.
	Required *bool `yaml:"required"`
}

// IsRequired returns whether embeddings are mandatory for indexing; defaults
// to true when unset.
func (e *EmbeddingConfig) IsRequired() bool {
	if e.Required != nil {
		return *e.Required
	}
	return true
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"` // sqlite, memory, qdrant
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
}

// SearchConfig holds hybrid scoring and result shaping settings.
type SearchConfig struct {
	VectorWeight    float64 `yaml:"vector_weight"`
	LexicalWeight   float64 `yaml:"lexical_weight"`
	DefaultLimit    int     `yaml:"default_limit"`
	MaxLimit        int     `yaml:"max_limit"`
	SnippetsPerFile int     `yaml:"snippets_per_file"`
	CacheSize       int     `yaml:"cache_size"`
}

// IndexConfig holds walking and pipeline settings.
type IndexConfig struct {
	Include   []string `yaml:"include"` // glob patterns; empty = all tracked extensions
	Exclude   []string `yaml:"exclude"` // glob patterns added to built-in excludes
	BatchSize int      `yaml:"batch_size"`
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounce_ms"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		StateDir: filepath.Join(home, ".kodex"),
		Embedding: EmbeddingConfig{
			Provider:  "local",
			CacheSize: 10000,
		},
		Store: StoreConfig{
			Backend:    "sqlite",
			QdrantHost: "localhost",
			QdrantPort: 6334,
			Collection: "kodex",
		},
		Search: SearchConfig{
			VectorWeight:    0.7,
			LexicalWeight:   0.3,
			DefaultLimit:    10,
			MaxLimit:        100,
			SnippetsPerFile: 3,
			CacheSize:       1000,
		},
		Index: IndexConfig{
			BatchSize: 100,
		},
		Watch: WatchConfig{
			DebounceMs: 400,
		},
	}
}

// Load reads the config file at path when it exists, applies defaults for
// unset fields, then applies KODEX_* environment overrides. An empty path
// checks the default location ~/.kodex/config.yaml.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.StateDir, "config.yaml")
		if _, err := os.Stat(path); err != nil {
			applyEnv(cfg)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("KODEX_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("KODEX_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("KODEX_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("KODEX_OLLAMA_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("KODEX_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("KODEX_QDRANT_HOST"); v != "" {
		cfg.Store.QdrantHost = v
	}
	if v := os.Getenv("KODEX_QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.QdrantPort = port
		}
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "sqlite", "memory", "qdrant":
	default:
		return fmt.Errorf("unknown store backend %q (supported: sqlite, memory, qdrant)", c.Store.Backend)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "local":
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: openai, ollama, local)", c.Embedding.Provider)
	}
	if c.Search.VectorWeight < 0 || c.Search.LexicalWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	return nil
}
