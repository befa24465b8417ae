package store

import (
	"context"
	"fmt"

	"github.com/kodexlab/kodex/internal/config"
)

// New selects and constructs the configured backend. dbPath is the per-index
// sqlite location; dimension is the embedder's vector dimension (required by
// the qdrant backend to shape its collection).
func New(ctx context.Context, cfg config.StoreConfig, dbPath string, dimension int) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteStore(dbPath)
	case "qdrant":
		return NewQdrantStore(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, dimension)
	default:
		return nil, fmt.Errorf("unknown store backend %q (supported: sqlite, memory, qdrant)", cfg.Backend)
	}
}
