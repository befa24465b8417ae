// Package store provides the vector store boundary: upsert, nearest-neighbor
// query, per-file delete, full listing, and stats over (id, vector, metadata)
// records.
//
// Three backends implement the interface: sqlite (default, local), memory
// (tests and small trees), and qdrant (remote managed service). The backend
// is selected once at startup by the factory, never branched on per call.
package store

import (
	"context"
	"errors"
	"math"
)

// ErrNotFound is returned when a requested record doesn't exist.
var ErrNotFound = errors.New("not found")

// Record is one stored chunk: its vector plus the metadata needed to format
// results without consulting other state.
type Record struct {
	ID        string
	File      string
	Area      string
	Language  string
	StartLine int
	EndLine   int
	Text      string
	Vector    []float32
}

// Result is a record returned from a nearest-neighbor query with its cosine
// similarity score.
type Result struct {
	Record
	Score float64
}

// Stats summarizes a backend's contents.
type Stats struct {
	Count     int
	Dimension int
	Location  string
}

// Store is the vector storage boundary consumed by the indexing pipeline and
// the retriever.
type Store interface {
	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, records []Record) error

	// Query returns the top-k records by cosine similarity to vector,
	// ranked descending.
	Query(ctx context.Context, vector []float32, k int) ([]Result, error)

	// DeleteByFile removes every record owned by the given relative path
	// and returns how many were removed.
	DeleteByFile(ctx context.Context, file string) (int, error)

	// ListAll returns every stored record. Used for full-scan lexical
	// scoring.
	ListAll(ctx context.Context) ([]Record, error)

	// Stats reports record count, vector dimension, and backend location.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
