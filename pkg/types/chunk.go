package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Area is a coarse classification of a file's role in the tree, derived from
// path heuristics.
type Area string

const (
	AreaBackend  Area = "backend"
	AreaFrontend Area = "frontend"
	AreaInfra    Area = "infra"
	AreaDocs     Area = "docs"
	AreaOther    Area = "other"
)

// Valid reports whether a is one of the known areas.
func (a Area) Valid() bool {
	switch a {
	case AreaBackend, AreaFrontend, AreaInfra, AreaDocs, AreaOther:
		return true
	}
	return false
}

// chunkNamespace is the UUID v5 namespace for chunk ids. Changing it
// invalidates every existing index.
var chunkNamespace = uuid.MustParse("8f1c3a52-0b6e-4d9a-9c4f-2a7d8e5b1f60")

// NewChunkID returns the deterministic id for the chunk of file starting at
// startLine. Ids are globally unique across files because the relative path
// is part of the name.
func NewChunkID(file string, startLine int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", file, startLine))).String()
}

// Chunk is a contiguous line-range slice of one file's text, the unit of
// embedding and retrieval. Line numbers are 1-based and inclusive on both
// ends.
type Chunk struct {
	ID        string
	File      string // relative POSIX-style path of the owning file
	Text      string
	Language  string
	Area      Area
	StartLine int
	EndLine   int
	Vector    []float32 // nil until embedded
}

// Validate checks structural invariants of the chunk.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk id cannot be empty")
	}
	if c.File == "" {
		return errors.New("chunk file cannot be empty")
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	if !c.Area.Valid() {
		return fmt.Errorf("invalid area %q", c.Area)
	}
	return nil
}

// ChunkMapEntry is the denormalized projection of a chunk persisted in the
// chunk map, one JSON object per line. It recovers line-range metadata at
// query time even when the vector store's metadata is partial.
type ChunkMapEntry struct {
	ChunkID  string `json:"chunk_id"`
	File     string `json:"file"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	ParentID string `json:"parent_id"`
	Area     string `json:"area"`
}
