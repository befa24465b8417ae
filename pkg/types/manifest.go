package types

import "time"

// FileRecord tracks one indexed file. The path is the unique key, relative to
// the index root and POSIX-style regardless of host OS.
type FileRecord struct {
	Path      string
	Hash      string // hex digest of the full byte content
	IndexedAt time.Time
}

// Manifest summarizes the most recent indexing run. A single instance exists
// per index and is overwritten wholesale on every successful run.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	BuiltAt        time.Time `json:"built_at"`
	TotalFiles     int       `json:"total_files"`
	ProcessedFiles int       `json:"processed_files"`
	SkippedFiles   int       `json:"skipped_files"`
	FailedFiles    int       `json:"failed_files"`
	DeletedFiles   int       `json:"deleted_files"`
	TotalChunks    int       `json:"total_chunks"`
	Revision       string    `json:"revision"`
}
