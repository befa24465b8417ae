// Package indexer orchestrates the incremental indexing pipeline:
//
//	discover files -> compute hashes -> partition (unchanged / to-process /
//	deleted) -> re-chunk and embed changed files -> flush to the vector store
//	in bounded batches -> sweep deleted files -> persist chunk map, hash
//	store, and manifest.
//
// The persisted state files are only replaced after the run completes, so a
// killed run never corrupts the previous valid index: unchanged files remain
// unchanged and partially-processed files are simply reprocessed next time,
// because their hash was never recorded as current.
//
// A single file's read, chunk, or embed failure is logged and skipped; it
// does not abort the run. An unavailable embedder is handled at exactly one
// decision point: with embeddings required the run fails, otherwise chunks
// are stored with zero vectors and stay lexically searchable.
package indexer
