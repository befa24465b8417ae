// Package types defines the shared data model for the kodex index: chunks,
// file records, the run manifest, and query result shapes.
//
// Chunk ids are deterministic: the same (file, start line) pair always
// produces the same id, which is what makes re-indexing an unchanged region
// an idempotent upsert rather than a duplicate insert.
package types
