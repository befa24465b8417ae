// Package chunker splits file content into overlapping line-range chunks for
// embedding and search.
//
// Chunks are produced by sliding a fixed-size line window with a fixed
// overlap. Two named presets control the window: docPreset for
// documentation-area or markdown files, codePreset for everything else.
// Overlap is always smaller than the window, so forward progress is
// guaranteed.
//
// Chunking is deterministic: the same path and content always yield the same
// chunk ids and line ranges, which makes re-indexing an unchanged file an
// idempotent no-op at the store level.
package chunker
