// Package retriever answers natural-language queries against a built index
// with hybrid vector+lexical scoring.
//
// Each query draws two candidate pools of twice the requested size, one by
// cosine similarity from the vector store and one by lexical scoring over the
// raw chunk text, and merges them with configurable weights (vector above
// lexical by default). Chunks are then grouped by their owning file: a file
// scores as its best chunk, keeps its top three chunks as snippets, and the
// file list is ranked, threshold-filtered, and capped.
//
// When the embedder is unavailable the retriever degrades to lexical-only
// scoring instead of failing; querying a root that was never indexed is a
// distinct "not indexed" error, never an empty success.
package retriever
