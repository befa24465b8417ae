// Package embedder generates vector embeddings for chunk text.
//
// Three providers implement the Embedder interface: openai (remote API),
// ollama (local or remote Ollama server), and local (deterministic hash
// projection, fully offline). The provider is chosen once from configuration.
//
// Results are cached in an LRU keyed by content hash, and remote calls retry
// with exponential backoff. Authorization and availability failures are
// reported as *UnavailableError, a typed result that forces callers to choose
// between the lexical-only degrade path and failing the indexing run. There
// is no silent null-vector fallback.
package embedder
