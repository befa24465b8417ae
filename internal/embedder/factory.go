package embedder

import (
	"fmt"
	"strings"

	"github.com/kodexlab/kodex/internal/config"
)

// New creates an embedder from configuration. The provider is selected once
// here; call sites only ever see the Embedder interface.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Endpoint, cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
