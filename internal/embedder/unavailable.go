package embedder

import (
	"context"
	"strings"
)

// DimensionFor returns the embedding dimension of a provider's default model.
func DimensionFor(provider string) int {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return OpenAIDimension
	case ProviderOllama:
		return OllamaDimension
	default:
		return LocalDimension
	}
}

// unavailable is an Embedder whose calls always fail with *UnavailableError.
// It stands in for a provider that could not be constructed, so retrieval can
// still run lexical-only while indexing honors its required/optional setting.
type unavailable struct {
	provider string
	model    string
	reason   string
}

// NewUnavailable returns an Embedder that reports the given reason on every
// call.
func NewUnavailable(provider, model, reason string) Embedder {
	return &unavailable{provider: provider, model: model, reason: reason}
}

func (u *unavailable) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return nil, &UnavailableError{Reason: u.reason}
}

func (u *unavailable) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return nil, &UnavailableError{Reason: u.reason}
}

func (u *unavailable) Dimension() int {
	return DimensionFor(u.provider)
}

func (u *unavailable) Provider() string { return u.provider }

func (u *unavailable) Model() string { return u.model }

func (u *unavailable) Close() error { return nil }
