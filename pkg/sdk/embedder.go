package servicesearch

import "context"

// Embedder converts query text to a vector embedding.
// Returned vectors are normalized to unit length by the client.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and the number of tokens consumed.
type EmbeddingResult struct {
	Embedding []float32
	Tokens    int
}
