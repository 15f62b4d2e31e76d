package domain

import "context"

// Embedder turns query text into a unit-length vector. It is the seam between
// the search use case and every embedding backend.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by embedders that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is a query vector and the number of tokens the encoder
// attended to. Tokens is zero when no encoder ran, as on a cache hit.
type EmbeddingResult struct {
	Embedding []float32
	Tokens    int
}

// InstructionEmbedder prefixes every query with a retrieval instruction, as
// asymmetric models like bge expect for the query side only.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// WithInstruction wraps inner so each query is prefixed with instruction.
// An empty instruction returns inner unchanged.
func WithInstruction(inner Embedder, instruction string) Embedder {
	if instruction == "" {
		return inner
	}
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Instruction returns the prefix applied to queries.
func (e *InstructionEmbedder) Instruction() string { return e.instruction }

// Embed embeds instruction+text. Errors pass through untouched so callers
// still see the embedding sentinels.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return e.inner.Embed(ctx, e.instruction+text) //nolint:wrapcheck // transparent decorator
}

// HealthCheck probes the wrapped embedder when it supports it.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
