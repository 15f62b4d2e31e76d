package search

import (
	"context"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
)

// Ranker runs the similarity query for a resolved mode.
type Ranker interface {
	Rank(ctx context.Context, vec []float32, limit int, m mode.Mode) ([]result.Result, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
