// Package search orchestrates a query: embed the text, then rank the catalog.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
	"github.com/kailas-cloud/servicesearch/internal/metrics"
)

const tracerName = "github.com/kailas-cloud/servicesearch/internal/usecase/search"

// Service runs validated search requests. Every step is attempted once.
type Service struct {
	ranker Ranker
	embed  Embedder
	tracer trace.Tracer
}

// New creates a search service.
func New(ranker Ranker, embed Embedder) *Service {
	return &Service{ranker: ranker, embed: embed, tracer: otel.Tracer(tracerName)}
}

// Search embeds the query and ranks the catalog with the request's mode.
// No connection is borrowed until the query vector exists.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	m := req.Mode()
	ctx, span := s.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("search.mode", m.Name()),
		attribute.Int("search.limit", req.Limit()),
		attribute.Int("search.query_length", len(req.Query())),
	))
	defer span.End()

	vec, err := s.embedQuery(ctx, req.Query())
	if err != nil {
		s.fail(span, m.Name(), "embedding_error", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.rank(ctx, vec, req)
	if err != nil {
		s.fail(span, m.Name(), outcome(err), err)
		return nil, fmt.Errorf("rank: %w", err)
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	metrics.SearchRequestsTotal.WithLabelValues(m.Name(), "ok").Inc()
	metrics.SearchResultsReturned.WithLabelValues(m.Name()).Observe(float64(len(results)))
	return results, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "search.Embed")
	defer span.End()

	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	span.SetAttributes(
		attribute.Int("embedding.dimensions", len(res.Embedding)),
		attribute.Int("embedding.tokens", res.Tokens),
	)
	return res.Embedding, nil
}

func (s *Service) rank(ctx context.Context, vec []float32, req *request.Request) ([]result.Result, error) {
	m := req.Mode()
	ctx, span := s.tracer.Start(ctx, "search.Rank", trace.WithAttributes(attribute.String("search.mode", m.Name())))
	defer span.End()

	start := time.Now()
	results, err := s.ranker.Rank(ctx, vec, req.Limit(), m)
	metrics.RankingQueryDuration.WithLabelValues(m.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return results, nil
}

func (s *Service) fail(span trace.Span, modeName, outcome string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	metrics.SearchRequestsTotal.WithLabelValues(modeName, outcome).Inc()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrPoolUnavailable):
		return "pool_unavailable"
	case errors.Is(err, domain.ErrDimensionMismatch):
		return "dimension_mismatch"
	default:
		return "query_error"
	}
}
