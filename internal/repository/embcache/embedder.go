// Package embcache caches query vectors. Embeddings are deterministic for a
// given model and text, so a hit is exact.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/servicesearch/internal/db"
	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/vector"
)

const keyPrefix = "servicesearch:qvec:"

// Cache results recorded on the result label.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultShared = "shared"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves query vectors from a store and embeds only on a miss.
// Concurrent misses for the same text share one inner call.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	model   string
	ttl     time.Duration
	flight  singleflight.Group
	results *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner with a cache. model is part of every key, so switching models
// never serves vectors from the previous one. results may be nil.
func New(
	inner domain.Embedder,
	s store,
	model string,
	ttl time.Duration,
	results *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		model:   model,
		ttl:     ttl,
		results: results,
		logger:  logger,
	}
}

// Embed returns the cached vector for text, or embeds and stores it.
// Hits report zero tokens because the encoder did not run.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count(resultHit)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	// Only the caller whose closure runs sets ran; the channel receive orders
	// the write before the read.
	var ran bool
	ch := c.flight.DoChan(key, func() (any, error) {
		ran = true
		c.count(resultMiss)
		fctx, cancel := flightContext(ctx)
		defer cancel()
		return c.embedAndStore(fctx, key, text)
	})

	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", ctx.Err())
	case r := <-ch:
		if !ran {
			c.count(resultShared)
		}
		if r.Err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", r.Err)
		}
		return r.Val.(domain.EmbeddingResult), nil
	}
}

func (c *CachedEmbedder) embedAndStore(ctx context.Context, key, text string) (domain.EmbeddingResult, error) {
	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // wrapped by Embed
	}
	if err := c.store.SetWithTTL(ctx, key, encodeEntry(res.Embedding), c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}

// flightContext detaches the shared call from the starting caller's
// cancellation, so callers that joined it are not failed by a request that
// went away. The starting caller's deadline still bounds it.
func flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, dl)
	}
	return detached, func() {}
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// lookup treats every store or decoding failure as a miss.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !vector.IsUnit(vec) {
		c.logger.Warn("Discarding cache entry that is not unit length", zap.String("key", key))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) count(result string) {
	if c.results != nil {
		c.results.WithLabelValues(result).Inc()
	}
}
