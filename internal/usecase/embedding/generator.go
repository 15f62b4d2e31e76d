// Package embedding turns query text into a unit-length query vector.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/vector"
)

// Generator runs tokenize, forward, masked mean pooling and L2 normalization.
// Forward passes run on a bounded worker pool shared by all requests.
type Generator struct {
	encoder Encoder
	workers *ants.Pool
}

// NewGenerator creates a generator with at most workers concurrent forward passes.
// workers <= 0 uses runtime.NumCPU().
func NewGenerator(enc Encoder, workers int) (*Generator, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create encoder pool: %w", err)
	}
	return &Generator{encoder: enc, workers: pool}, nil
}

// Embed returns the normalized mean-pooled embedding of text and the number of attended tokens.
func (g *Generator) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	enc, err := g.encoder.Tokenize(text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrTokenization, err)
	}
	if len(enc.IDs) != len(enc.AttentionMask) {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %d ids for %d mask entries",
			domain.ErrEncoderFailed, len(enc.IDs), len(enc.AttentionMask))
	}
	attended := enc.Attended()
	if attended == 0 {
		return domain.EmbeddingResult{}, domain.ErrEmptyInput
	}

	hidden, err := g.forward(ctx, enc)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	pooled, err := vector.MeanPool(hidden, enc.AttentionMask)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("pool: %w", err)
	}
	normalized, err := vector.Normalize(pooled)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("normalize: %w", err)
	}

	return domain.EmbeddingResult{Embedding: normalized, Tokens: attended}, nil
}

type forwardResult struct {
	hidden [][]float32
	err    error
}

// forward runs the encoder on the worker pool. A canceled ctx stops the wait,
// not the pass already in progress.
func (g *Generator) forward(ctx context.Context, enc domain.Encoding) ([][]float32, error) {
	done := make(chan forwardResult, 1)
	err := g.workers.Submit(func() {
		hidden, err := g.encoder.Forward(enc)
		done <- forwardResult{hidden: hidden, err: err}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: submit: %w", domain.ErrEncoderFailed, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrEncoderFailed, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEncoderFailed, res.err)
		}
		return res.hidden, nil
	}
}

// Running returns the number of forward passes in progress.
func (g *Generator) Running() int { return g.workers.Running() }

// HealthCheck reports whether the worker pool accepts work and the encoder is healthy.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if g.workers.IsClosed() {
		return errors.New("encoder pool is closed")
	}
	if hc, ok := g.encoder.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent
	}
	return nil
}

// Close stops accepting forward passes.
func (g *Generator) Close() {
	g.workers.Release()
}
