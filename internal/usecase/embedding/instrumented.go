package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/metrics"
)

// Request outcomes on the status label.
const (
	statusOK       = "ok"
	statusError    = "error"
	statusCanceled = "canceled"
)

// errorKinds maps sentinels to the error_type label, first match wins.
// Cancellation is checked before encoder failures because a canceled
// forward pass is reported as both.
var errorKinds = []struct {
	target error
	kind   string
}{
	{domain.ErrTokenization, "tokenization"},
	{domain.ErrEmptyInput, "empty_input"},
	{domain.ErrDegenerateEmbedding, "degenerate"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "canceled"},
	{domain.ErrEncoderFailed, "encoder"},
	{domain.ErrEmbeddingProviderError, "provider"},
}

// InstrumentedEmbedder records latency, token counts and failures of the
// embedder it wraps.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. provider and model become metric labels.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the inner embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	metrics.EmbeddingRequestDuration.WithLabelValues(p.provider, p.model).Observe(elapsed.Seconds())

	if err != nil {
		kind := errorType(err)
		status := statusError
		if kind == "canceled" {
			status = statusCanceled
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.provider, p.model, status).Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, kind).Inc()

		p.logger.Log(failureLevel(kind), "Embedding request failed",
			zap.String("error_type", kind),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(p.provider, p.model, statusOK).Inc()
	if result.Tokens > 0 {
		metrics.EmbeddingTokens.WithLabelValues(p.provider, p.model).Observe(float64(result.Tokens))
	}

	if ce := p.logger.Check(zapcore.DebugLevel, "Embedding request completed"); ce != nil {
		ce.Write(
			zap.Duration("duration", elapsed),
			zap.Int("dimensions", len(result.Embedding)),
			zap.Int("tokens", result.Tokens),
		)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func errorType(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return "other"
}

// failureLevel keeps caller-caused failures out of error-level logs.
func failureLevel(kind string) zapcore.Level {
	switch kind {
	case "empty_input", "tokenization", "canceled":
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
