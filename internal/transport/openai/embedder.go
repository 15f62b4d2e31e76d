// Package openai embeds query text through an OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/vector"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.SmallEmbedding3

// Config holds the embedding provider settings.
type Config struct {
	APIKey  string
	BaseURL string // empty keeps the client's default endpoint
	Model   string
	// Dimensions is both requested from the provider and enforced on the
	// response. Zero accepts whatever the model returns.
	Dimensions int
	User       string
	Logger     *zap.Logger
}

// Embedder is a remote embedding provider. The model must match the one that
// produced the catalog embeddings.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		logger:     logger,
	}
}

// Embed implements domain.Embedder. The returned vector is re-normalized
// because providers differ on whether theirs already are.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	resp, err := e.client.CreateEmbeddings(ctx, e.request(text))
	if err != nil {
		return domain.EmbeddingResult{}, providerFailure(err)
	}

	raw, err := e.firstVector(&resp)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	unit, err := vector.Normalize(raw)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("normalize %s embedding: %w", e.model, err)
	}

	e.logger.Debug("Provider embedding received",
		zap.String("model", string(e.model)),
		zap.Int("dimensions", len(unit)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
	)
	return domain.EmbeddingResult{Embedding: unit, Tokens: resp.Usage.PromptTokens}, nil
}

func (e *Embedder) request(text string) openai.EmbeddingRequest {
	return openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}
}

func (e *Embedder) firstVector(resp *openai.EmbeddingResponse) ([]float32, error) {
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s returned no embedding: %w", e.model, domain.ErrEmbeddingProviderError)
	}
	raw := resp.Data[0].Embedding
	if e.dimensions > 0 && len(raw) != e.dimensions {
		return nil, fmt.Errorf("%s returned %d dimensions, expected %d: %w",
			e.model, len(raw), e.dimensions, domain.ErrEmbeddingProviderError)
	}
	return raw, nil
}

// HealthCheck asks the provider for the configured model, which also catches
// a model name the endpoint does not serve.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.GetModel(ctx, string(e.model)); err != nil {
		return fmt.Errorf("get model %s: %w", e.model, providerFailure(err))
	}
	return nil
}

// providerFailure maps a client error onto domain.ErrEmbeddingProviderError,
// keeping the HTTP status and the provider's message when there is one.
// Context errors stay matchable so callers can tell a timeout from an outage.
func providerFailure(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProviderError)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, msg, domain.ErrEmbeddingProviderError)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("embedding request: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return fmt.Errorf("embedding request failed: %w", domain.ErrEmbeddingProviderError)
}

// extractDetail reads the message from a non-OpenAI error body. Some
// compatible servers answer {"detail": "..."}, others {"message": "..."}.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Message
}
