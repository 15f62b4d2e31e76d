package servicesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
	"github.com/kailas-cloud/servicesearch/internal/domain/vector"
	"github.com/kailas-cloud/servicesearch/internal/repository/ranking"
	"github.com/kailas-cloud/servicesearch/internal/transport/onnx"
	openaiEmb "github.com/kailas-cloud/servicesearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/servicesearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/servicesearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/servicesearch/internal/usecase/search"
)

const defaultWorkers = 4

// searchUseCase is swapped for a mock in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// Client is the servicesearch SDK entry point. It is safe for concurrent use.
type Client struct {
	pool      *postgres.Pool
	searchSvc searchUseCase
	healthSvc healthUseCase
	policy    request.Policy
	closers   []func()
	obs       *observer
}

// New creates a Client, connects to the catalog database and loads the embedding backend.
// The provided context bounds the startup probes.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs, policy: policyFrom(cfg)}

	emb, err := c.createEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.Connect(ctx, poolConfig(cfg), zap.NewNop())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("servicesearch: connect database: %w", err)
	}
	c.pool = pool
	c.closers = append(c.closers, pool.Close)

	c.wire(pool, emb, cfg.radiusMeters)
	return c, nil
}

func (c *Client) createEmbedder(cfg *clientConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch {
	case cfg.embedder != nil:
		emb = &embedderAdapter{inner: cfg.embedder, dims: cfg.dimensions}
	case cfg.openaiKey != "":
		emb = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.openaiKey,
			BaseURL:    cfg.openaiURL,
			Model:      cfg.openaiModel,
			Dimensions: cfg.dimensions,
			Logger:     zap.NewNop(),
		})
	case cfg.modelDir != "":
		enc, err := onnx.NewEncoder(onnx.Config{
			ModelDir:          cfg.modelDir,
			SharedLibraryPath: cfg.onnxLibPath,
			Logger:            zap.NewNop(),
		})
		if err != nil {
			return nil, fmt.Errorf("servicesearch: load encoder: %w", err)
		}
		c.closers = append(c.closers, func() { _ = enc.Close() })
		if d := cfg.dimensions; d > 0 && d != enc.Dimensions() {
			c.Close()
			return nil, fmt.Errorf("servicesearch: encoder hidden size %d, expected %d", enc.Dimensions(), d)
		}
		workers := cfg.workers
		if workers <= 0 {
			workers = defaultWorkers
		}
		gen, err := embeddinguc.NewGenerator(enc, workers)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("servicesearch: %w", err)
		}
		c.closers = append(c.closers, gen.Close)
		emb = gen
	default:
		return nil, errors.New("servicesearch: embedder required (use WithEmbedder, WithONNX or WithOpenAI)")
	}

	return domain.WithInstruction(emb, cfg.instruction), nil
}

func (c *Client) wire(pool *postgres.Pool, emb domain.Embedder, radius float64) {
	repo := ranking.New(pool, radius)
	c.searchSvc = searchuc.New(repo, emb)

	var embChecker healthuc.EmbeddingChecker
	if hc, ok := emb.(domain.HealthChecker); ok {
		embChecker = hc
	}
	c.healthSvc = healthuc.New(pool, embChecker, nil, healthuc.DefaultTimeout)
}

func policyFrom(cfg *clientConfig) request.Policy {
	p := request.DefaultPolicy()
	if cfg.defaultLimit > 0 {
		p.DefaultLimit = cfg.defaultLimit
	}
	if cfg.maxLimit > 0 {
		p.MaxLimit = cfg.maxLimit
	}
	if p.DefaultLimit > p.MaxLimit {
		p.DefaultLimit = p.MaxLimit
	}
	return p
}

func poolConfig(cfg *clientConfig) postgres.Config {
	return postgres.Config{
		Host:            cfg.host,
		Port:            cfg.port,
		Database:        cfg.database,
		User:            cfg.user,
		Password:        cfg.password,
		ApplicationName: "servicesearch-sdk",
		MaxConns:        cfg.maxConns,
		MinConns:        cfg.minConns,
		RequirePostGIS:  cfg.requireGeo,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search ranks catalog services by similarity to query.
// With Near, only services within the configured radius of the point are returned.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (_ []Result, err error) {
	start := time.Now()
	var p searchParams
	for _, o := range opts {
		o(&p)
	}
	op := "search"
	if p.lat != nil {
		op = "search_geo"
	}
	defer func() { c.obs.observe(op, start, err) }()

	req, err := request.New(query, p.limit, p.lat, p.lng, c.policy)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	rs, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toResults(rs), nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
	dims  int
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if a.dims > 0 && len(r.Embedding) != a.dims {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: got %d dimensions, expected %d",
			domain.ErrEmbeddingProviderError, len(r.Embedding), a.dims)
	}
	vec, err := vector.Normalize(r.Embedding)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec, Tokens: r.Tokens}, nil
}
