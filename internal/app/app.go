// Package app assembles the search pipeline from configuration. It is the
// composition root shared by the API server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/config"
	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/servicesearch/internal/db/redis"
	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/metrics"
	"github.com/kailas-cloud/servicesearch/internal/repository/embcache"
	"github.com/kailas-cloud/servicesearch/internal/repository/ranking"
	"github.com/kailas-cloud/servicesearch/internal/transport/onnx"
	openaiEmb "github.com/kailas-cloud/servicesearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/servicesearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/servicesearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/servicesearch/internal/usecase/search"
)

// App holds the long-lived, shared handles of a running process.
type App struct {
	Pool      *postgres.Pool
	Embedder  domain.Embedder
	Generator *embeddinguc.Generator // nil for remote providers
	Search    *searchuc.Service
	Health    *healthuc.Service
	Policy    request.Policy

	closers []func()
	logger  *zap.Logger
}

// New connects to the database, loads the embedding backend and wires the use cases.
// Any failure here is a startup failure.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{
		Policy: request.Policy{DefaultLimit: cfg.Search.DefaultLimit, MaxLimit: cfg.Search.MaxLimit},
		logger: log,
	}

	pool, err := postgres.Connect(ctx, PostgresConfig(cfg.Database), log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)

	base, err := a.baseEmbedder(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	var cacheStore *dbRedis.Store
	embedder := base
	switch cfg.Cache.Driver {
	case config.CacheMemory:
		mem := embcache.NewMemoryStore(cfg.Cache.MemorySize, cfg.Cache.TTL())
		embedder = embcache.New(base, mem, cfg.Embedding.Model, cfg.Cache.TTL(), metrics.EmbeddingCacheTotal, log)
	case config.CacheRedis:
		cacheStore, err = connectRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, cacheStore.Close)
		embedder = embcache.New(base, cacheStore, cfg.Embedding.Model, cfg.Cache.TTL(), metrics.EmbeddingCacheTotal, log)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model, log)

	// Instruction prefix is outermost so the cache key includes it.
	embedder = domain.WithInstruction(embedder, cfg.Embedding.QueryInstruction)
	a.Embedder = embedder

	repo := ranking.New(pool, cfg.Search.RadiusMeters)
	a.Search = searchuc.New(repo, embedder)

	var embChecker healthuc.EmbeddingChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embChecker = hc
	}
	var cacheChecker healthuc.DBPinger
	if cacheStore != nil {
		cacheChecker = cacheStore
	}
	a.Health = healthuc.New(pool, embChecker, cacheChecker, healthuc.DefaultTimeout)

	log.Info("Search pipeline ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.String("cache", cfg.Cache.Driver),
		zap.Float64("radius_meters", repo.RadiusMeters()),
	)
	return a, nil
}

func (a *App) baseEmbedder(cfg *config.Config, log *zap.Logger) (domain.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			User:       cfg.Embedding.OpenAI.User,
			Logger:     log,
		}), nil
	default:
		enc, err := onnx.NewEncoder(onnx.Config{
			ModelDir:          cfg.Embedding.ONNX.ModelDir,
			SharedLibraryPath: cfg.Embedding.ONNX.SharedLibraryPath,
			MaxLength:         cfg.Embedding.ONNX.MaxLength,
			Logger:            log,
		})
		if err != nil {
			return nil, fmt.Errorf("load encoder: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := enc.Close(); err != nil {
				log.Warn("Failed to close encoder", zap.Error(err))
			}
		})
		if d := cfg.Embedding.Dimensions; d > 0 && d != enc.Dimensions() {
			return nil, fmt.Errorf("load encoder: model hidden size %d does not match embedding.dimensions %d",
				enc.Dimensions(), d)
		}

		gen, err := embeddinguc.NewGenerator(enc, cfg.Embedding.Workers)
		if err != nil {
			return nil, fmt.Errorf("create generator: %w", err)
		}
		a.Generator = gen
		a.closers = append(a.closers, gen.Close)
		return gen, nil
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	return store, nil
}

// Close releases every handle in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// PostgresConfig maps the database section onto pool settings.
func PostgresConfig(db config.DatabaseConfig) postgres.Config {
	return postgres.Config{
		Host:            db.Host,
		Port:            db.PortNumber(),
		Database:        db.Name,
		User:            db.User,
		Password:        db.Password,
		ApplicationName: db.ApplicationName,
		ConnectTimeout:  db.ConnectTimeout(),
		AcquireTimeout:  db.AcquireTimeout(),
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnIdleTime: db.MaxConnIdleTime(),
		RequirePostGIS:  db.PostGISRequired(),
	}
}
