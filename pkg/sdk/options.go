package servicesearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	host     string
	port     uint16
	database string
	user     string
	password string

	maxConns int32
	minConns int32

	embedder     Embedder
	modelDir     string
	onnxLibPath  string
	workers      int
	openaiKey    string
	openaiModel  string
	openaiURL    string
	dimensions   int
	instruction  string
	requireGeo   bool
	radiusMeters float64
	defaultLimit int
	maxLimit     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDatabase sets the catalog database connection parameters.
// Empty values fall back to localhost:5432/dataplatform as postgres.
func WithDatabase(host string, port uint16, database, user, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.host = host
		c.port = port
		c.database = database
		c.user = user
		c.password = password
	})
}

// WithPoolSize bounds the connection pool. Defaults: max 30, min 2.
func WithPoolSize(maxConns, minConns int32) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConns = maxConns
		c.minConns = minConns
	})
}

// WithEmbedder sets a custom query embedding provider.
// Takes precedence over WithONNX and WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithONNX loads a local encoder from modelDir (model.onnx, tokenizer.json, config.json).
// libPath points at the onnxruntime shared library; empty uses the system default.
func WithONNX(modelDir, libPath string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelDir = modelDir
		c.onnxLibPath = libPath
	})
}

// WithWorkers bounds concurrent local encoder forward passes. Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithOpenAI uses an OpenAI-compatible embeddings API.
// baseURL may be empty for the public endpoint.
func WithOpenAI(apiKey, model, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiKey = apiKey
		c.openaiModel = model
		c.openaiURL = baseURL
	})
}

// WithDimensions sets the expected embedding dimension.
// Must match the catalog vectors; zero accepts whatever the backend returns.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithQueryInstruction prepends instruction text to every query before embedding.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instruction = instruction
	})
}

// WithRequirePostGIS makes New fail when the geography type is unavailable.
func WithRequirePostGIS() Option {
	return optionFunc(func(c *clientConfig) {
		c.requireGeo = true
	})
}

// WithRadius sets the geo-filter radius in meters. Default: 10 miles.
func WithRadius(meters float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.radiusMeters = meters
	})
}

// WithLimits sets the default and maximum result counts. Defaults: 10 and 50.
func WithLimits(defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
