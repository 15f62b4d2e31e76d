package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/geo"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Embedding providers.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds the servicesearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds PostgreSQL connection and pool settings.
type DatabaseConfig struct {
	Host              string `yaml:"host"`
	Port              string `yaml:"port"`
	Name              string `yaml:"name"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	ApplicationName   string `yaml:"application_name"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
	AcquireTimeoutSec int    `yaml:"acquire_timeout_sec"`
	MaxConns          int32  `yaml:"max_conns"`
	MinConns          int32  `yaml:"min_conns"`
	MaxConnIdleSec    int    `yaml:"max_conn_idle_sec"`
	RequirePostGIS    *bool  `yaml:"require_postgis"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"` // onnx, openai
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	Workers          int          `yaml:"workers"` // concurrent forward passes (default: NumCPU)
	ONNX             ONNXConfig   `yaml:"onnx"`
	OpenAI           OpenAIConfig `yaml:"openai"`
}

// ONNXConfig holds local encoder settings.
type ONNXConfig struct {
	ModelDir          string `yaml:"model_dir"`
	SharedLibraryPath string `yaml:"shared_library_path"`
	MaxLength         int    `yaml:"max_length"`
}

// OpenAIConfig holds remote embedding provider settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	User    string `yaml:"user"`
}

// CacheConfig holds query embedding cache settings.
type CacheConfig struct {
	Driver     string      `yaml:"driver"` // none, memory, redis
	TTLSec     int         `yaml:"ttl_sec"`
	MemorySize int         `yaml:"memory_size"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds the shared cache connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds request limits and the geo radius.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit"`
	MaxLimit     int     `yaml:"max_limit"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads configuration by environment name (local, dev, prod).
// When config/<env>.yaml does not exist the embedded defaults are used.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)
	if !fileExists(configPath) {
		return Parse(defaultsYAML)
	}
	return LoadFile(configPath)
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data, expands environment references inside scalar values,
// then applies defaults and validates. Expansion runs on the parsed tree, so
// substituted values are never interpreted as YAML syntax.
func Parse(data []byte) (Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	expandNode(&root)

	var cfg Config
	if root.Kind != 0 {
		if err := root.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Host == "" {
		c.HTTP.Host = "127.0.0.1"
	}
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	c.Database.applyDefaults()

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderONNX
	}
	if c.Embedding.Provider == ProviderONNX {
		vc := domain.DefaultVectorConfig()
		if c.Embedding.Model == "" {
			c.Embedding.Model = vc.Model
		}
		if c.Embedding.ONNX.MaxLength <= 0 {
			c.Embedding.ONNX.MaxLength = vc.MaxSequenceLen
		}
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.MemorySize <= 0 {
		c.Cache.MemorySize = 10000
	}
	if c.Cache.Redis.ReadinessTimeout <= 0 {
		c.Cache.Redis.ReadinessTimeout = 10
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 50
	}
	if c.Search.RadiusMeters <= 0 {
		c.Search.RadiusMeters = geo.DefaultRadiusMeters
	}
}

func (d *DatabaseConfig) applyDefaults() {
	if d.Host == "" {
		d.Host = "localhost"
	}
	if d.Port == "" {
		d.Port = "5432"
	}
	if d.Name == "" {
		d.Name = "dataplatform"
	}
	if d.User == "" {
		d.User = "postgres"
	}
	if d.ApplicationName == "" {
		d.ApplicationName = "servicesearch"
	}
	if d.ConnectTimeoutSec <= 0 {
		d.ConnectTimeoutSec = 10
	}
	if d.AcquireTimeoutSec <= 0 {
		d.AcquireTimeoutSec = 15
	}
	if d.MaxConns <= 0 {
		d.MaxConns = 30
	}
	if d.MinConns <= 0 {
		d.MinConns = 2
	}
	if d.MaxConnIdleSec <= 0 {
		d.MaxConnIdleSec = 60
	}
	if d.RequirePostGIS == nil {
		t := true
		d.RequirePostGIS = &t
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if _, err := parsePort(c.HTTP.Port); err != nil {
		return fmt.Errorf("http.port: %w", err)
	}
	if _, err := parsePort(c.Database.Port); err != nil {
		return fmt.Errorf("database.port: %w", err)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	switch c.Embedding.Provider {
	case ProviderONNX:
		if c.Embedding.ONNX.ModelDir == "" {
			return errors.New("embedding.onnx.model_dir is required for the onnx provider")
		}
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return errors.New("embedding.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderONNX, ProviderOpenAI, c.Embedding.Provider)
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if len(c.Cache.Redis.Addrs) == 0 {
			return errors.New("cache.redis.addrs is required for the redis cache driver")
		}
	default:
		return fmt.Errorf("cache.driver must be %q, %q or %q, got %q",
			CacheNone, CacheMemory, CacheRedis, c.Cache.Driver)
	}

	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (h HTTPConfig) Addr() string {
	return h.Host + ":" + h.Port
}

// PortNumber returns the validated database port.
func (d DatabaseConfig) PortNumber() uint16 {
	p, _ := parsePort(d.Port)
	return p
}

// ConnectTimeout returns the connect timeout as a duration.
func (d DatabaseConfig) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSec) * time.Second
}

// AcquireTimeout returns the pool acquire timeout as a duration.
func (d DatabaseConfig) AcquireTimeout() time.Duration {
	return time.Duration(d.AcquireTimeoutSec) * time.Second
}

// MaxConnIdleTime returns the idle connection lifetime as a duration.
func (d DatabaseConfig) MaxConnIdleTime() time.Duration {
	return time.Duration(d.MaxConnIdleSec) * time.Second
}

// PostGISRequired reports whether the geography capability probe runs at startup.
func (d DatabaseConfig) PostGISRequired() bool {
	return d.RequirePostGIS == nil || *d.RequirePostGIS
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if p == 0 {
		return 0, errors.New("port must be between 1 and 65535")
	}
	return uint16(p), nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnv(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		expr := match[2 : len(match)-1] // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return val
	})
}

// expandNode expands every scalar below n. A plain scalar whose value changed
// loses its resolved tag so the decoder types the substituted text afresh;
// quoted scalars stay strings.
func expandNode(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		expanded := expandEnv(n.Value)
		if expanded == n.Value {
			return
		}
		n.Value = expanded
		if n.Style == 0 {
			n.Tag = ""
		}
		return
	}
	for _, c := range n.Content {
		expandNode(c)
	}
}
