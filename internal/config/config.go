package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the playsearch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Auth        AuthConfig        `yaml:"auth"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // 0 keeps streams open; applies to JSON routes only
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds key-value store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Standalone       bool     `yaml:"standalone"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// VectorIndexConfig selects and tunes the chunk index.
type VectorIndexConfig struct {
	Backend             string         `yaml:"backend"` // redis (default), weaviate
	Name                string         `yaml:"name"`
	Prefix              string         `yaml:"prefix"`
	Class               string         `yaml:"class"` // weaviate class name
	Weaviate            WeaviateConfig `yaml:"weaviate"`
	TopK                int            `yaml:"top_k"`
	SimilarityThreshold *float64       `yaml:"similarity_threshold"` // nil takes 0.35, 0 keeps every hit
	HNSWM               int            `yaml:"hnsw_m"`
	HNSWEFConstruct     int            `yaml:"hnsw_ef_construction"`
	Distance            string         `yaml:"distance"`
}

// WeaviateConfig holds Weaviate connection settings.
type WeaviateConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider    string       `yaml:"provider"` // name used in metrics and budget keys
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Model       string       `yaml:"model"`
	Dimensions  int          `yaml:"dimensions"`
	CacheTTLSec int          `yaml:"cache_ttl_sec"` // 0 = no expiry
	Budget      BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// LLMConfig selects the text generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai (default), anthropic, ollama
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// AuthConfig holds token issuing settings.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLMin   int    `yaml:"token_ttl_min"`
	LoginPassword string `yaml:"login_password"` // shared demo password; empty disables /auth/token
}

// CatalogConfig locates the SQLite catalog.
type CatalogConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// RateLimitConfig holds per-minute request limits. A negative value disables a limit.
type RateLimitConfig struct {
	SearchPerMinute int `yaml:"search_per_minute"`
	LoginPerMinute  int `yaml:"login_per_minute"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec < 0 {
		c.HTTP.WriteTimeoutSec = 0
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	vi := &c.VectorIndex
	if vi.Backend == "" {
		vi.Backend = "redis"
	}
	if vi.Name == "" {
		vi.Name = "playsearch:chunks"
	}
	if vi.Prefix == "" {
		vi.Prefix = "playsearch:chunk:"
	}
	if vi.Class == "" {
		vi.Class = "Chunk"
	}
	if vi.TopK <= 0 {
		vi.TopK = 6
	}
	if vi.SimilarityThreshold == nil {
		t := 0.35
		vi.SimilarityThreshold = &t
	}
	if vi.HNSWM <= 0 {
		vi.HNSWM = 16
	}
	if vi.HNSWEFConstruct <= 0 {
		vi.HNSWEFConstruct = 200
	}
	if vi.Distance == "" {
		vi.Distance = "cosine"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-large"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 3072
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = "warn"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.Model = "claude-sonnet-4-5"
		case "ollama":
			c.LLM.Model = "llama3.1"
		default:
			c.LLM.Model = "gpt-4o"
		}
	}

	if c.Auth.TokenTTLMin <= 0 {
		c.Auth.TokenTTLMin = 480
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "data/catalog.db"
	}
	if c.RateLimit.SearchPerMinute == 0 {
		c.RateLimit.SearchPerMinute = 60
	}
	if c.RateLimit.LoginPerMinute == 0 {
		c.RateLimit.LoginPerMinute = 30
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.VectorIndex.Backend {
	case "redis":
	case "weaviate":
		if c.VectorIndex.Weaviate.URL == "" {
			return fmt.Errorf("vector_index.weaviate.url is required for the weaviate backend")
		}
	default:
		return fmt.Errorf("vector_index.backend must be \"redis\" or \"weaviate\", got %q", c.VectorIndex.Backend)
	}
	if t := c.VectorIndex.SimilarityThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("vector_index.similarity_threshold must be between 0 and 1, got %g", *t)
	}
	switch c.Embedding.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("llm.provider must be one of openai, anthropic, ollama, got %q", c.LLM.Provider)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Tracing.Enabled && c.Tracing.Exporter != "stdout" {
		return fmt.Errorf("tracing.exporter must be \"stdout\", got %q", c.Tracing.Exporter)
	}
	return nil
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

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
