// Package config loads service settings from config/<env>.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/thepool/internal/db"
)

// Config holds the pool service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Layout    LayoutConfig    `yaml:"layout"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// DatabaseConfig selects and configures profile storage.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey (default), redis, sqlite
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	SQLitePath       string   `yaml:"sqlite_path"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig configures the embedding provider and its decorators.
type EmbeddingConfig struct {
	Provider          string       `yaml:"provider"`
	APIKey            string       `yaml:"api_key"`
	BaseURL           string       `yaml:"base_url"`
	Model             string       `yaml:"model"`
	Dimensions        int          `yaml:"dimensions"`
	RequestsPerSecond float64      `yaml:"requests_per_second"` // 0 = no client-side limit
	Burst             int          `yaml:"burst"`
	CacheTTLHours     int          `yaml:"cache_ttl_hours"`
	Budget            BudgetConfig `yaml:"budget"`
}

// CacheTTL returns the query embedding cache lifetime.
func (c EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	SemanticTopK       int   `yaml:"semantic_top_k"`
	EmbeddingTimeoutMs int   `yaml:"embedding_timeout_ms"`
	DiscoveryFallback  *bool `yaml:"discovery_fallback"`
	FallbackSampleSize int   `yaml:"fallback_sample_size"`
}

// EmbeddingTimeout returns the per-query embedding deadline.
func (s SearchConfig) EmbeddingTimeout() time.Duration {
	return time.Duration(s.EmbeddingTimeoutMs) * time.Millisecond
}

// Fallback reports whether zero-signal searches return a discovery sample. Unset means yes.
func (s SearchConfig) Fallback() bool {
	return s.DiscoveryFallback == nil || *s.DiscoveryFallback
}

// LayoutConfig is the default result canvas.
type LayoutConfig struct {
	CenterX    float64 `yaml:"center_x"`
	CenterY    float64 `yaml:"center_y"`
	Radius     float64 `yaml:"radius"`
	GroupCount int     `yaml:"group_count"`
}

// AuthConfig holds service-to-service API keys. Empty disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// IndexConfig holds vector index and reindex settings.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"` // hnsw (default) or flat
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	MinTextLength   int    `yaml:"min_text_length"`
	ReindexWorkers  int    `yaml:"reindex_workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: per env)
}

// Load reads .env (when present) and then config/<env>.yaml.
func Load(env string) (Config, error) {
	_ = godotenv.Load()
	return LoadFile(findConfigPath(env))
}

// LoadFile parses one YAML file, expanding ${VAR} and ${VAR:-default}.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	setDefault(&c.HTTP.Port, 8080)
	setDefault(&c.HTTP.ReadTimeoutSec, 10)
	setDefault(&c.HTTP.WriteTimeoutSec, 10)
	setDefault(&c.HTTP.ShutdownSec, 10)

	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	setDefault(&c.Database.ReadinessTimeout, 10)

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	setDefault(&c.Embedding.Dimensions, 1536)
	setDefault(&c.Embedding.Burst, 5)
	setDefault(&c.Embedding.CacheTTLHours, 24*7)

	setDefault(&c.Search.SemanticTopK, 100)
	setDefault(&c.Search.EmbeddingTimeoutMs, 3000)
	setDefault(&c.Search.FallbackSampleSize, 20)

	if c.Layout.Radius <= 0 {
		c.Layout.Radius = 100
	}
	if c.Layout.CenterX == 0 && c.Layout.CenterY == 0 {
		c.Layout.CenterX, c.Layout.CenterY = 140, 140
	}
	setDefault(&c.Layout.GroupCount, 4)

	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "hnsw"
	}
	setDefault(&c.Index.HNSWM, 16)
	setDefault(&c.Index.HNSWEFConstruct, 200)
	setDefault(&c.Index.MinTextLength, 10)
	setDefault(&c.Index.ReindexWorkers, 4)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for driver %q", DriverSQLite)
		}
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, sqlite, got %q", c.Database.Driver)
	}

	if !slices.Contains([]string{"", "warn", "reject"}, c.Embedding.Budget.Action) {
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	if _, err := db.ParseVectorAlgorithm(c.Index.Algorithm); err != nil {
		return fmt.Errorf("index.algorithm: %w", err)
	}
	if c.Search.SemanticTopK > 1000 {
		return fmt.Errorf("search.semantic_top_k must be at most 1000, got %d", c.Search.SemanticTopK)
	}
	return nil
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// findConfigPath looks in ./config first, then next to the module root.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	root := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(root, "config", filename); fileExists(path) {
		return path
	}
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default}.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}
