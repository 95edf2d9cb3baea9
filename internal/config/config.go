package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog drivers.
const (
	DriverMemory = "memory"
	DriverBleve  = "bleve"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Config holds the mediasearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Search    SearchConfig    `yaml:"search"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// APIKey binds a bearer token to a named principal and role.
type APIKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Role string `yaml:"role"` // viewer, editor (default: viewer)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []APIKey `yaml:"api_keys"`
}

// RateLimitConfig holds per-principal token bucket settings. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds catalog backend connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, bleve, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// UsesRedis reports whether the configured driver talks to a Redis-compatible server.
func (d DatabaseConfig) UsesRedis() bool {
	return d.Driver == DriverRedis || d.Driver == DriverValkey
}

// CatalogConfig describes where lesson documents come from.
type CatalogConfig struct {
	SeedFile      string `yaml:"seed_file"`
	IndexName     string `yaml:"index_name"`
	KeyPrefix     string `yaml:"key_prefix"`
	MaxCandidates int    `yaml:"max_candidates"`
}

// WeightsConfig holds per-field relevance weights.
type WeightsConfig struct {
	Title        float64 `yaml:"title"`
	Description  float64 `yaml:"description"`
	Tags         float64 `yaml:"tags"`
	MachineModel float64 `yaml:"machine_model"`
	ProcessType  float64 `yaml:"process_type"`
}

// SearchConfig holds query compilation, ranking and pagination settings.
type SearchConfig struct {
	MinQueryLength  int           `yaml:"min_query_length"`
	MaxQueryLength  int           `yaml:"max_query_length"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	FacetLimit      int           `yaml:"facet_limit"`
	RelevanceFloor  float64       `yaml:"relevance_floor"`
	Weights         WeightsConfig `yaml:"weights"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
}

// SuggestConfig holds autocomplete ranking settings.
type SuggestConfig struct {
	SimilarityWeight float64       `yaml:"similarity_weight"`
	UsageWeight      float64       `yaml:"usage_weight"`
	RecencyWeight    float64       `yaml:"recency_weight"`
	HalfLife         time.Duration `yaml:"half_life"`
	DefaultLimit     int           `yaml:"default_limit"`
	MaxLimit         int           `yaml:"max_limit"`
	InlineLimit      int           `yaml:"inline_limit"`     // suggestions attached to search responses
	RefreshSchedule  string        `yaml:"refresh_schedule"` // cron spec, empty disables
}

// AnalyticsConfig holds analytics recorder settings.
type AnalyticsConfig struct {
	Workers      int           `yaml:"workers"`
	EventLogPath string        `yaml:"event_log_path"` // empty keeps the log in memory
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SessionConfig holds live session settings.
type SessionConfig struct {
	Debounce time.Duration `yaml:"debounce"`
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

// Parse decodes YAML bytes into a validated Config.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
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
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Catalog.IndexName == "" {
		c.Catalog.IndexName = "mediasearch:lessons"
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = "mediasearch:"
	}
	if c.Catalog.MaxCandidates <= 0 {
		c.Catalog.MaxCandidates = 10000
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 256
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 10
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.FacetLimit <= 0 {
		c.Search.FacetLimit = 20
	}
	if c.Search.Weights == (WeightsConfig{}) {
		c.Search.Weights = WeightsConfig{Title: 10, Description: 5, Tags: 3, MachineModel: 2, ProcessType: 2}
	}
	if c.Search.StoreTimeout <= 0 {
		c.Search.StoreTimeout = 2 * time.Second
	}
	if c.Search.RetryBackoff <= 0 {
		c.Search.RetryBackoff = 100 * time.Millisecond
	}
	if c.Suggest.SimilarityWeight == 0 && c.Suggest.UsageWeight == 0 && c.Suggest.RecencyWeight == 0 {
		c.Suggest.SimilarityWeight, c.Suggest.UsageWeight, c.Suggest.RecencyWeight = 1, 1, 1
	}
	if c.Suggest.HalfLife <= 0 {
		c.Suggest.HalfLife = 7 * 24 * time.Hour
	}
	if c.Suggest.DefaultLimit <= 0 {
		c.Suggest.DefaultLimit = 10
	}
	if c.Suggest.MaxLimit <= 0 {
		c.Suggest.MaxLimit = 50
	}
	if c.Suggest.InlineLimit <= 0 {
		c.Suggest.InlineLimit = 5
	}
	if c.Analytics.Workers <= 0 {
		c.Analytics.Workers = 4
	}
	if c.Analytics.WriteTimeout <= 0 {
		c.Analytics.WriteTimeout = 2 * time.Second
	}
	if c.Session.Debounce <= 0 {
		c.Session.Debounce = 300 * time.Millisecond
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS) * 2
		if c.RateLimit.Burst < 1 {
			c.RateLimit.Burst = 1
		}
	}
	for i := range c.Auth.APIKeys {
		if c.Auth.APIKeys[i].Role == "" {
			c.Auth.APIKeys[i].Role = "viewer"
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverMemory, DriverBleve:
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
		if c.Database.DB < 0 {
			return fmt.Errorf("database.db must not be negative, got %d", c.Database.DB)
		}
	default:
		return fmt.Errorf("database.driver must be one of memory, bleve, redis, valkey, got %q", c.Database.Driver)
	}
	if c.Search.MinQueryLength < 0 || c.Search.MinQueryLength > c.Search.MaxQueryLength {
		return fmt.Errorf("search.min_query_length must be between 0 and %d, got %d",
			c.Search.MaxQueryLength, c.Search.MinQueryLength)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if c.Search.RelevanceFloor < 0 {
		return fmt.Errorf("search.relevance_floor must not be negative, got %g", c.Search.RelevanceFloor)
	}
	w := c.Search.Weights
	if w.Title < 0 || w.Description < 0 || w.Tags < 0 || w.MachineModel < 0 || w.ProcessType < 0 {
		return fmt.Errorf("search.weights must not be negative")
	}
	if c.Suggest.SimilarityWeight < 0 || c.Suggest.UsageWeight < 0 || c.Suggest.RecencyWeight < 0 {
		return fmt.Errorf("suggest weights must not be negative")
	}
	if c.Suggest.DefaultLimit > c.Suggest.MaxLimit {
		return fmt.Errorf("suggest.default_limit (%d) exceeds suggest.max_limit (%d)",
			c.Suggest.DefaultLimit, c.Suggest.MaxLimit)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %g", c.RateLimit.RPS)
	}
	seen := make(map[string]struct{}, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("auth.api_keys[%d].key is required", i)
		}
		if _, dup := seen[k.Key]; dup {
			return fmt.Errorf("auth.api_keys[%d] duplicates an earlier key", i)
		}
		seen[k.Key] = struct{}{}
		switch k.Role {
		case "viewer", "editor":
		default:
			return fmt.Errorf("auth.api_keys[%d].role must be \"viewer\" or \"editor\", got %q", i, k.Role)
		}
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
