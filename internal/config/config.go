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

// Config holds the permitsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	QueryLog  QueryLogConfig  `yaml:"query_log"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
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
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds record store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig holds query-time settings.
type SearchConfig struct {
	DefaultTopK     int `yaml:"default_top_k"`
	MaxTopK         int `yaml:"max_top_k"`
	IndexTimeoutSec int `yaml:"index_timeout_sec"`
}

// QueryLogConfig holds audit log settings.
type QueryLogConfig struct {
	BufferSize int `yaml:"buffer_size"`
	MaxRecent  int `yaml:"max_recent"`
	Retention  int `yaml:"retention"`
}

// IngestConfig holds dataset loader settings.
type IngestConfig struct {
	SourceURL  string  `yaml:"source_url"`
	PageSize   int     `yaml:"page_size"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Workers    int     `yaml:"workers"`
	BatchSize  int     `yaml:"batch_size"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	IndexName string `yaml:"index_name"`
	HNSWM     int    `yaml:"hnsw_m"`
	HNSWEF    int    `yaml:"hnsw_ef_construction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 50
	}
	if c.Search.IndexTimeoutSec <= 0 {
		c.Search.IndexTimeoutSec = 5
	}
	if c.QueryLog.BufferSize <= 0 {
		c.QueryLog.BufferSize = 256
	}
	if c.QueryLog.MaxRecent <= 0 {
		c.QueryLog.MaxRecent = 100
	}
	if c.QueryLog.Retention <= 0 {
		c.QueryLog.Retention = 10000
	}
	if c.Ingest.PageSize <= 0 {
		c.Ingest.PageSize = 1000
	}
	if c.Ingest.RatePerSec <= 0 {
		c.Ingest.RatePerSec = 2
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 64
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "permits:"
	}
	if c.Storage.IndexName == "" {
		c.Storage.IndexName = c.Storage.KeyPrefix + "idx"
	}
	if c.Storage.HNSWM <= 0 {
		c.Storage.HNSWM = 32
	}
	if c.Storage.HNSWEF <= 0 {
		c.Storage.HNSWEF = 400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) must not exceed search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
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
