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

// Store and queue drivers.
const (
	DriverBleve         = "bleve"
	DriverElasticsearch = "elasticsearch"
	DriverMemory        = "memory"
	DriverRedis         = "redis"
)

// Config holds the devindex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Queue     QueueConfig     `yaml:"queue"`
	Reindex   ReindexConfig   `yaml:"reindex"`
	Inventory InventoryConfig `yaml:"inventory"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds management API token verification keys.
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	JWTPublicKeyPath string `yaml:"jwt_public_key_path"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	Driver           string              `yaml:"driver"` // bleve, elasticsearch (default: bleve)
	TimeoutMs        int                 `yaml:"timeout_ms"`
	ReadinessTimeout int                 `yaml:"readiness_timeout_sec"`
	Index            string              `yaml:"index"`
	Shards           int                 `yaml:"shards"`
	Replicas         int                 `yaml:"replicas"`
	Bleve            BleveConfig         `yaml:"bleve"`
	Elasticsearch    ElasticsearchConfig `yaml:"elasticsearch"`
}

// BleveConfig holds embedded store settings. An empty DataDir keeps indexes in memory.
type BleveConfig struct {
	DataDir        string `yaml:"data_dir"`
	MaxOpenIndexes int    `yaml:"max_open_indexes"`
}

// ElasticsearchConfig holds cluster connection settings.
type ElasticsearchConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// QueueConfig holds reindex job queue settings.
type QueueConfig struct {
	Driver         string      `yaml:"driver"` // memory, redis (default: memory)
	Capacity       int         `yaml:"capacity"`
	PendingTTLSec  int         `yaml:"pending_ttl_sec"`
	PollTimeoutSec int         `yaml:"poll_timeout_sec"`
	Redis          RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// ReindexConfig holds worker pool and retry settings.
type ReindexConfig struct {
	Workers          int      `yaml:"workers"`
	MaxAttempts      int      `yaml:"max_attempts"`
	InitialBackoffMs int      `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int      `yaml:"max_backoff_ms"`
	AttemptTimeoutMs int      `yaml:"attempt_timeout_ms"`
	Services         []string `yaml:"services"`
}

// InventoryConfig holds the inventory service client settings.
type InventoryConfig struct {
	Addr      string `yaml:"addr"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// SearchConfig holds pagination settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
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

// Parse decodes YAML configuration, expanding ${VAR} references, then applies
// defaults and validates the result.
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverBleve
	}
	if c.Store.TimeoutMs <= 0 {
		c.Store.TimeoutMs = 5000
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Store.Index == "" {
		c.Store.Index = "devices"
	}
	if c.Store.Shards <= 0 {
		c.Store.Shards = 1
	}
	if c.Store.Bleve.MaxOpenIndexes <= 0 {
		c.Store.Bleve.MaxOpenIndexes = 128
	}
	if c.Queue.Driver == "" {
		c.Queue.Driver = DriverMemory
	}
	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 1024
	}
	if c.Queue.PendingTTLSec <= 0 {
		c.Queue.PendingTTLSec = 300
	}
	if c.Queue.PollTimeoutSec <= 0 {
		c.Queue.PollTimeoutSec = 5
	}
	if c.Queue.Redis.KeyPrefix == "" {
		c.Queue.Redis.KeyPrefix = "devindex"
	}
	if c.Reindex.Workers <= 0 {
		c.Reindex.Workers = 4
	}
	if c.Reindex.MaxAttempts <= 0 {
		c.Reindex.MaxAttempts = 5
	}
	if c.Reindex.InitialBackoffMs <= 0 {
		c.Reindex.InitialBackoffMs = 200
	}
	if c.Reindex.MaxBackoffMs <= 0 {
		c.Reindex.MaxBackoffMs = 10000
	}
	if c.Reindex.AttemptTimeoutMs <= 0 {
		c.Reindex.AttemptTimeoutMs = 10000
	}
	if len(c.Reindex.Services) == 0 {
		c.Reindex.Services = []string{"inventory"}
	}
	if c.Inventory.TimeoutMs <= 0 {
		c.Inventory.TimeoutMs = 5000
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverBleve:
	case DriverElasticsearch:
		if len(c.Store.Elasticsearch.Addrs) == 0 {
			return fmt.Errorf("store.elasticsearch.addrs is required")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverBleve, DriverElasticsearch, c.Store.Driver)
	}
	switch c.Queue.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.Queue.Redis.Addrs) == 0 {
			return fmt.Errorf("queue.redis.addrs is required")
		}
	default:
		return fmt.Errorf("queue.driver must be %q or %q, got %q", DriverMemory, DriverRedis, c.Queue.Driver)
	}
	for _, s := range c.Reindex.Services {
		if s != "inventory" {
			return fmt.Errorf("reindex.services: unsupported service %q", s)
		}
	}
	if c.Inventory.Addr == "" {
		return fmt.Errorf("inventory.addr is required")
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKeyPath == "" {
		return fmt.Errorf("auth.jwt_secret or auth.jwt_public_key_path is required")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
