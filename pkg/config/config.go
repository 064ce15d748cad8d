// Package config loads P3IF configuration from an optional YAML file and
// P3IF_* environment variables.
//
// Every setting has a default, so an empty environment yields a working
// in-memory framework. A config file named p3if.yaml is looked up in the
// working directory and in $HOME/.p3if unless an explicit path is given.
// Environment variables override the file: nested keys are joined with an
// underscore, so cache.query_capacity becomes P3IF_CACHE_QUERY_CAPACITY.
//
// Example Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	fmt.Println(cfg)
//
// Example p3if.yaml:
//
//	storage:
//	  backend: badger
//	  data_dir: ./data/p3if
//	cache:
//	  query_capacity: 1000
//	  query_ttl: 15m
//	logging:
//	  level: debug
//	  format: console
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "P3IF"

// Config holds all P3IF configuration.
//
// Configuration is organized into logical sections:
//   - Cache: query and metrics cache sizing
//   - Storage: persistence backend selection
//   - Pool: background worker pool
//   - Logging: zap logger settings
//   - Telemetry: Prometheus collector
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// CacheConfig sizes the two store caches.
type CacheConfig struct {
	// QueryCapacity bounds the query cache (default: 500)
	QueryCapacity int `mapstructure:"query_capacity"`
	// QueryTTL expires query entries (default: 10m)
	QueryTTL time.Duration `mapstructure:"query_ttl"`
	// MetricsCapacity bounds the metrics cache (default: 200)
	MetricsCapacity int `mapstructure:"metrics_capacity"`
	// MetricsTTL expires metrics entries (default: 5m)
	MetricsTTL time.Duration `mapstructure:"metrics_ttl"`
	// SnapshotTTL expires framework metric snapshots (default: 30s)
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of memory, badger or redis (default: memory)
	Backend string `mapstructure:"backend"`
	// DataDir is the Badger data directory (default: ./data/p3if)
	DataDir string `mapstructure:"data_dir"`
	// InMemory runs Badger without touching disk
	InMemory bool `mapstructure:"in_memory"`
	// SyncWrites fsyncs every Badger write
	SyncWrites bool        `mapstructure:"sync_writes"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PoolConfig sizes the background worker pool.
type PoolConfig struct {
	// Workers is the concurrency bound; 0 means runtime.NumCPU()
	Workers int `mapstructure:"workers"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error (default: info)
	Level string `mapstructure:"level"`
	// Format is json or console (default: json)
	Format string `mapstructure:"format"`
}

// TelemetryConfig toggles the Prometheus collector.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.query_capacity", 500)
	v.SetDefault("cache.query_ttl", 10*time.Minute)
	v.SetDefault("cache.metrics_capacity", 200)
	v.SetDefault("cache.metrics_ttl", 5*time.Minute)
	v.SetDefault("cache.snapshot_ttl", 30*time.Second)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.data_dir", "./data/p3if")
	v.SetDefault("storage.in_memory", false)
	v.SetDefault("storage.sync_writes", false)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "p3if:")
	v.SetDefault("storage.redis.timeout", 5*time.Second)

	v.SetDefault("pool.workers", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", FormatJSON)

	v.SetDefault("telemetry.enabled", true)
}

// Default returns the configuration produced by an empty environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return &cfg
}

// Load reads configuration from path, or from p3if.yaml in the usual
// locations when path is empty. A missing default file is not an error; a
// missing explicit file is. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("p3if")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".p3if"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate checks the configuration for invalid settings.
func (c *Config) Validate() error {
	if c.Cache.QueryCapacity <= 0 {
		return fmt.Errorf("invalid query cache capacity: %d", c.Cache.QueryCapacity)
	}
	if c.Cache.MetricsCapacity <= 0 {
		return fmt.Errorf("invalid metrics cache capacity: %d", c.Cache.MetricsCapacity)
	}
	if c.Cache.QueryTTL < 0 || c.Cache.MetricsTTL < 0 || c.Cache.SnapshotTTL < 0 {
		return fmt.Errorf("cache ttls must not be negative")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBadger:
		if !c.Storage.InMemory && c.Storage.DataDir == "" {
			return fmt.Errorf("badger backend requires storage.data_dir")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires storage.redis.addr")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Pool.Workers < 0 {
		return fmt.Errorf("invalid pool workers: %d", c.Pool.Workers)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}
	return nil
}

// String returns a safe string representation of the Config.
//
// The Redis password is never included, making this safe for logging.
//
// Example:
//
//	cfg, _ := config.Load("")
//	log.Printf("Starting with config: %s", cfg)
//	// Output: Config{Backend: memory, QueryCache: 500/10m0s, MetricsCache: 200/5m0s, Workers: 0, Log: info/json}
func (c *Config) String() string {
	backend := c.Storage.Backend
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.InMemory {
			backend += "(in-memory)"
		} else {
			backend += "(" + c.Storage.DataDir + ")"
		}
	case BackendRedis:
		backend += "(" + c.Storage.Redis.Addr + ")"
	}
	return fmt.Sprintf(
		"Config{Backend: %s, QueryCache: %d/%s, MetricsCache: %d/%s, Workers: %d, Log: %s/%s}",
		backend,
		c.Cache.QueryCapacity, c.Cache.QueryTTL,
		c.Cache.MetricsCapacity, c.Cache.MetricsTTL,
		c.Pool.Workers,
		c.Logging.Level, c.Logging.Format,
	)
}
