package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the working directory and HOME at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 500, cfg.Cache.QueryCapacity)
	assert.Equal(t, 10*time.Minute, cfg.Cache.QueryTTL)
	assert.Equal(t, 200, cfg.Cache.MetricsCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MetricsTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.SnapshotTTL)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "p3if:", cfg.Storage.Redis.Prefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, FormatJSON, cfg.Logging.Format)
	assert.True(t, cfg.Telemetry.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)

	content := `
cache:
  query_capacity: 50
  query_ttl: 90s
storage:
  backend: Badger
  data_dir: /var/lib/p3if
  sync_writes: true
pool:
  workers: 3
logging:
  level: DEBUG
  format: console
telemetry:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p3if.yaml"), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Cache.QueryCapacity)
	assert.Equal(t, 90*time.Second, cfg.Cache.QueryTTL)
	assert.Equal(t, 200, cfg.Cache.MetricsCapacity, "unset keys keep defaults")
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/p3if", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.SyncWrites)
	assert.Equal(t, 3, cfg.Pool.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, FormatConsole, cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: redis\n  redis:\n    addr: cache:6380\n    db: 2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "cache:6380", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p3if.yaml"), []byte("cache: [unterminated"), 0644))

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p3if.yaml"), []byte("cache:\n  query_capacity: 50\n"), 0644))

	t.Setenv("P3IF_CACHE_QUERY_CAPACITY", "75")
	t.Setenv("P3IF_CACHE_METRICS_TTL", "2m")
	t.Setenv("P3IF_STORAGE_REDIS_PREFIX", "test:")
	t.Setenv("P3IF_TELEMETRY_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Cache.QueryCapacity, "environment wins over file")
	assert.Equal(t, 2*time.Minute, cfg.Cache.MetricsTTL)
	assert.Equal(t, "test:", cfg.Storage.Redis.Prefix)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("P3IF_STORAGE_BACKEND", "postgres")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero query capacity", func(c *Config) { c.Cache.QueryCapacity = 0 }, "query cache capacity"},
		{"zero metrics capacity", func(c *Config) { c.Cache.MetricsCapacity = 0 }, "metrics cache capacity"},
		{"negative ttl", func(c *Config) { c.Cache.SnapshotTTL = -time.Second }, "must not be negative"},
		{"zero ttl disables expiry", func(c *Config) { c.Cache.QueryTTL = 0 }, ""},
		{"badger without dir", func(c *Config) {
			c.Storage.Backend = BackendBadger
			c.Storage.DataDir = ""
		}, "data_dir"},
		{"badger in memory", func(c *Config) {
			c.Storage.Backend = BackendBadger
			c.Storage.DataDir = ""
			c.Storage.InMemory = true
		}, ""},
		{"redis without addr", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.Redis.Addr = ""
		}, "redis.addr"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "unknown storage backend"},
		{"negative workers", func(c *Config) { c.Pool.Workers = -1 }, "pool workers"},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestString(t *testing.T) {
	cfg := Default()
	assert.Equal(t,
		"Config{Backend: memory, QueryCache: 500/10m0s, MetricsCache: 200/5m0s, Workers: 0, Log: info/json}",
		cfg.String())

	cfg.Storage.Backend = BackendRedis
	cfg.Storage.Redis.Password = "hunter2"
	s := cfg.String()
	assert.Contains(t, s, "redis(localhost:6379)")
	assert.NotContains(t, s, "hunter2")

	cfg.Storage.Backend = BackendBadger
	cfg.Storage.InMemory = true
	assert.Contains(t, cfg.String(), "badger(in-memory)")
}
