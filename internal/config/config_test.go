package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
  mode: "release"
database:
  host: "db.internal"
  port: 5432
  user: "leaselens"
  password: "secret"
  db_name: "leaselens"
redis:
  addr: "cache.internal:6379"
kafka:
  brokers: ["broker-1:9092", "broker-2:9092"]
minio:
  endpoint: "objects.internal:9000"
  access_key: "key"
  secret_key: "secret"
  bucket: "contracts"
analysis:
  concurrency: 8
  default_condition: "fair"
log:
  level: "debug"
  format: "text"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidFile(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Analysis.Concurrency)
	assert.Equal(t, "fair", cfg.Analysis.DefaultCondition)

	// Unset sections picked up platform defaults.
	assert.Equal(t, DefaultDBMaxConns, cfg.Database.MaxConns)
	assert.Equal(t, DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, 500000, cfg.Extractor.MaxTextLength)
	assert.Equal(t, DefaultRateLimitRPS, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalidValues(t *testing.T) {
	const badYAML = `
server:
  port: 99999
`
	cfg, err := Load(writeTempConfig(t, badYAML))
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEASELENS_DATABASE_HOST", "env-db")
	t.Setenv("LEASELENS_REDIS_ADDR", "env-redis:6379")
	t.Setenv("LEASELENS_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultCondition, cfg.Analysis.DefaultCondition)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.Redis.DefaultTTL)

	// Defaults compose into a valid configuration.
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 3000
	cfg.Log.Level = "error"
	ApplyDefaults(cfg)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestApplyDefaultsNil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"no db host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"no bucket", func(c *Config) { c.MinIO.Bucket = "" }, "minio.bucket"},
		{"bad condition", func(c *Config) { c.Analysis.DefaultCondition = "mint" }, "default_condition"},
		{"bad rate limit", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RequestsPerSecond = -1
		}, "requests_per_second"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestWatchInvokesCallback(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML+"\nextractor:\n  max_other_fees: 7\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 7, cfg.Extractor.MaxOtherFees)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}
