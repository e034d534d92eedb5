package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "LEASELENS"

// settingKeys registers every configuration key with its typed zero value.
// Viper only consults the environment for keys it knows about, so without
// this registration LEASELENS_* overrides would be ignored when no config
// file supplies the key.
var settingKeys = map[string]interface{}{
	"server.port":             0,
	"server.mode":             "",
	"server.read_timeout":     time.Duration(0),
	"server.write_timeout":    time.Duration(0),
	"server.max_body_size":    int64(0),
	"server.shutdown_timeout": time.Duration(0),

	"database.host":               "",
	"database.port":               0,
	"database.user":               "",
	"database.password":           "",
	"database.db_name":            "",
	"database.ssl_mode":           "",
	"database.max_conns":          0,
	"database.min_conns":          0,
	"database.conn_max_lifetime":  time.Duration(0),
	"database.conn_max_idle_time": time.Duration(0),
	"database.migration_path":     "",

	"redis.addr":           "",
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      0,
	"redis.min_idle_conns": 0,
	"redis.dial_timeout":   time.Duration(0),
	"redis.read_timeout":   time.Duration(0),
	"redis.write_timeout":  time.Duration(0),
	"redis.default_ttl":    time.Duration(0),
	"redis.key_prefix":     "",

	"kafka.brokers":          []string(nil),
	"kafka.producer_retries": 0,
	"kafka.batch_size":       0,
	"kafka.batch_timeout":    time.Duration(0),
	"kafka.required_acks":    0,
	"kafka.async":            false,

	"minio.endpoint":   "",
	"minio.access_key": "",
	"minio.secret_key": "",
	"minio.bucket":     "",
	"minio.use_ssl":    false,

	"extractor.max_text_length":   0,
	"extractor.batch_concurrency": 0,
	"extractor.max_other_fees":    0,

	"analysis.concurrency":       0,
	"analysis.default_condition": "",

	"rate_limit.enabled":             false,
	"rate_limit.requests_per_second": 0.0,
	"rate_limit.burst":               0,

	"log.level":             "",
	"log.format":            "",
	"log.output":            "",
	"log.enable_caller":     false,
	"log.enable_stacktrace": false,
}

// newViper builds a pre-configured Viper instance with the platform's standard
// settings: YAML file type, LEASELENS_ env prefix, automatic env binding, and
// a key replacer that maps "." to "_" so that nested keys like
// "database.host" resolve to "LEASELENS_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, zero := range settingKeys {
		v.SetDefault(key, zero)
	}
	return v
}

// Load reads the YAML file at configPath, merges any LEASELENS_* environment
// variable overrides, applies platform defaults for unset fields, and
// validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from LEASELENS_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	LEASELENS_<SECTION>_<FIELD>   e.g.  LEASELENS_DATABASE_HOST, LEASELENS_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file; rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and rate-limit
// thresholds; callers are responsible for applying only the safe subset of
// changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// A changed file that fails to parse or validate does not trigger onChange,
// so the application never observes a broken configuration.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here because callers Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always
// fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
