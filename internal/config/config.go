// Package config loads the mention tracker configuration from YAML and MENTIONS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. MENTIONS_POSTGRES_DSN.
const EnvPrefix = "MENTIONS"

// Config is the complete application configuration.
type Config struct {
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Rebuild      RebuildConfig      `yaml:"rebuild" mapstructure:"rebuild"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Resolver     ResolverConfig     `yaml:"resolver" mapstructure:"resolver"`
	Pricing      PricingConfig      `yaml:"pricing" mapstructure:"pricing"`
	Gateway      GatewayConfig      `yaml:"gateway" mapstructure:"gateway"`
	Market       MarketConfig       `yaml:"market" mapstructure:"market"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Postgres     PostgresConfig     `yaml:"postgres" mapstructure:"postgres"`
	ClickHouse   ClickHouseConfig   `yaml:"clickhouse" mapstructure:"clickhouse"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text | json
}

// RebuildConfig holds rebuild gate settings.
type RebuildConfig struct {
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
}

// ExtractConfig holds extractor settings.
type ExtractConfig struct {
	// Stopwords replaces the built-in phrase stopword list when non-empty.
	Stopwords []string `yaml:"stopwords" mapstructure:"stopwords"`
}

// ResolverConfig holds resolver settings.
type ResolverConfig struct {
	Strict               bool     `yaml:"strict" mapstructure:"strict"`
	Networks             []string `yaml:"networks" mapstructure:"networks"`
	Blocklist            []string `yaml:"blocklist" mapstructure:"blocklist"`
	ExternalPhraseSearch bool     `yaml:"external_phrase_search" mapstructure:"external_phrase_search"`
	MinPhraseLength      int      `yaml:"min_phrase_length" mapstructure:"min_phrase_length"`
}

// PricingConfig holds price engine settings.
type PricingConfig struct {
	Network        string        `yaml:"network" mapstructure:"network"`
	PoolCandidates int           `yaml:"pool_candidates" mapstructure:"pool_candidates"`
	GracePeriod    time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// GatewayConfig holds outbound HTTP settings.
type GatewayConfig struct {
	MaxConcurrent     int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"` // 0 disables
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay         time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// MarketConfig holds market-data API settings.
type MarketConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OrchestratorConfig holds batch driver settings.
type OrchestratorConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxPosts  int `yaml:"max_posts" mapstructure:"max_posts"` // 0 scans everything
}

// PostgresConfig holds Postgres settings. An empty DSN selects in-memory stores.
type PostgresConfig struct {
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ClickHouseConfig holds ClickHouse settings. An empty DSN keeps price snapshots in memory.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// MetricsConfig holds the Prometheus endpoint settings. An empty address disables the server.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Load reads configuration from path (optional) and MENTIONS_* environment variables,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// Redacted returns a copy with connection strings masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Postgres.DSN = redactDSN(cp.Postgres.DSN)
	cp.ClickHouse.DSN = redactDSN(cp.ClickHouse.DSN)
	return &cp
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if user, _, ok := strings.Cut(userinfo, ":"); ok {
		return dsn[:scheme+3] + user + ":xxxxx" + dsn[at:]
	}
	return dsn
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")
