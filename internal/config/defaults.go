package config

import (
	"github.com/spf13/viper"

	"solana-mention-tracker/internal/extract"
	"solana-mention-tracker/internal/gateway"
	"solana-mention-tracker/internal/market"
	"solana-mention-tracker/internal/orchestrator"
	"solana-mention-tracker/internal/pricing"
	"solana-mention-tracker/internal/rebuild"
	"solana-mention-tracker/internal/resolver"
)

// Default values for optional configuration fields.
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultPostgresConns  = 10
	DefaultMetricsAddress = ""
)

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Rebuild: RebuildConfig{
			Threshold: rebuild.DefaultThreshold,
		},
		Extract: ExtractConfig{
			Stopwords: append([]string(nil), extract.DefaultStopwords...),
		},
		Resolver: ResolverConfig{
			Strict:               true,
			Networks:             []string{resolver.DefaultNetwork},
			Blocklist:            append([]string(nil), resolver.DefaultBlocklist...),
			ExternalPhraseSearch: true,
			MinPhraseLength:      resolver.DefaultMinPhraseLength,
		},
		Pricing: PricingConfig{
			Network:        pricing.DefaultNetwork,
			PoolCandidates: pricing.DefaultPoolCandidates,
			GracePeriod:    pricing.DefaultGracePeriod,
		},
		Gateway: GatewayConfig{
			MaxConcurrent: gateway.DefaultMaxConcurrent,
			CacheTTL:      gateway.DefaultCacheTTL,
			MaxRetries:    gateway.DefaultMaxRetries,
			BaseDelay:     gateway.DefaultBaseDelay,
			MaxDelay:      gateway.DefaultMaxDelay,
			Timeout:       gateway.DefaultTimeout,
			UserAgent:     gateway.DefaultUserAgent,
		},
		Market: MarketConfig{
			BaseURL: market.DefaultBaseURL,
		},
		Orchestrator: OrchestratorConfig{
			Workers:   orchestrator.DefaultWorkers,
			BatchSize: orchestrator.DefaultBatchSize,
		},
		Postgres: PostgresConfig{
			MaxConns: DefaultPostgresConns,
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddress,
		},
	}
}

// setDefaults registers every key with viper so environment overrides apply to all of them.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("rebuild.threshold", d.Rebuild.Threshold)

	v.SetDefault("extract.stopwords", d.Extract.Stopwords)

	v.SetDefault("resolver.strict", d.Resolver.Strict)
	v.SetDefault("resolver.networks", d.Resolver.Networks)
	v.SetDefault("resolver.blocklist", d.Resolver.Blocklist)
	v.SetDefault("resolver.external_phrase_search", d.Resolver.ExternalPhraseSearch)
	v.SetDefault("resolver.min_phrase_length", d.Resolver.MinPhraseLength)

	v.SetDefault("pricing.network", d.Pricing.Network)
	v.SetDefault("pricing.pool_candidates", d.Pricing.PoolCandidates)
	v.SetDefault("pricing.grace_period", d.Pricing.GracePeriod)

	v.SetDefault("gateway.max_concurrent", d.Gateway.MaxConcurrent)
	v.SetDefault("gateway.cache_ttl", d.Gateway.CacheTTL)
	v.SetDefault("gateway.max_retries", d.Gateway.MaxRetries)
	v.SetDefault("gateway.base_delay", d.Gateway.BaseDelay)
	v.SetDefault("gateway.max_delay", d.Gateway.MaxDelay)
	v.SetDefault("gateway.timeout", d.Gateway.Timeout)
	v.SetDefault("gateway.requests_per_second", d.Gateway.RequestsPerSecond)
	v.SetDefault("gateway.user_agent", d.Gateway.UserAgent)

	v.SetDefault("market.base_url", d.Market.BaseURL)

	v.SetDefault("orchestrator.workers", d.Orchestrator.Workers)
	v.SetDefault("orchestrator.batch_size", d.Orchestrator.BatchSize)
	v.SetDefault("orchestrator.max_posts", d.Orchestrator.MaxPosts)

	v.SetDefault("postgres.dsn", d.Postgres.DSN)
	v.SetDefault("postgres.max_conns", d.Postgres.MaxConns)
	v.SetDefault("clickhouse.dsn", d.ClickHouse.DSN)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// ApplyDefaults fills fields whose zero value is not meaningful.
// Zero cache_ttl, max_retries, requests_per_second and max_posts keep their zero meaning.
func (c *Config) ApplyDefaults() {
	d := Defaults()

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Rebuild.Threshold == 0 {
		c.Rebuild.Threshold = d.Rebuild.Threshold
	}
	if len(c.Resolver.Networks) == 0 {
		c.Resolver.Networks = d.Resolver.Networks
	}
	if c.Resolver.MinPhraseLength == 0 {
		c.Resolver.MinPhraseLength = d.Resolver.MinPhraseLength
	}
	if c.Pricing.Network == "" {
		c.Pricing.Network = d.Pricing.Network
	}
	if c.Pricing.PoolCandidates == 0 {
		c.Pricing.PoolCandidates = d.Pricing.PoolCandidates
	}
	if c.Pricing.GracePeriod == 0 {
		c.Pricing.GracePeriod = d.Pricing.GracePeriod
	}
	if c.Gateway.MaxConcurrent == 0 {
		c.Gateway.MaxConcurrent = d.Gateway.MaxConcurrent
	}
	if c.Gateway.BaseDelay == 0 {
		c.Gateway.BaseDelay = d.Gateway.BaseDelay
	}
	if c.Gateway.MaxDelay == 0 {
		c.Gateway.MaxDelay = d.Gateway.MaxDelay
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = d.Gateway.Timeout
	}
	if c.Gateway.UserAgent == "" {
		c.Gateway.UserAgent = d.Gateway.UserAgent
	}
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = d.Market.BaseURL
	}
	if c.Orchestrator.Workers == 0 {
		c.Orchestrator.Workers = d.Orchestrator.Workers
	}
	if c.Orchestrator.BatchSize == 0 {
		c.Orchestrator.BatchSize = d.Orchestrator.BatchSize
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = d.Postgres.MaxConns
	}
}

// ClientConfig converts the settings into gateway.Config.
func (g GatewayConfig) ClientConfig() gateway.Config {
	return gateway.Config{
		MaxConcurrent:     g.MaxConcurrent,
		CacheTTL:          g.CacheTTL,
		MaxRetries:        g.MaxRetries,
		BaseDelay:         g.BaseDelay,
		MaxDelay:          g.MaxDelay,
		Timeout:           g.Timeout,
		RequestsPerSecond: g.RequestsPerSecond,
		UserAgent:         g.UserAgent,
	}
}
