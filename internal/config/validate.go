package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate checks that all values are within range. Errors name the YAML key.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}

	if c.Rebuild.Threshold < 1 || c.Rebuild.Threshold > 100 {
		return fmt.Errorf("%w: rebuild.threshold must be between 1 and 100, got %d", ErrInvalid, c.Rebuild.Threshold)
	}

	for i, n := range c.Resolver.Networks {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: resolver.networks[%d] is empty", ErrInvalid, i)
		}
	}
	if c.Resolver.MinPhraseLength < 1 {
		return fmt.Errorf("%w: resolver.min_phrase_length must be >= 1", ErrInvalid)
	}

	if c.Pricing.PoolCandidates < 1 {
		return fmt.Errorf("%w: pricing.pool_candidates must be >= 1", ErrInvalid)
	}
	if c.Pricing.GracePeriod < 0 {
		return fmt.Errorf("%w: pricing.grace_period must be >= 0", ErrInvalid)
	}

	if c.Gateway.MaxConcurrent < 1 {
		return fmt.Errorf("%w: gateway.max_concurrent must be >= 1", ErrInvalid)
	}
	if c.Gateway.CacheTTL < 0 {
		return fmt.Errorf("%w: gateway.cache_ttl must be >= 0", ErrInvalid)
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("%w: gateway.max_retries must be >= 0", ErrInvalid)
	}
	if c.Gateway.BaseDelay > c.Gateway.MaxDelay {
		return fmt.Errorf("%w: gateway.base_delay (%s) cannot exceed gateway.max_delay (%s)",
			ErrInvalid, c.Gateway.BaseDelay, c.Gateway.MaxDelay)
	}
	if c.Gateway.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: gateway.requests_per_second must be >= 0", ErrInvalid)
	}

	if !strings.HasPrefix(c.Market.BaseURL, "http://") && !strings.HasPrefix(c.Market.BaseURL, "https://") {
		return fmt.Errorf("%w: market.base_url must be an http(s) URL, got %q", ErrInvalid, c.Market.BaseURL)
	}

	if c.Orchestrator.Workers < 1 {
		return fmt.Errorf("%w: orchestrator.workers must be >= 1", ErrInvalid)
	}
	if c.Orchestrator.BatchSize < 1 {
		return fmt.Errorf("%w: orchestrator.batch_size must be >= 1", ErrInvalid)
	}
	if c.Orchestrator.MaxPosts < 0 {
		return fmt.Errorf("%w: orchestrator.max_posts must be >= 0", ErrInvalid)
	}

	if c.Postgres.MaxConns < 1 {
		return fmt.Errorf("%w: postgres.max_conns must be >= 1", ErrInvalid)
	}
	return nil
}
