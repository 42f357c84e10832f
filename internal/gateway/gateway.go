// Package gateway is the shared outbound HTTP layer: a URL-keyed response cache,
// coalescing of identical in-flight requests, a FIFO concurrency cap, optional
// request pacing, and bounded retries with backoff for 429 and 5xx responses.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"solana-mention-tracker/internal/observability"
)

// Default configuration values.
const (
	DefaultMaxConcurrent = 2
	DefaultCacheTTL      = 60 * time.Second
	DefaultMaxRetries    = 4
	DefaultBaseDelay     = 1 * time.Second
	DefaultMaxDelay      = 30 * time.Second
	DefaultTimeout       = 15 * time.Second
	DefaultUserAgent     = "solana-mention-tracker/1.0"

	maxBodyBytes  = 8 << 20
	maxErrorBytes = 2048
)

// Config controls gateway behaviour.
type Config struct {
	MaxConcurrent     int           // concurrent upstream requests; waiters queue FIFO
	CacheTTL          time.Duration // response cache TTL; zero disables caching
	MaxRetries        int           // retries after the first attempt
	BaseDelay         time.Duration // first backoff delay
	MaxDelay          time.Duration // cap for any single wait
	Timeout           time.Duration // per-attempt timeout
	RequestsPerSecond float64       // pacing on top of the cap; zero disables
	UserAgent         string
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: DefaultMaxConcurrent,
		CacheTTL:      DefaultCacheTTL,
		MaxRetries:    DefaultMaxRetries,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
	}
}

// Gateway performs GET requests on behalf of every outbound caller.
// Create one per process and share it; all callers then draw from one budget.
type Gateway struct {
	cfg     Config
	client  *http.Client
	cache   *gocache.Cache
	group   singleflight.Group
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	log     logrus.FieldLogger

	now    func() time.Time
	jitter func() float64
}

// Option configures Gateway.
type Option func(*Gateway)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// New creates a Gateway. Missing limits fall back to their defaults;
// CacheTTL, MaxRetries and RequestsPerSecond keep their zero meaning.
func New(cfg Config, opts ...Option) *Gateway {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	g := &Gateway{
		cfg:    cfg,
		client: &http.Client{},
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		log:    logrus.StandardLogger(),
		now:    time.Now,
		jitter: defaultJitter,
	}
	if cfg.CacheTTL > 0 {
		g.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get fetches url and returns the response body.
// Errors: *StatusError for non-retryable 4xx, ErrUnavailable (wrapped) when
// retries or the request budget are exhausted, ctx.Err() when the caller gives up.
func (g *Gateway) Get(ctx context.Context, url string) ([]byte, error) {
	if body, ok := g.cached(url); ok {
		observability.RecordGatewayCacheHit()
		g.log.WithField("url", url).Debug("gateway cache hit")
		return body, nil
	}

	ch := g.group.DoChan(url, func() (any, error) {
		// The shared fetch outlives any single caller's cancellation.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.budget())
		defer cancel()

		body, err := g.fetch(fctx, url)
		if err != nil {
			return nil, err
		}
		if g.cache != nil {
			g.cache.SetDefault(url, body)
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			observability.RecordGatewayCoalesced()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneBytes(res.Val.([]byte)), nil
	}
}

// GetJSON fetches url and decodes the JSON body into v.
func (g *Gateway) GetJSON(ctx context.Context, url string, v any) error {
	body, err := g.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal response from %s: %w", url, err)
	}
	return nil
}

func (g *Gateway) cached(url string) ([]byte, bool) {
	if g.cache == nil {
		return nil, false
	}
	if v, found := g.cache.Get(url); found {
		return cloneBytes(v.([]byte)), true
	}
	return nil, false
}

// budget bounds a whole fetch: every attempt plus every wait.
func (g *Gateway) budget() time.Duration {
	return time.Duration(g.cfg.MaxRetries+1) * (g.cfg.Timeout + g.cfg.MaxDelay)
}

// fetch performs the request with retries on 429, 5xx and transport errors.
func (g *Gateway) fetch(ctx context.Context, url string) ([]byte, error) {
	log := g.log.WithField("url", url)
	var lastErr error

	for attempt := 0; ; attempt++ {
		body, header, err := g.do(ctx, url)
		if err == nil {
			if attempt > 0 {
				log.WithField("attempt", attempt+1).Debug("upstream request succeeded after retry")
			}
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, url, ctx.Err())
		}

		reason, retryable := classify(err)
		if !retryable {
			return nil, err
		}
		lastErr = err
		if attempt >= g.cfg.MaxRetries {
			break
		}

		delay := g.retryDelay(attempt, header)
		log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"reason":  reason,
		}).Warn("retrying upstream request")
		observability.RecordGatewayRetry(reason)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, url, ctx.Err())
		case <-time.After(delay):
		}
	}

	log.WithError(lastErr).Warn("upstream retries exhausted")
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrUnavailable, url, g.cfg.MaxRetries+1, lastErr)
}

// do performs one attempt while holding a concurrency slot.
// The slot is not held during backoff waits.
func (g *Gateway) do(ctx context.Context, url string) ([]byte, http.Header, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer g.sem.Release(1)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	observability.DefaultMetrics.GatewayInFlight.Inc()
	defer observability.DefaultMetrics.GatewayInFlight.Dec()

	actx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, &requestError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		observability.RecordGatewayRequest("error", time.Since(start).Seconds())
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	observability.RecordGatewayRequest(statusClass(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, resp.Header, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBytes {
			body = body[:maxErrorBytes]
		}
		return nil, resp.Header, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			URL:        url,
		}
	}

	return body, resp.Header, nil
}

// requestError marks failures to build a request; they are never retried.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "create request: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func classify(err error) (reason string, retryable bool) {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusTooManyRequests:
			return "rate_limited", true
		case se.StatusCode >= 500:
			return "server_error", true
		default:
			return "client_error", false
		}
	}
	var re *requestError
	if errors.As(err, &re) {
		return "invalid_request", false
	}
	return "transport", true
}

func statusClass(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
