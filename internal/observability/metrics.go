// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Gateway metrics
	GatewayRequests  *prometheus.CounterVec
	GatewayCacheHits prometheus.Counter
	GatewayCoalesced prometheus.Counter
	GatewayRetries   *prometheus.CounterVec
	GatewayLatency   prometheus.Histogram
	GatewayInFlight  prometheus.Gauge

	// Extraction metrics
	MentionsExtracted *prometheus.CounterVec
	RebuildDecisions  *prometheus.CounterVec

	// Resolution and pricing metrics
	ResolverOutcomes *prometheus.CounterVec
	PricingOutcomes  *prometheus.CounterVec

	// Batch metrics
	PostsProcessed prometheus.Counter
	BatchRuns      *prometheus.CounterVec
	BatchDuration  prometheus.Histogram

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mention_tracker"
	}

	return &Metrics{
		GatewayRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of upstream HTTP requests by status class",
		}, []string{"status"}),
		GatewayCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "cache_hits_total",
			Help:      "Total number of requests served from the response cache",
		}),
		GatewayCoalesced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "coalesced_total",
			Help:      "Total number of requests that shared another caller's in-flight fetch",
		}),
		GatewayRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Total number of retries by reason",
		}, []string{"reason"}),
		GatewayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_latency_seconds",
			Help:      "Upstream HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		GatewayInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "in_flight",
			Help:      "Number of upstream requests currently holding a concurrency slot",
		}),

		MentionsExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "mentions_total",
			Help:      "Total number of mentions stored by source",
		}, []string{"source"}),
		RebuildDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "decisions_total",
			Help:      "Total number of rebuild gate decisions",
		}, []string{"decision"}),

		ResolverOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "outcomes_total",
			Help:      "Total number of resolution attempts by source and outcome",
		}, []string{"source", "outcome"}),
		PricingOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "outcomes_total",
			Help:      "Total number of price lookups by status",
		}, []string{"status"}),

		PostsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "posts_processed_total",
			Help:      "Total number of posts scanned by the batch driver",
		}),
		BatchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total number of batch runs by status",
		}, []string{"status"}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful batch run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordGatewayRequest records one upstream HTTP round trip.
func RecordGatewayRequest(status string, seconds float64) {
	DefaultMetrics.GatewayRequests.WithLabelValues(status).Inc()
	DefaultMetrics.GatewayLatency.Observe(seconds)
}

// RecordGatewayCacheHit increments the cache hit counter.
func RecordGatewayCacheHit() {
	DefaultMetrics.GatewayCacheHits.Inc()
}

// RecordGatewayCoalesced increments the coalesced request counter.
func RecordGatewayCoalesced() {
	DefaultMetrics.GatewayCoalesced.Inc()
}

// RecordGatewayRetry records a retry with its reason (rate_limited, server_error, transport).
func RecordGatewayRetry(reason string) {
	DefaultMetrics.GatewayRetries.WithLabelValues(reason).Inc()
}

// RecordMentionStored increments the stored mentions counter.
func RecordMentionStored(source string) {
	DefaultMetrics.MentionsExtracted.WithLabelValues(source).Inc()
}

// RecordRebuildDecision records a rebuild gate decision (rebuild, skip).
func RecordRebuildDecision(decision string) {
	DefaultMetrics.RebuildDecisions.WithLabelValues(decision).Inc()
}

// RecordResolverOutcome records a resolution outcome.
func RecordResolverOutcome(source, outcome string) {
	DefaultMetrics.ResolverOutcomes.WithLabelValues(source, outcome).Inc()
}

// RecordPricingOutcome records a pricing status.
func RecordPricingOutcome(status string) {
	DefaultMetrics.PricingOutcomes.WithLabelValues(status).Inc()
}

// RecordPostProcessed increments the processed posts counter.
func RecordPostProcessed() {
	DefaultMetrics.PostsProcessed.Inc()
}

// RecordBatchRun records a batch run and, on success, the health timestamp.
func RecordBatchRun(status string, durationSeconds float64, finishedAtUnix int64) {
	DefaultMetrics.BatchRuns.WithLabelValues(status).Inc()
	DefaultMetrics.BatchDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulRun.Set(float64(finishedAtUnix))
	}
}
