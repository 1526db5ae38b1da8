package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the evaluation engine.
type Metrics struct {
	config MetricsConfig

	// Top-level call metrics
	evaluationsStarted   *prometheus.CounterVec
	evaluationsCompleted *prometheus.CounterVec
	evaluationDuration   *prometheus.HistogramVec

	// Escalation metrics
	escalations      prometheus.Counter
	workingPrecision prometheus.Histogram

	// Quadrature and series metrics
	quadratureLevels prometheus.Histogram
	seriesTerms      prometheus.Histogram
	seriesStrategy   *prometheus.CounterVec

	// Cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a no-op instance whose methods are safe
// to call.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		evaluationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_started_total",
				Help:      "Total number of top-level evaluations started",
			},
			[]string{"entry"},
		),
		evaluationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_completed_total",
				Help:      "Total number of top-level evaluations completed, by status",
			},
			[]string{"entry", "status"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Wall time of top-level evaluations",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"entry"},
		),
		escalations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "precision_escalations_total",
				Help:      "Total number of precision doublings performed by the driver",
			},
		),
		workingPrecision: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "working_precision_bits",
				Help:      "Final working precision of completed evaluations",
				Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
			},
		),
		quadratureLevels: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quadrature_refinement_levels",
				Help:      "Number of node-doubling levels used per integral",
				Buckets:   prometheus.LinearBuckets(1, 1, 12),
			},
		),
		seriesTerms: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "series_terms_summed",
				Help:      "Number of terms evaluated per summation",
				Buckets:   prometheus.ExponentialBuckets(8, 2, 12),
			},
		),
		seriesStrategy: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "series_strategy_total",
				Help:      "Summations by strategy (binary_splitting, euler_maclaurin, extrapolation, direct)",
			},
			[]string{"strategy"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constant_cache_hits_total",
				Help:      "Constant cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constant_cache_misses_total",
				Help:      "Constant cache misses",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.evaluationsStarted, m.evaluationsCompleted, m.evaluationDuration,
		m.escalations, m.workingPrecision,
		m.quadratureLevels, m.seriesTerms, m.seriesStrategy,
		m.cacheHits, m.cacheMisses,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// EvaluationStarted records the start of a top-level call and returns a
// function that records its completion.
func (m *Metrics) EvaluationStarted(entry string) func(status string) {
	if m.registry == nil {
		return func(string) {}
	}
	m.evaluationsStarted.WithLabelValues(entry).Inc()
	start := time.Now()
	return func(status string) {
		m.evaluationsCompleted.WithLabelValues(entry, status).Inc()
		m.evaluationDuration.WithLabelValues(entry).Observe(time.Since(start).Seconds())
	}
}

// EscalationPerformed records one precision doubling.
func (m *Metrics) EscalationPerformed() {
	if m.registry != nil {
		m.escalations.Inc()
	}
}

// FinalPrecision records the working precision an evaluation settled at.
func (m *Metrics) FinalPrecision(bits uint) {
	if m.registry != nil {
		m.workingPrecision.Observe(float64(bits))
	}
}

// QuadratureLevels records the refinement depth of one integral.
func (m *Metrics) QuadratureLevels(levels int) {
	if m.registry != nil {
		m.quadratureLevels.Observe(float64(levels))
	}
}

// SeriesTerms records the term count and strategy of one summation.
func (m *Metrics) SeriesTerms(strategy string, terms int) {
	if m.registry != nil {
		m.seriesTerms.Observe(float64(terms))
		m.seriesStrategy.WithLabelValues(strategy).Inc()
	}
}

// CacheHit records a constant cache hit.
func (m *Metrics) CacheHit() {
	if m.registry != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss records a constant cache miss.
func (m *Metrics) CacheMiss() {
	if m.registry != nil {
		m.cacheMisses.Inc()
	}
}

// Handler returns an HTTP handler serving the metrics in Prometheus
// exposition format, or nil when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
