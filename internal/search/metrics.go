package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricSearchRequests     = "postsearch_search_requests_total"
	MetricSearchLatency      = "postsearch_search_latency_seconds"
	MetricSearchCandidates   = "postsearch_search_candidates"
	MetricIndexBuilds        = "postsearch_index_builds_total"
	MetricIndexBuildDuration = "postsearch_index_build_duration_seconds"
	MetricIndexDocuments     = "postsearch_index_documents"
)

// Search outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Build outcomes.
const (
	BuildCommitted = "committed"
	BuildFailed    = "failed"
)

// Metrics contains Prometheus metrics for the search engine.
// All operations are thread-safe. A nil *Metrics records nothing.
type Metrics struct {
	searchRequests     *prometheus.CounterVec
	searchLatency      prometheus.Histogram
	searchCandidates   prometheus.Histogram
	indexBuilds        *prometheus.CounterVec
	indexBuildDuration prometheus.Histogram
	indexDocuments     prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchRequests,
			Help: "Total number of search requests by outcome",
		}, []string{"outcome"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchLatency,
			Help:    "Histogram of search latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		searchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchCandidates,
			Help:    "Histogram of lexical candidates retrieved per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		indexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricIndexBuilds,
			Help: "Total number of index builds by outcome",
		}, []string{"outcome"}),
		indexBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricIndexBuildDuration,
			Help:    "Histogram of index build duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		indexDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexDocuments,
			Help: "Number of posts in the served index generation",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSearch records one search request.
func (m *Metrics) ObserveSearch(outcome string, seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(outcome).Inc()
	m.searchLatency.Observe(seconds)
	if outcome != OutcomeError {
		m.searchCandidates.Observe(float64(candidates))
	}
}

// ObserveBuild records one index build. documents is ignored for failed builds.
func (m *Metrics) ObserveBuild(outcome string, seconds float64, documents int) {
	if m == nil {
		return
	}
	m.indexBuilds.WithLabelValues(outcome).Inc()
	m.indexBuildDuration.Observe(seconds)
	if outcome == BuildCommitted {
		m.indexDocuments.Set(float64(documents))
	}
}

// SetIndexDocuments sets the served document count.
func (m *Metrics) SetIndexDocuments(n uint64) {
	if m == nil {
		return
	}
	m.indexDocuments.Set(float64(n))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.searchRequests,
		m.searchLatency,
		m.searchCandidates,
		m.indexBuilds,
		m.indexBuildDuration,
		m.indexDocuments,
	}
}
