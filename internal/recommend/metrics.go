package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRecommendRequests          = "recommend_requests_total"
	MetricRecommendErrors            = "recommend_errors_total"
	MetricRecommendDuration          = "recommend_duration_seconds"
	MetricRecommendItems             = "recommend_items_returned"
	MetricRecommendMalformed         = "recommend_malformed_candidates_total"
	MetricRecommendCandidatePoolSize = "recommend_candidate_pool_size"
)

// Metrics contains Prometheus metrics for the recommendation pipeline.
// All operations are thread-safe. Methods on a nil *Metrics are no-ops.
type Metrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	items     *prometheus.HistogramVec
	malformed *prometheus.CounterVec
	poolSize  *prometheus.HistogramVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecommendRequests,
			Help: "Total number of recommendation requests by kind and strategy",
		}, []string{"kind", "strategy"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecommendErrors,
			Help: "Total number of failed recommendation requests by kind and reason",
		}, []string{"kind", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRecommendDuration,
			Help:    "Histogram of recommendation latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"kind"}),
		items: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRecommendItems,
			Help:    "Number of items returned per recommendation request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}, []string{"kind"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecommendMalformed,
			Help: "Total number of candidates dropped for missing or invalid fields",
		}, []string{"kind"}),
		poolSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRecommendCandidatePoolSize,
			Help:    "Number of candidates considered before ranking",
			Buckets: []float64{0, 5, 10, 20, 50, 100, 200},
		}, []string{"kind"}),
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

// ObserveRequest records a completed request.
func (m *Metrics) ObserveRequest(kind Kind, strategy Strategy, seconds float64, items int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(kind), string(strategy)).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(seconds)
	m.items.WithLabelValues(string(kind)).Observe(float64(items))
}

// IncErrors increments the error counter for kind.
func (m *Metrics) IncErrors(kind Kind, reason string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(string(kind), reason).Inc()
}

// IncMalformed counts a dropped candidate.
func (m *Metrics) IncMalformed(kind Kind) {
	if m == nil {
		return
	}
	m.malformed.WithLabelValues(string(kind)).Inc()
}

// ObservePoolSize records the size of a candidate pool.
func (m *Metrics) ObservePoolSize(kind Kind, size int) {
	if m == nil {
		return
	}
	m.poolSize.WithLabelValues(string(kind)).Observe(float64(size))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.errors,
		m.duration,
		m.items,
		m.malformed,
		m.poolSize,
	}
}
