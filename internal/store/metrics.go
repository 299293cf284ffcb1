package store

import (
	"github.com/prometheus/client_golang/prometheus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Metrics names as constants for consistency.
const (
	MetricBreakerState    = "store_circuit_breaker_state"
	MetricBreakerRequests = "store_circuit_breaker_requests_total"
)

// Metrics contains Prometheus metrics for the store circuit breaker.
// Methods on a nil *Metrics are no-ops.
type Metrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricBreakerState,
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBreakerRequests,
			Help: "Total number of store reads through the circuit breaker by result",
		}, []string{"name", "result"}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.state, m.requests}
}

func (m *Metrics) setState(name string, state gobreaker.State) {
	if m == nil {
		return
	}
	m.state.WithLabelValues(name).Set(stateToFloat(state))
}

func (m *Metrics) incRequests(name, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(name, result).Inc()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
