package metrics

import "github.com/prometheus/client_golang/prometheus"

// CircuitBreakerMetrics exposes the Redis sink breaker state.
type CircuitBreakerMetrics struct {
	State       prometheus.Gauge
	Transitions *prometheus.CounterVec
}

// NewCircuitBreakerMetrics creates and registers breaker metrics on the given registry.
func NewCircuitBreakerMetrics(reg prometheus.Registerer) *CircuitBreakerMetrics {
	m := &CircuitBreakerMetrics{
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state",
			Help:      "Redis circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of breaker state changes, by target state.",
		}, []string{"to"}),
	}

	reg.MustRegister(m.State, m.Transitions)
	return m
}
