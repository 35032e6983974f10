package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics tracks session transitions. A nil *LifecycleMetrics records nothing.
type LifecycleMetrics struct {
	State        prometheus.Gauge
	Transitions  *prometheus.CounterVec
	LoadDuration prometheus.Histogram
}

// NewLifecycleMetrics creates and registers lifecycle metrics on the given registry.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session state (0 unloaded, 1 loading, 2 loaded, 3 unloading).",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Total number of lifecycle operations, by operation and result.",
		}, []string{"operation", "result"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "load_duration_seconds",
			Help:      "Duration of session loads in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(m.State, m.Transitions, m.LoadDuration)
	return m
}

func (m *LifecycleMetrics) SetState(state int32) {
	if m == nil {
		return
	}
	m.State.Set(float64(state))
}

func (m *LifecycleMetrics) Transition(operation, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, result).Inc()
}

func (m *LifecycleMetrics) ObserveLoad(seconds float64) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(seconds)
}
