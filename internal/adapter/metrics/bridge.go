package metrics

import "github.com/prometheus/client_golang/prometheus"

// BridgeMetrics tracks translation of upstream occurrences into envelopes.
// A nil *BridgeMetrics records nothing.
type BridgeMetrics struct {
	Envelopes           *prometheus.CounterVec
	DispatchFailures    *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

// NewBridgeMetrics creates and registers bridge metrics on the given registry.
func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		Envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "envelopes_total",
			Help:      "Total number of envelopes emitted, by event name.",
		}, []string{"event"}),
		DispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "dispatch_failures_total",
			Help:      "Total number of listener failures, by event name.",
		}, []string{"event"}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "active_subscriptions",
			Help:      "Number of upstream listeners currently installed.",
		}),
	}

	reg.MustRegister(m.Envelopes, m.DispatchFailures, m.ActiveSubscriptions)
	return m
}

func (m *BridgeMetrics) Emitted(event string) {
	if m == nil {
		return
	}
	m.Envelopes.WithLabelValues(event).Inc()
}

func (m *BridgeMetrics) Failed(event string) {
	if m == nil {
		return
	}
	m.DispatchFailures.WithLabelValues(event).Inc()
}

func (m *BridgeMetrics) Subscribed(n int) {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Add(float64(n))
}
