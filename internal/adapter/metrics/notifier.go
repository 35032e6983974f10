package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotifierMetrics tracks the outbound envelope queue and its sinks.
// A nil *NotifierMetrics records nothing.
type NotifierMetrics struct {
	QueueDepth prometheus.Gauge
	Dropped    prometheus.Counter
	Deliveries *prometheus.CounterVec
}

// NewNotifierMetrics creates and registers notifier metrics on the given registry.
func NewNotifierMetrics(reg prometheus.Registerer) *NotifierMetrics {
	m := &NotifierMetrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "queue_depth",
			Help:      "Number of envelopes waiting for delivery.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "dropped_total",
			Help:      "Total number of envelopes dropped because the queue stayed full.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "deliveries_total",
			Help:      "Total number of sink deliveries, by sink and result.",
		}, []string{"sink", "result"}),
	}

	reg.MustRegister(m.QueueDepth, m.Dropped, m.Deliveries)
	return m
}

func (m *NotifierMetrics) SetDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *NotifierMetrics) Drop() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *NotifierMetrics) Delivered(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Deliveries.WithLabelValues(sink, result).Inc()
}
