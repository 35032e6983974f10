package metrics

import "github.com/prometheus/client_golang/prometheus"

// DatabaseMetrics tracks journal queries. A nil *DatabaseMetrics records nothing.
type DatabaseMetrics struct {
	QueryDuration *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
	JournalPruned prometheus.Counter
}

// NewDatabaseMetrics creates and registers database metrics on the given registry.
func NewDatabaseMetrics(reg prometheus.Registerer) *DatabaseMetrics {
	m := &DatabaseMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds, by statement kind.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"query"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Total number of failed database queries, by statement kind.",
		}, []string{"query"}),
		JournalPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "journal_pruned_total",
			Help:      "Total number of journal rows removed by retention.",
		}),
	}

	reg.MustRegister(m.QueryDuration, m.Errors, m.JournalPruned)
	return m
}

func (m *DatabaseMetrics) ObserveQuery(query string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(query).Observe(seconds)
	if err != nil {
		m.Errors.WithLabelValues(query).Inc()
	}
}

func (m *DatabaseMetrics) Pruned(n int64) {
	if m == nil {
		return
	}
	m.JournalPruned.Add(float64(n))
}
