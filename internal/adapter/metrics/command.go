package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommandMetrics tracks host commands passed through to Twitch.
// A nil *CommandMetrics records nothing.
type CommandMetrics struct {
	Commands       *prometheus.CounterVec
	ChatQueueDepth prometheus.Gauge
}

// NewCommandMetrics creates and registers command metrics on the given registry.
func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	m := &CommandMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total number of gateway commands, by command and result.",
		}, []string{"command", "result"}),
		ChatQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "chat_queue_depth",
			Help:      "Number of chat messages waiting for the rate limiter.",
		}),
	}

	reg.MustRegister(m.Commands, m.ChatQueueDepth)
	return m
}

func (m *CommandMetrics) Observe(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Commands.WithLabelValues(command, result).Inc()
}

func (m *CommandMetrics) SetChatQueueDepth(n int) {
	if m == nil {
		return
	}
	m.ChatQueueDepth.Set(float64(n))
}
