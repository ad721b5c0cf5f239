package kernel

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Kernel's Prometheus instruments. A Kernel constructed
// without an explicit registry registers them against a fresh
// prometheus.NewRegistry() of its own; a registry shared between Kernels
// collides on the second registration.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	QueueLength    prometheus.Gauge
	ToolExecutions *prometheus.CounterVec
	SessionsTotal  *prometheus.CounterVec
}

// NewMetrics registers the Kernel's instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchkernel_active_sessions",
			Help: "Number of sessions currently running.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchkernel_queue_length",
			Help: "Number of activations waiting to be scheduled.",
		}),
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchkernel_tool_executions_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchkernel_sessions_total",
			Help: "Completed sessions by terminal status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.ActiveSessions, m.QueueLength, m.ToolExecutions, m.SessionsTotal)
	return m
}
