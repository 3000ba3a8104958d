package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DispatchMetrics provides observability for dispatched commands.
//
// This interface is optional - passing nil to the dispatcher disables
// collection with zero overhead.
type DispatchMetrics interface {
	// RecordCommand records a completed command with its classification,
	// duration, and whether the command was accepted.
	RecordCommand(opName, objType string, duration time.Duration, ok bool)
}

type dispatchMetrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewDispatchMetrics creates a new Prometheus-backed DispatchMetrics
// instance. Returns a no-op implementation if metrics are not enabled.
func NewDispatchMetrics() DispatchMetrics {
	if !IsEnabled() {
		return noopDispatchMetrics{}
	}

	reg := GetRegistry()

	return &dispatchMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "radium_commands_total",
				Help: "Total number of dispatched commands by operation, object type, and status",
			},
			[]string{"operation", "object", "status"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "radium_command_duration_seconds",
				Help: "Duration of dispatched commands in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
				},
			},
			[]string{"operation", "object"},
		),
	}
}

func (m *dispatchMetrics) RecordCommand(opName, objType string, duration time.Duration, ok bool) {
	status := "accepted"
	if !ok {
		status = "rejected"
	}

	m.commandsTotal.WithLabelValues(opName, objType, status).Inc()
	m.commandDuration.WithLabelValues(opName, objType).Observe(duration.Seconds())
}

// noopDispatchMetrics is a no-op implementation of DispatchMetrics.
type noopDispatchMetrics struct{}

func (noopDispatchMetrics) RecordCommand(opName, objType string, duration time.Duration, ok bool) {}
