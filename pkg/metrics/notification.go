package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NotificationMetrics provides observability for the event workflow:
// records appended to the event store and envelopes published to the broker.
//
// This interface is optional - leaving BusConfig.Metrics nil disables
// collection with zero overhead.
type NotificationMetrics interface {
	// RecordEvent records one notification appended to the event store.
	RecordEvent(opName, opType, objType string)

	// RecordPublish records one publish attempt with its duration and
	// outcome.
	RecordPublish(duration time.Duration, err error)
}

type notificationMetrics struct {
	eventsTotal     *prometheus.CounterVec
	publishTotal    *prometheus.CounterVec
	publishDuration prometheus.Histogram
}

// NewNotificationMetrics creates a new Prometheus-backed NotificationMetrics
// instance. Returns a no-op implementation if metrics are not enabled.
func NewNotificationMetrics() NotificationMetrics {
	if !IsEnabled() {
		return noopNotificationMetrics{}
	}

	reg := GetRegistry()

	return &notificationMetrics{
		eventsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "radium_events_recorded_total",
				Help: "Total number of notifications appended to the event store by classification",
			},
			[]string{"operation", "phase", "object"},
		),
		publishTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "radium_publish_total",
				Help: "Total number of broker publish attempts by status",
			},
			[]string{"status"},
		),
		publishDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "radium_publish_duration_seconds",
				Help: "Duration of broker publish attempts in seconds",
				Buckets: []float64{
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
		),
	}
}

func (m *notificationMetrics) RecordEvent(opName, opType, objType string) {
	m.eventsTotal.WithLabelValues(opName, opType, objType).Inc()
}

func (m *notificationMetrics) RecordPublish(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.publishTotal.WithLabelValues(status).Inc()
	m.publishDuration.Observe(duration.Seconds())
}

// noopNotificationMetrics is a no-op implementation of NotificationMetrics.
type noopNotificationMetrics struct{}

func (noopNotificationMetrics) RecordEvent(opName, opType, objType string)         {}
func (noopNotificationMetrics) RecordPublish(duration time.Duration, err error) {}
