package config

import (
	"github.com/radium-data/radium/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from
// configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Dispatch collects command metrics (never nil, no-op if disabled)
	Dispatch metrics.DispatchMetrics

	// Notification collects event workflow metrics (never nil, no-op if
	// disabled)
	Notification metrics.NotificationMetrics
}

// InitializeMetrics creates and initializes all metrics components based on
// configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Server:       nil,
			Dispatch:     metrics.NewDispatchMetrics(),
			Notification: metrics.NewNotificationMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:       server,
		Dispatch:     metrics.NewDispatchMetrics(),
		Notification: metrics.NewNotificationMetrics(),
	}
}
