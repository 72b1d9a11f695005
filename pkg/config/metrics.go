package config

import (
	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/metrics"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/pass2"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled or no port)
	Server *metrics.Server

	// Pass2 collects directory pass metrics (nil if disabled, the pass uses a no-op)
	Pass2 pass2.Metrics

	// Device collects block I/O metrics (nil if disabled, the device is left unwrapped)
	Device device.Metrics

	// Textfile is where the final metrics are written (empty if none)
	Textfile string
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server when a port is configured
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled every field is zero.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	result := &MetricsResult{
		Pass2:    metrics.NewPass2Metrics(),
		Device:   metrics.NewDeviceMetrics(),
		Textfile: cfg.Metrics.Textfile,
	}

	if cfg.Metrics.Port > 0 {
		result.Server = metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Metrics.Port,
		})
	}

	return result
}
