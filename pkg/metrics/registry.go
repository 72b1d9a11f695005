// Package metrics provides Prometheus metrics for the checker.
//
// All metrics are optional - if not initialized, constructors return nil and
// callers fall back to no-op implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//	dev = device.Instrument(dev, metrics.NewDeviceMetrics())
//	res, err := pass2.Run(ctx, store, pass2.Options{Metrics: metrics.NewPass2Metrics(), ...})
//	_ = metrics.WriteTextfile("/var/lib/node_exporter/o2fsck.prom")
//
// A check is a batch job, so besides the optional /metrics server the
// registry can be written once at exit in the node_exporter textfile
// format.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry. Written once by
	// InitRegistry.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. Calling it again
// is a no-op.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes every registered metric to path in the text
// exposition format. The file is replaced atomically.
func WriteTextfile(path string) error {
	if !IsEnabled() {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := prometheus.WriteToTextfile(path, GetRegistry()); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
