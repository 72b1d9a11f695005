package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
)

// deviceMetrics is the Prometheus implementation of device.Metrics.
type deviceMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

var (
	deviceOnce     sync.Once
	deviceInstance *deviceMetrics
)

// NewDeviceMetrics returns the Prometheus-backed block device metrics of the
// global registry, or nil if metrics are not enabled. Every call returns the
// same collectors.
func NewDeviceMetrics() device.Metrics {
	if !IsEnabled() {
		return nil
	}
	deviceOnce.Do(func() {
		deviceInstance = newDeviceMetrics(GetRegistry())
	})
	return deviceInstance
}

func newDeviceMetrics(reg prometheus.Registerer) *deviceMetrics {
	return &deviceMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "o2fsck_device_operations_total",
				Help: "Block operations by type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "o2fsck_device_operation_duration_seconds",
				Help: "Duration of block operations in seconds",
				Buckets: []float64{
					0.0001, // 100us
					0.0005, // 500us
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"operation"},
		),
	}
}

func (m *deviceMetrics) ObserveOperation(op string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}
