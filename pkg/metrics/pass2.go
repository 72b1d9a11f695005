package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/pass2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
)

// pass2Metrics is the Prometheus implementation of pass2.Metrics.
type pass2Metrics struct {
	fixesTotal      *prometheus.CounterVec
	blocksTotal     *prometheus.CounterVec
	direntsTotal    prometheus.Counter
	duplicateBlocks prometheus.Counter
	runDuration     prometheus.Histogram
	runsTotal       *prometheus.CounterVec
	lastRun         prometheus.Gauge
}

// NewPass2Metrics creates Prometheus-backed directory pass metrics.
//
// Returns nil if metrics are not enabled, which makes the pass use its
// no-op implementation.
//
// Counters live for the whole process: repeated runs share one set.
func NewPass2Metrics() pass2.Metrics {
	if !IsEnabled() {
		return nil
	}
	pass2Once.Do(func() {
		pass2Instance = newPass2Metrics(GetRegistry())
	})
	return pass2Instance
}

var (
	pass2Once     sync.Once
	pass2Instance *pass2Metrics
)

func newPass2Metrics(reg prometheus.Registerer) *pass2Metrics {
	return &pass2Metrics{
		fixesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "o2fsck_pass2_problems_total",
				Help: "Directory problems found, by kind and whether they were fixed",
			},
			[]string{"kind", "answer"},
		),
		blocksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "o2fsck_pass2_blocks_total",
				Help: "Directory blocks handled, by outcome",
			},
			[]string{"outcome"},
		),
		direntsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "o2fsck_pass2_dirents_total",
				Help: "Directory entries walked",
			},
		),
		duplicateBlocks: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "o2fsck_pass2_duplicate_blocks_total",
				Help: "Directory blocks holding duplicate names",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "o2fsck_pass2_duration_seconds",
				Help:    "Duration of directory pass runs",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
			},
		),
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "o2fsck_pass2_runs_total",
				Help: "Directory pass runs, by status",
			},
			[]string{"status"},
		),
		lastRun: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "o2fsck_pass2_last_run_timestamp_seconds",
				Help: "Unix time the last directory pass finished",
			},
		),
	}
}

func (m *pass2Metrics) RecordFix(kind problem.Kind, fixed bool) {
	answer := "no"
	if fixed {
		answer = "yes"
	}
	m.fixesTotal.WithLabelValues(kind.String(), answer).Inc()
}

func (m *pass2Metrics) ObserveBlock(outcome string) {
	m.blocksTotal.WithLabelValues(outcome).Inc()
}

func (m *pass2Metrics) ObserveDirents(n int) {
	m.direntsTotal.Add(float64(n))
}

func (m *pass2Metrics) ObserveDuplicate() {
	m.duplicateBlocks.Inc()
}

func (m *pass2Metrics) ObserveRun(d time.Duration, aborted bool) {
	status := "success"
	if aborted {
		status = "aborted"
	}
	m.runDuration.Observe(d.Seconds())
	m.runsTotal.WithLabelValues(status).Inc()
	m.lastRun.SetToCurrentTime()
}
