package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records metadata for sync runs, labeled by source.
type SyncMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	records  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewSyncMetrics registers the sync run metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_run_success",
		Help: "Sync runs that finished without failed records.",
	}, []string{"source"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_run_failure",
		Help: "Sync runs that failed or finished partially.",
	}, []string{"source"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_processed",
		Help: "Mirror records created or updated by sync runs.",
	}, []string{"source"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_rejected",
		Help: "Sync attempts rejected because a run was already in flight.",
	}, []string{"source"})
	reg.MustRegister(duration, success, failure, records, rejected)
	return &SyncMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		records:  records,
		rejected: rejected,
	}
}

// ObserveDuration records how long a run for the source took.
func (m *SyncMetrics) ObserveDuration(source string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the source.
func (m *SyncMetrics) IncSuccess(source string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncFailure increments the failure counter for the source.
func (m *SyncMetrics) IncFailure(source string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(source)).Inc()
}

// AddRecords adds processed record counts for the source.
func (m *SyncMetrics) AddRecords(source string, count int) {
	if m == nil || m.records == nil || count <= 0 {
		return
	}
	m.records.WithLabelValues(normalizeLabel(source)).Add(float64(count))
}

// IncRejected increments the in-flight rejection counter for the source.
func (m *SyncMetrics) IncRejected(source string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(source)).Inc()
}

func normalizeLabel(source string) string {
	if source == "" {
		return "unknown"
	}
	return source
}
