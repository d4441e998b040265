package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncMetrics holds all Prometheus metrics for the sync pipeline.
type SyncMetrics struct {
	filesCreated *prometheus.CounterVec
	filesSkipped *prometheus.CounterVec
	filesFailed  *prometheus.CounterVec
	syncDuration prometheus.Histogram
	geocodeCalls prometheus.Counter
}

// NewSyncMetrics creates and registers all sync pipeline metrics.
func NewSyncMetrics() *SyncMetrics {
	return &SyncMetrics{
		filesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_files_created_total",
				Help: "Total number of new image records created by sync runs",
			},
			[]string{"uploader"},
		),
		filesSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_files_skipped_total",
				Help: "Total number of files skipped because a record already existed",
			},
			[]string{"uploader"},
		),
		filesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_files_failed_total",
				Help: "Total number of files that failed during a sync run",
			},
			[]string{"uploader"},
		),
		syncDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sync_duration_seconds",
				Help:    "Duration of full sync runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		geocodeCalls: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sync_geocode_calls_total",
				Help: "Total number of reverse geocoding lookups issued",
			},
		),
	}
}

// ObserveRun records the aggregate outcome of one sync run.
func (m *SyncMetrics) ObserveRun(uploader string, created, skipped, failed int, elapsed time.Duration) {
	m.filesCreated.WithLabelValues(uploader).Add(float64(created))
	m.filesSkipped.WithLabelValues(uploader).Add(float64(skipped))
	m.filesFailed.WithLabelValues(uploader).Add(float64(failed))
	m.syncDuration.Observe(elapsed.Seconds())
}

// IncrementGeocodeCalls counts one reverse geocoding lookup.
func (m *SyncMetrics) IncrementGeocodeCalls() {
	m.geocodeCalls.Inc()
}
