package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/huangsam/repolens/schema"
)

// Metrics holds the Prometheus collectors of one Orchestrator.
type Metrics struct {
	JobsTotal     *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	QueueRunning  prometheus.Gauge
	QueuePending  prometheus.Gauge
	IndexSize     prometheus.Gauge
	EventsDropped prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors, which keeps tests isolated.
//
// Metrics:
//   - repolens_jobs_total{outcome} - analyses by terminal outcome
//   - repolens_cache_requests_total{result} - hit, miss or joined
//   - repolens_scan_duration_seconds - scanner wall time
//   - repolens_queue_running / repolens_queue_pending - queue depth
//   - repolens_index_size - indexed repositories
//   - repolens_events_dropped_total - progress events dropped for slow subscribers
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repolens_jobs_total",
				Help: "Total number of analysis jobs by outcome",
			},
			[]string{"outcome"}, // "completed", "failed", "cancelled", "timeout", "storage_failed"
		),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repolens_cache_requests_total",
				Help: "Total number of result cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss", "joined"
		),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "repolens_scan_duration_seconds",
			Help:    "Duration of repository scans in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		QueueRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "repolens_queue_running",
			Help: "Number of analysis jobs currently running",
		}),
		QueuePending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "repolens_queue_pending",
			Help: "Number of analysis jobs waiting for a worker",
		}),
		IndexSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "repolens_index_size",
			Help: "Number of repositories in the index",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "repolens_events_dropped_total",
			Help: "Total number of progress events dropped because a subscriber was full",
		}),
	}
}

// outcomeOf maps a job error to its outcome label.
func outcomeOf(kind schema.ErrorKind) string {
	switch kind {
	case "":
		return "completed"
	case schema.ScanCancelled:
		return "cancelled"
	case schema.ScanTimeout:
		return "timeout"
	case schema.StorageFailed:
		return "storage_failed"
	default:
		return "failed"
	}
}
