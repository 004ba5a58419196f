package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and reindex Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devindex",
			Name:      "search_requests_total",
			Help:      "Total number of device searches",
		},
		[]string{"surface", "status"}, // status: "ok" / "invalid" / "error"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devindex",
			Name:      "search_duration_seconds",
			Help:      "Device search duration in seconds, translation and store call included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"surface"},
	)

	ReindexJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devindex",
			Name:      "reindex_jobs_total",
			Help:      "Reindex jobs by terminal outcome",
		},
		[]string{"outcome"}, // "indexed" / "removed" / "rejected" / "failed"
	)

	ReindexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devindex",
			Name:      "reindex_requests_total",
			Help:      "Reindex requests by admission result",
		},
		[]string{"result"}, // "queued" / "coalesced" / "invalid" / "unknown_service" / "error"
	)

	ReindexDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devindex",
			Name:      "reindex_duration_seconds",
			Help:      "Time from dequeue to terminal outcome",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	ReindexAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "devindex",
			Name:      "reindex_attempts",
			Help:      "Attempts needed per reindex job",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "devindex",
			Name:      "reindex_queue_depth",
			Help:      "Jobs waiting in the reindex queue",
		},
	)
)

var registerOnce sync.Once

// RegisterDomainMetrics registers the search and reindex metrics. Safe to call more than once.
func RegisterDomainMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchDuration,
			ReindexJobsTotal,
			ReindexRequestsTotal,
			ReindexDuration,
			ReindexAttempts,
			QueueDepth,
		)
	})
}
