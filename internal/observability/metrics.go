package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus instruments for the sync and alert
// pipelines.
type Metrics struct {
	FeedSyncs           *prometheus.CounterVec
	ApproachesProcessed prometheus.Counter
	CacheFallbacks      prometheus.Counter
	AlertsTriggered     *prometheus.CounterVec
	SyncDuration        prometheus.Histogram
	WorkerRuns          *prometheus.CounterVec
}

// NewMetrics creates and registers all instruments with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosmic_watch",
			Name:      "feed_syncs_total",
			Help:      "Feed sync invocations by outcome status.",
		}, []string{"status"}),
		ApproachesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cosmic_watch",
			Name:      "approaches_processed_total",
			Help:      "Close approach records upserted and scored.",
		}),
		CacheFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cosmic_watch",
			Name:      "cache_fallbacks_total",
			Help:      "Sync attempts served from the durable NASA API cache.",
		}),
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosmic_watch",
			Name:      "alerts_triggered_total",
			Help:      "Alerts created, by alert type.",
		}, []string{"type"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cosmic_watch",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete feed sync batch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		WorkerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosmic_watch",
			Name:      "worker_runs_total",
			Help:      "Background worker ticks by worker name and outcome.",
		}, []string{"worker", "outcome"}),
	}

	prometheus.MustRegister(
		m.FeedSyncs,
		m.ApproachesProcessed,
		m.CacheFallbacks,
		m.AlertsTriggered,
		m.SyncDuration,
		m.WorkerRuns,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry, avoiding "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedSyncs:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "cosmic_watch", Name: "feed_syncs_total"}, []string{"status"}),
		ApproachesProcessed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cosmic_watch", Name: "approaches_processed_total"}),
		CacheFallbacks:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cosmic_watch", Name: "cache_fallbacks_total"}),
		AlertsTriggered:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "cosmic_watch", Name: "alerts_triggered_total"}, []string{"type"}),
		SyncDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "cosmic_watch", Name: "sync_duration_seconds"}),
		WorkerRuns:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "cosmic_watch", Name: "worker_runs_total"}, []string{"worker", "outcome"}),
	}
}
