package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the request pipeline, grounded on the
// promauto.NewCounterVec/NewHistogramVec usage in
// pkg/monitoring/metrics.go, scoped down to the operations spec §5
// actually names (requests, tile fetches, worker pool saturation).
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserver_requests_total",
			Help: "Total number of OGC requests handled",
		},
		[]string{"operation", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tileserver_request_duration_seconds",
			Help:    "Request handling duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"operation"},
	)

	TileFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tileserver_tile_fetches_total",
			Help: "Total number of tile reads from slab storage",
		},
		[]string{"result"},
	)

	WorkerPoolInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tileserver_worker_pool_in_flight",
			Help: "Number of requests currently occupying a worker",
		},
	)
)

// recordRequest updates the per-operation counter and duration histogram.
func recordRequest(operation, status string, d time.Duration) {
	RequestsTotal.WithLabelValues(operation, status).Inc()
	RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}
