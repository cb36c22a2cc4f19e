// Package metrics defines the process-wide Prometheus instruments and the
// /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by path and status class.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodtunes",
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"path", "status"})

	// RoutesTotal counts recommendation requests by which path served them.
	RoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodtunes",
		Name:      "routes_total",
		Help:      "Recommendation requests by serving path (content, semantic, fallback).",
	}, []string{"path"})

	// SearchDuration tracks engine search latency.
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moodtunes",
		Name:      "search_duration_seconds",
		Help:      "Engine search latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine"})

	// IngestedSongs counts songs accepted by the ingest pipeline.
	IngestedSongs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodtunes",
		Name:      "ingested_songs_total",
		Help:      "Songs accepted into the catalog.",
	})

	// IndexReloads counts hot reloads of persisted indices.
	IndexReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodtunes",
		Name:      "index_reloads_total",
		Help:      "Index bundle reloads by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
