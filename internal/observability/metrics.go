// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "istancool_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "istancool_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "istancool_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostTransitions counts moderation transitions by resulting status.
	PostTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "istancool_post_transitions_total",
		Help: "Post moderation transitions by resulting status",
	}, []string{"status"})

	// SlugCollisions counts suffixed slugs and insert-time retries per namespace.
	SlugCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "istancool_slug_collisions_total",
		Help: "Slug collisions by namespace and stage (suffix, insert_retry)",
	}, []string{"namespace", "stage"})

	// MediaUploads counts image uploads by outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "istancool_media_uploads_total",
		Help: "Image uploads by outcome",
	}, []string{"outcome"})

	// MediaUploadLatency records processing plus store latency of one image.
	MediaUploadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "istancool_media_upload_latency_seconds",
		Help:    "Image processing and upload latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// WebSocketConnectionsTotal is the gauge of open moderation feed sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "istancool_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "istancool_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
