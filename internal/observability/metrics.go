package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clubhouse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CommentMutations counts comment writes by operation and entity kind.
	CommentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_comment_mutations_total",
		Help: "Comment create/update/delete operations",
	}, []string{"operation", "entity_kind"})

	// ThreadCacheResults counts thread page cache lookups by result.
	ThreadCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_thread_cache_results_total",
		Help: "Thread page cache lookups by result (hit, miss, error, stale)",
	}, []string{"result"})

	// ThreadPageLatency records how long assembling a thread page takes.
	ThreadPageLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clubhouse_thread_page_seconds",
		Help:    "Thread page assembly latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// InteractionToggles counts like/bookmark toggles by namespace and result.
	InteractionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_interaction_toggles_total",
		Help: "Like and bookmark toggles by namespace and result",
	}, []string{"namespace", "result"})

	// ChangeEvents counts comment change events seen by the subscriber.
	ChangeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_comment_change_events_total",
		Help: "Comment change events received from the feed",
	}, []string{"type"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clubhouse_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_websocket_backpressure_drops_total",
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
