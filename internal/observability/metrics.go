package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eminence_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MembershipToggles counts like/bookmark toggles by kind and resulting direction.
	MembershipToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_membership_toggles_total",
		Help: "Total like and bookmark toggles by kind and direction",
	}, []string{"kind", "direction"})

	// OptimisticOutcomes counts how optimistic toggles settled: confirmed as
	// shown, snapped to a different server state, or rolled back after a failure.
	OptimisticOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_optimistic_outcomes_total",
		Help: "Optimistic toggle outcomes by kind",
	}, []string{"kind", "outcome"})

	// BadgesGranted counts badges newly granted, by badge and source.
	BadgesGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_badges_granted_total",
		Help: "Total badges granted by badge id and source",
	}, []string{"badge", "source"})

	// NotificationsEmitted counts notification emission outcomes by type.
	NotificationsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_notifications_total",
		Help: "Notification emission outcomes by type",
	}, []string{"type", "outcome"})

	// PushJobsEnqueued counts push jobs written to the outbox.
	PushJobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_push_jobs_enqueued_total",
		Help: "Push jobs enqueued by kind",
	}, []string{"kind"})

	// SecondaryEffectFailures counts best-effort side effects that failed.
	SecondaryEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_secondary_effect_failures_total",
		Help: "Failed best-effort side effects by operation",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eminence_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// DigestRuns counts daily digest executions by outcome.
	DigestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eminence_digest_runs_total",
		Help: "Daily digest runs by outcome",
	}, []string{"outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
