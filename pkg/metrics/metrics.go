// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks view API request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_api_request_duration_seconds",
			Help:    "View API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total view API requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_api_requests_total",
			Help: "Total view API requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendRequestDuration tracks calls to the messaging backend.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "outcome"},
	)

	// PollCyclesTotal counts scheduled task cycles by result.
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_poll_cycles_total",
			Help: "Scheduled poll cycles by task and result",
		},
		[]string{"task", "result"},
	)

	// StaleResponsesTotal counts responses discarded because a newer request was issued.
	StaleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_stale_responses_total",
			Help: "Backend responses discarded as superseded",
		},
		[]string{"resource"},
	)

	// UnreadMessages mirrors the last known unread message total.
	UnreadMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_unread_messages",
			Help: "Last known unread message count",
		},
	)

	// FriendRequests mirrors the last known pending friend request count.
	FriendRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_friend_requests",
			Help: "Last known pending friend request count",
		},
	)

	// NotificationsTotal counts transient notifications shown to the viewer.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_notifications_total",
			Help: "Transient notifications shown",
		},
		[]string{"kind"},
	)

	// BreakerState reports the backend circuit breaker state (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_backend_breaker_state",
			Help: "Backend circuit breaker state",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// BridgePublishTotal counts events forwarded to NATS.
	BridgePublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_bridge_publish_total",
			Help: "Events forwarded to NATS by type and result",
		},
		[]string{"type", "result"},
	)
)

// RecordRequest records metrics for a view API request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBackend records metrics for a backend call.
func RecordBackend(endpoint, outcome string, duration float64) {
	BackendRequestDuration.WithLabelValues(endpoint, outcome).Observe(duration)
}

// RecordPoll records a scheduled cycle result.
func RecordPoll(task, result string) {
	PollCyclesTotal.WithLabelValues(task, result).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
