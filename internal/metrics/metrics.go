// Package metrics provides Prometheus metrics for the messaging service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesAppended counts messages accepted by the store.
	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_messages_appended_total",
			Help: "Total number of chat messages appended",
		},
	)

	// DeliveryTransitions counts messages moved to a later delivery state.
	DeliveryTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_delivery_transitions_total",
			Help: "Total number of messages advanced to a delivery state",
		},
		[]string{"to_state"},
	)

	// ActiveChatSessions tracks conversation views currently live.
	ActiveChatSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_active_chat_sessions",
			Help: "Number of currently open chat sessions",
		},
	)

	CallsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_calls_created_total",
			Help: "Total number of call sessions created",
		},
	)

	CallsAnswered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_calls_answered_total",
			Help: "Total number of call sessions answered",
		},
	)

	// CallsEnded counts deleted call sessions by reason (hangup, swept).
	CallsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_calls_ended_total",
			Help: "Total number of call sessions deleted",
		},
		[]string{"reason"},
	)

	// SweepDuration tracks the duration of orphan call sweeps.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campus_call_sweep_duration_seconds",
			Help:    "Duration of orphaned call session sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SocketConnections tracks connected WebSocket clients.
	SocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_socket_connections",
			Help: "Number of connected WebSocket clients",
		},
	)

	// RateLimited counts inbound socket events dropped by the rate limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_socket_rate_limited_total",
			Help: "Total number of inbound socket events rejected by rate limiting",
		},
	)
)

// RecordDelivery records n messages advanced to state.
func RecordDelivery(state string, n int64) {
	if n > 0 {
		DeliveryTransitions.WithLabelValues(state).Add(float64(n))
	}
}

// RecordChatOpened increments the live session gauge.
func RecordChatOpened() {
	ActiveChatSessions.Inc()
}

// RecordChatClosed decrements the live session gauge.
func RecordChatClosed() {
	ActiveChatSessions.Dec()
}

// RecordCallEnded counts a deleted call session.
func RecordCallEnded(reason string) {
	CallsEnded.WithLabelValues(reason).Inc()
}
