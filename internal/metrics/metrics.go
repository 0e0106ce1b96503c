// Package metrics defines the Prometheus instruments for the control plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket metrics
var (
	// ActiveConnections tracks currently admitted websocket connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Number of currently admitted websocket connections",
		},
	)

	// ConnectedUsers tracks distinct users with at least one connection
	ConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_users",
			Help: "Number of distinct users with at least one live connection",
		},
	)

	// HandshakeFailures tracks rejected websocket handshakes by reason
	HandshakeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_handshake_failures_total",
			Help: "Rejected websocket handshakes by reason",
		},
		[]string{"reason"},
	)
)

// Broadcast metrics
var (
	// BroadcastsTotal tracks dispatched events by type
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_total",
			Help: "Events handed to the dispatcher by event type",
		},
		[]string{"type"},
	)

	// BroadcastSendFailures tracks per-connection send failures during fan-out
	BroadcastSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_send_failures_total",
			Help: "Per-connection send failures during event fan-out",
		},
	)

	// PrunedConnections tracks connections removed after failed sends
	PrunedConnections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_pruned_connections_total",
			Help: "Connections pruned from the registry after a failed send",
		},
	)
)

// Task lifecycle metrics
var (
	// TaskTransitions tracks accepted task lifecycle transitions by action
	TaskTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transitions_total",
			Help: "Accepted task lifecycle transitions by action",
		},
		[]string{"action"},
	)

	// TaskRetryRejections tracks retry requests refused at the retry limit
	TaskRetryRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_retry_rejections_total",
			Help: "Retry requests rejected because the retry limit was reached",
		},
	)
)
