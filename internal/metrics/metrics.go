// Package metrics holds the Prometheus collectors for the service. All
// collectors register on the default registry; the server exposes them
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks open WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cardroom",
		Name:      "active_connections",
		Help:      "Number of open WebSocket connections.",
	})

	// ActiveRooms tracks rooms currently registered.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cardroom",
		Name:      "active_rooms",
		Help:      "Number of live rooms.",
	})

	// HandsPlayed counts hands completed across all rooms.
	HandsPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cardroom",
		Name:      "hands_played_total",
		Help:      "Total hands completed.",
	})

	// Intents counts inbound intents by message type.
	Intents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cardroom",
		Name:      "intents_total",
		Help:      "Inbound intents by type.",
	}, []string{"type"})

	// Errors counts error replies by code.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cardroom",
		Name:      "errors_total",
		Help:      "Error replies by code.",
	}, []string{"code"})

	// DroppedEvents counts events discarded because a recipient's send
	// buffer was full.
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cardroom",
		Name:      "dropped_events_total",
		Help:      "Outbound events dropped for slow or gone recipients.",
	})
)
