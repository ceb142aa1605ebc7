package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collab_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Presence metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_active_connections",
			Help: "Currently registered websocket connections",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_active_rooms",
			Help: "Rooms with at least one member",
		},
	)

	RoomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_room_joins_total",
			Help: "Total room joins",
		},
		[]string{"kind"}, // "join" or "reconnect"
	)

	RoomLeaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_room_leaves_total",
			Help: "Total room leaves, explicit or by disconnect",
		},
	)

	LeaderChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_leader_changes_total",
			Help: "Total room leadership transfers",
		},
	)

	ChatMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_chat_messages_total",
			Help: "Total chat messages accepted into history",
		},
	)

	// Fan-out metrics
	FramesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_frames_delivered_total",
			Help: "Outbound frames queued to a client",
		},
		[]string{"event"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_frames_dropped_total",
			Help: "Outbound frames dropped because the client was gone or its queue was full",
		},
		[]string{"event"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_rate_limit_hits_total",
			Help: "Inbound websocket messages rejected by the rate limiter",
		},
	)

	// Upload metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_uploads_total",
			Help: "Document uploads by outcome",
		},
		[]string{"outcome"}, // "stored", "rejected" or "failed"
	)
)

// FanoutObserver records hub delivery outcomes.
type FanoutObserver struct{}

// MessageDelivered counts a queued frame.
func (FanoutObserver) MessageDelivered(event string) {
	FramesDelivered.WithLabelValues(event).Inc()
}

// MessageDropped counts a dropped frame.
func (FanoutObserver) MessageDropped(event string) {
	FramesDropped.WithLabelValues(event).Inc()
}
