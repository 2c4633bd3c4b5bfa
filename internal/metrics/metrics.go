package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_ingested_total",
			Help: "Messages that completed the ingestion pipeline",
		},
		[]string{"route", "category"},
	)

	MessagesFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_flagged_total",
			Help: "Messages redacted by moderation",
		},
		[]string{"category"},
	)

	MessagesMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_malformed_total",
			Help: "Messages dropped for missing fields",
		},
		[]string{"route"},
	)

	MessagesUnmoderated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_unmoderated_total",
			Help: "File messages of a kind the provider cannot check",
		},
		[]string{"category"},
	)

	ModerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_moderation_failures_total",
			Help: "Moderation provider calls that failed",
		},
		[]string{"kind", "policy"},
	)

	ModerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_moderation_duration_seconds",
			Help:    "Moderation provider call latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	PersistenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_persistence_failures_total",
			Help: "Message inserts that failed",
		},
	)

	// Transport metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)

	DroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_dropped_frames_total",
			Help: "Outbound frames dropped because a client queue was full",
		},
	)
)
