// Package observability exposes the service's Prometheus collectors.
// Collectors are package-level so every component records into the same
// default registry; the HTTP server serves them on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_feed_events_received_total",
		Help: "Raw notifications received from the database, per channel.",
	}, []string{"channel"})

	FeedDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_feed_decode_failures_total",
		Help: "Notifications dropped because the payload could not be decoded.",
	})

	FeedUnknownEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_feed_unknown_events_total",
		Help: "Notifications skipped because their kind or version is not understood.",
	})

	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_feed_reconnects_total",
		Help: "Listener connection attempts after a failure or connection loss.",
	})

	EventsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_events_dispatched_total",
		Help: "Domain events processed by the dispatcher.",
	})

	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_deliveries_total",
		Help: "Events placed into a session buffer.",
	})

	DeliveryEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_delivery_evictions_total",
		Help: "Events evicted from a slow session's buffer in favor of newer ones.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_sessions_active",
		Help: "Currently connected streaming sessions.",
	})

	SelfRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_self_rss_bytes",
		Help: "Resident memory of this process.",
	})

	SelfCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_self_cpu_percent",
		Help: "CPU usage of this process.",
	})
)
