// Package metrics exposes the proxy's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry-level metrics, registered against the default Prometheus
// registry at package init so /metrics needs no further wiring beyond
// mounting promhttp.Handler().
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2a_proxy_requests_total",
		Help: "Total HTTP requests handled by the proxy, by route and status class.",
	}, []string{"route", "status_class"})

	RouteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "a2a_proxy_route_duration_seconds",
		Help:    "Time spent dispatching a routed call, by locality (local/remote).",
		Buckets: prometheus.DefBuckets,
	}, []string{"locality"})

	BusMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2a_proxy_bus_messages_published_total",
		Help: "Messages published onto the bus, by message type.",
	}, []string{"message_type"})

	BusMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2a_proxy_bus_messages_received_total",
		Help: "Messages received off the bus, by message type and outcome.",
	}, []string{"message_type", "outcome"})

	BusReceiveRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2a_proxy_bus_receive_restarts_total",
		Help: "Supervised receive loop restarts, by subscription.",
	}, []string{"subscription"})

	PendingCorrelations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "a2a_proxy_pending_correlations",
		Help: "Number of requests currently awaiting a bus response.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "a2a_proxy_active_sessions",
		Help: "Number of live (non-expired) application sessions.",
	})

	RegisteredAgents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "a2a_proxy_registered_agents",
		Help: "Number of agents known to the registry, by group.",
	}, []string{"group"})
)
