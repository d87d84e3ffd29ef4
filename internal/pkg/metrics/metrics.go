// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "listmanager"

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// AuthFailures counts requests rejected by the bearer-token middleware.
	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Requests carrying a missing or incorrect authorization token",
		},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// ListOperations counts list CRUD outcomes.
	ListOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lists",
			Name:      "operations_total",
			Help:      "List create/update/delete/reset operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// SubscriptionEvents counts subscription lifecycle transitions.
	SubscriptionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "events_total",
			Help:      "Subscription lifecycle events by target channel",
		},
		[]string{"event", "target"},
	)

	// NotifyRequests counts calls to the notification provider.
	NotifyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "requests_total",
			Help:      "Notification provider calls by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// BulkRowsSent counts recipient rows handed to the provider's bulk API.
	BulkRowsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "bulk_rows_sent_total",
			Help:      "Recipient rows sent through bulk notifications",
		},
	)
)
