// Package metrics holds the Prometheus collectors of the newsroom service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "newsroom"

// Rundown operation metrics.
var (
	// RundownOpsTotal counts service operations by name and outcome.
	RundownOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rundown_operations_total",
			Help:      "Rundown service operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// RundownOpDuration measures service operations in seconds.
	RundownOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rundown_operation_duration_seconds",
			Help:      "Duration of rundown service operations",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"op"},
	)

	// AddItemRetries counts addItem attempts repeated after a conflict.
	AddItemRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "add_item_retries_total",
			Help:      "Append attempts retried after a position conflict",
		},
	)
)

// Integration metrics.
var (
	// EventsPublishedTotal counts change events by outcome (ok, error).
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Rundown change events handed to the broker",
		},
		[]string{"outcome"},
	)

	// WireEntriesTotal counts feed entries by result (created, duplicate, skipped).
	WireEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wire_entries_total",
			Help:      "Wire feed entries processed by result",
		},
		[]string{"result"},
	)
)

// HTTP metrics.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RundownOpsTotal,
		RundownOpDuration,
		AddItemRetries,
		EventsPublishedTotal,
		WireEntriesTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitedTotal,
	)
}

// ObserveOp records one finished service operation.
func ObserveOp(op, outcome string, started time.Time) {
	RundownOpsTotal.WithLabelValues(op, outcome).Inc()
	RundownOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
