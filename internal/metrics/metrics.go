package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invoice_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_cache_lookups_total",
			Help: "Category cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_events_published_total",
			Help: "Domain events handed to the broker by type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	UploadsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_uploads_consumed_total",
			Help: "document.uploaded events processed by outcome.",
		},
		[]string{"outcome"},
	)
)
