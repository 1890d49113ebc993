// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogRequests counts upstream catalog calls by endpoint and outcome.
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelpicks_catalog_requests_total",
		Help: "Upstream catalog requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// CatalogLatency observes upstream catalog latency in seconds.
	CatalogLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelpicks_catalog_request_duration_seconds",
		Help:    "Upstream catalog request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// CatalogCacheHits counts responses served from the proxy cache.
	CatalogCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelpicks_catalog_cache_hits_total",
		Help: "Catalog responses served from cache",
	}, []string{"endpoint"})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reelpicks_circuit_breaker_state",
		Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	// StoreSaveFailures counts collection writes that did not persist.
	StoreSaveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelpicks_store_save_failures_total",
		Help: "Persisted collection writes that failed",
	}, []string{"key"})

	// StoreSelfHeals counts loads that dropped invalid entries.
	StoreSelfHeals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelpicks_store_self_heals_total",
		Help: "Collection loads that dropped invalid entries",
	}, []string{"key"})

	// RemindersTriggered counts fired reminders.
	RemindersTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelpicks_reminders_triggered_total",
		Help: "Reminders fired by the scheduler",
	})

	// SearchSessions tracks open websocket search sessions.
	SearchSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelpicks_search_sessions",
		Help: "Open websocket search sessions",
	})
)
