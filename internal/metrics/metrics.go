// Package metrics provides Prometheus metrics for limitedbot.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limitedbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "limitedbot_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Price cache metrics
	CacheRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limitedbot_value_refreshes_total",
			Help: "Value snapshot refresh attempts by result (ok, fetch_error, empty, lock_held)",
		},
		[]string{"result"},
	)

	CachePersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "limitedbot_value_persist_errors_total",
			Help: "Failed writes of the value snapshot file",
		},
	)

	SnapshotItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "limitedbot_value_snapshot_items",
			Help: "Number of rows in the in-memory value snapshot",
		},
	)

	SnapshotFetchedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "limitedbot_value_snapshot_fetched_timestamp_seconds",
			Help: "Unix time the in-memory value snapshot was fetched",
		},
	)

	ValueFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "limitedbot_value_fetch_duration_seconds",
			Help:    "Time taken by the upstream itemdetails fetch",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	// Search metrics
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limitedbot_searches_total",
			Help: "Trade searches by mode and result (hit, miss)",
		},
		[]string{"mode", "result"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "limitedbot_search_duration_seconds",
			Help:    "Time spent in one trade search",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	// Scanner metrics
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limitedbot_scans_total",
			Help: "Counterparty scans by outcome",
		},
		[]string{"outcome"},
	)

	CounterpartyQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "limitedbot_counterparty_queue_size",
			Help: "Counterparties discovered but not yet scanned",
		},
	)

	TradesExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limitedbot_trades_executed_total",
			Help: "Trades handed to the executor by result (ok, error, duplicate, rate_limited)",
		},
		[]string{"result"},
	)

	// Upstream API metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limitedbot_upstream_requests_total",
			Help: "Requests made to Rolimons and Roblox by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)
