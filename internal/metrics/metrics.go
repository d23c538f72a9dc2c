package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts tracks operation retries by final outcome
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_retry_attempts_total",
			Help: "Total number of operation retry attempts",
		},
		[]string{"outcome"},
	)

	// ConflictsResolved tracks stock conflicts by resolution strategy
	ConflictsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_conflicts_total",
			Help: "Total number of stock conflicts by resolution strategy",
		},
		[]string{"strategy"},
	)

	// SessionEvents tracks session lifecycle events
	SessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_session_events_total",
			Help: "Total number of session lifecycle events",
		},
		[]string{"event"},
	)

	// SessionRenewals tracks renewal attempts by result
	SessionRenewals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_session_renewals_total",
			Help: "Total number of session renewal attempts",
		},
		[]string{"result"},
	)

	// APIRequests tracks remote inventory service calls
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_api_requests_total",
			Help: "Total number of remote API requests",
		},
		[]string{"method", "status"},
	)

	// APILatency tracks remote call latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockpilot_api_latency_seconds",
			Help:    "Remote API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// SyncRuns tracks background sync runs by result
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_sync_runs_total",
			Help: "Total number of background sync runs",
		},
		[]string{"result"},
	)

	// AuthenticatedGauge reports whether this context currently holds a
	// valid session (1) or not (0)
	AuthenticatedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockpilot_session_authenticated",
			Help: "Whether the agent currently holds a valid session",
		},
	)
)
