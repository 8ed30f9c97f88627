package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend API Metrics
var (
	// BackendRequestsTotal tracks backend API requests by endpoint and status
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total backend API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// BackendRequestDuration tracks backend API request latency in seconds
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	// BackendCircuitState tracks current backend circuit breaker state (0=closed, 1=half-open, 2=open)
	BackendCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backend_circuit_state",
			Help: "Current backend circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Live Channel Metrics
var (
	// LiveChannelOpens tracks live channel open attempts by result
	LiveChannelOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_channel_opens_total",
			Help: "Total live channel open attempts by result (success/error)",
		},
		[]string{"result"},
	)

	// LiveEventsTotal tracks live channel events by kind
	LiveEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_events_total",
			Help: "Total live channel events by kind (opened/message/ignored/error/closed)",
		},
		[]string{"kind"},
	)

	// LiveParseErrorsTotal tracks malformed socket payloads dropped
	LiveParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_parse_errors_total",
			Help: "Total malformed live channel payloads logged and dropped",
		},
	)
)

// Feed Metrics
var (
	// FeedSize tracks the current number of entries in the result feed
	FeedSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_entries",
			Help: "Current number of entries in the result feed",
		},
	)

	// FeedAppendsTotal tracks results appended from the live channel
	FeedAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_appends_total",
			Help: "Total results appended to the feed from the live channel",
		},
	)

	// FeedReplacesTotal tracks full feed replacements from the polling path
	FeedReplacesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_replaces_total",
			Help: "Total full feed replacements from the polling path",
		},
	)
)

// Session Metrics
var (
	// SessionTransitionsTotal tracks session state transitions
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total session state transitions by target state",
		},
		[]string{"state"},
	)

	// PollTicksTotal tracks polling fallback ticks executed
	PollTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poll_ticks_total",
			Help: "Total polling fallback ticks executed",
		},
	)

	// StaleResponsesDroppedTotal tracks late responses dropped by identity check
	StaleResponsesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stale_responses_dropped_total",
			Help: "Total late poll responses dropped because the session changed",
		},
	)
)

// Viewer Fan-Out Metrics
var (
	// ViewerConnectedClients tracks current number of attached dashboard viewers
	ViewerConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewer_connected_clients",
			Help: "Current number of attached dashboard viewer connections",
		},
	)

	// ViewerSlowClientsEvicted tracks slow viewers evicted due to full buffers
	ViewerSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewer_slow_clients_evicted_total",
			Help: "Total slow viewer connections evicted due to buffer full",
		},
	)

	// ViewerHubPanicsTotal tracks hub panic recoveries
	ViewerHubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewer_hub_panics_total",
			Help: "Total viewer hub panic recoveries",
		},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "go_version"},
	)
)
