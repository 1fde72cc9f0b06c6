// Package observability provides Prometheus metrics and HTTP instrumentation
// for the modelstream client.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for model backend latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Outcome labels for RequestAttemptsTotal.
const (
	AttemptSuccess         = "success"
	AttemptTransportError  = "transport_error"
	AttemptRetryableStatus = "retryable_status"
	AttemptFatalStatus     = "fatal_status"
)

// Outcome labels for StreamsTotal.
const (
	StreamCompleted   = "completed"
	StreamFailed      = "stream_error"
	StreamIdleTimeout = "idle_timeout"
	StreamCancelled   = "cancelled"
)

var (
	// RequestAttemptsTotal counts every outbound attempt by wire API and outcome.
	RequestAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelstream_request_attempts_total",
			Help: "Outbound request attempts",
		},
		[]string{"wire_api", "outcome"},
	)

	// BackoffSeconds records the delay slept before each retry.
	BackoffSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelstream_backoff_seconds",
			Help:    "Delay before a retried attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"wire_api", "source"},
	)

	// SkippedFramesTotal counts incremental frames or items dropped because
	// they could not be decoded or were not recognized.
	SkippedFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelstream_skipped_frames_total",
			Help: "Frames skipped by stream interpreters",
		},
		[]string{"wire_api", "reason"},
	)

	// StreamsTotal counts finished response streams by outcome.
	StreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelstream_streams_total",
			Help: "Finished response streams",
		},
		[]string{"wire_api", "outcome"},
	)

	// ActiveStreams tracks producer goroutines currently running.
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelstream_streams_active",
			Help: "Active response streams",
		},
	)

	// BackendRequestsTotal counts HTTP round trips by method and status class.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelstream_backend_requests_total",
			Help: "Backend HTTP round trips",
		},
		[]string{"method", "status"},
	)

	// BackendLatency records time to response headers.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelstream_backend_latency_seconds",
			Help:    "Backend time to response headers",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestAttemptsTotal,
		BackoffSeconds,
		SkippedFramesTotal,
		StreamsTotal,
		ActiveStreams,
		BackendRequestsTotal,
		BackendLatency,
	)
}
