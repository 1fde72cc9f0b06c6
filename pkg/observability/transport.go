package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InstrumentedTransport wraps an http.RoundTripper to record backend metrics.
//
// It captures:
//   - modelstream_backend_requests_total (counter): per round trip with method and status class
//   - modelstream_backend_latency_seconds (histogram): time until response headers arrive
//
// Connection failures are recorded with status "error".
type InstrumentedTransport struct {
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	BackendLatency.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode/100) + "xx"
	}
	BackendRequestsTotal.WithLabelValues(req.Method, status).Inc()
	return resp, err
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
