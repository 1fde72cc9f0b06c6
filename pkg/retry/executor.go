// Package retry issues outbound backend requests with bounded retries.
//
// The [Executor] classifies every attempt: connection failures and
// transient statuses (429, 5xx) are retried with backoff up to a ceiling,
// any other non-2xx status fails at once, and a 2xx response is handed back
// to the caller open so a protocol-specific interpreter can stream it. No
// retry happens once a response has been handed back.
package retry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
)

// DefaultMaxRetries is the retry ceiling when none is configured.
const DefaultMaxRetries = 4

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 1 << 20

// RequestFunc builds a fresh request for one attempt. It is called once
// per attempt so request bodies can be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Executor sends requests with retry and backoff. An Executor holds no
// per-request state and is safe for concurrent use.
type Executor struct {
	// Client is shared by all requests.
	Client *http.Client

	// MaxRetries is the retry ceiling: attempt MaxRetries+1 is the last.
	MaxRetries int

	// Policy computes the delay between attempts.
	Policy Policy

	// Label identifies the wire API in logs and metrics.
	Label string

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs the attempt loop and returns the first 2xx response with its body
// open; the caller must close it. Errors are *api.TransportError,
// *api.UnexpectedStatusError, *api.RetryLimitError, or the context error
// when ctx is cancelled.
func (e *Executor) Do(ctx context.Context, newRequest RequestFunc) (*http.Response, error) {
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	sleep := e.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	attempt := 0
	for {
		attempt++

		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: create request: %w", e.Label, err)
		}

		debug.Log(debug.Retry, "attempt", "wire_api", e.Label, "attempt", attempt, "url", req.URL.String())

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			observability.RequestAttemptsTotal.WithLabelValues(e.Label, observability.AttemptTransportError).Inc()
			if attempt > e.MaxRetries {
				return nil, &api.TransportError{Err: err}
			}
			delay := e.Policy.Delay(attempt)
			e.logRetry(attempt, delay, "computed", "error", err)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			observability.RequestAttemptsTotal.WithLabelValues(e.Label, observability.AttemptSuccess).Inc()
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		if !api.IsRetryableStatus(resp.StatusCode) {
			observability.RequestAttemptsTotal.WithLabelValues(e.Label, observability.AttemptFatalStatus).Inc()
			return nil, &api.UnexpectedStatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		observability.RequestAttemptsTotal.WithLabelValues(e.Label, observability.AttemptRetryableStatus).Inc()
		if attempt > e.MaxRetries {
			return nil, &api.RetryLimitError{StatusCode: resp.StatusCode}
		}

		delay, source := e.Policy.Delay(attempt), "computed"
		if hint, ok := RetryAfter(resp.Header); ok {
			delay, source = hint, "retry_after"
		}
		e.logRetry(attempt, delay, source, "status", resp.StatusCode)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (e *Executor) logRetry(attempt int, delay time.Duration, source string, args ...any) {
	observability.BackoffSeconds.WithLabelValues(e.Label, source).Observe(delay.Seconds())
	debug.Log(debug.Retry, "retrying request",
		append([]any{"wire_api", e.Label, "attempt", attempt, "delay", delay, "source", source}, args...)...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
