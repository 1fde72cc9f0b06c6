package api

import (
	"fmt"
	"net/http"
)

// EnvVarError reports a missing credential. It is a setup error: it is
// raised before any network attempt and never retried.
type EnvVarError struct {
	// Var is the environment variable that should hold the credential.
	Var string

	// Instructions optionally tell the user how to obtain the credential.
	Instructions string
}

// Error implements the error interface.
func (e *EnvVarError) Error() string {
	msg := fmt.Sprintf("missing environment variable: %s", e.Var)
	if e.Instructions != "" {
		msg += ". " + e.Instructions
	}
	return msg
}

// TransportError wraps a connection-level failure that persisted past the
// retry ceiling.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError reports a non-retryable HTTP status. Body holds the
// raw response body for diagnostics.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// RetryLimitError reports a retryable status (429 or 5xx) that exhausted
// the attempt budget.
type RetryLimitError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *RetryLimitError) Error() string {
	return fmt.Sprintf("exceeded retry limit, last status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// StreamError is delivered through a ResponseStream when the stream fails
// after it has been handed to the caller: malformed framing, idle timeout,
// close without completion, or an undecodable response envelope.
type StreamError struct {
	Message string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return "stream error: " + e.Message
}

// NewStreamError creates a StreamError with a formatted message.
func NewStreamError(format string, args ...any) *StreamError {
	return &StreamError{Message: fmt.Sprintf(format, args...)}
}

// IsRetryableStatus reports whether an HTTP status is transient: 429 or any 5xx.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
