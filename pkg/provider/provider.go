package provider

import (
	"context"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
)

// Streamer starts one model turn against a backend.
//
// Stream returns once the backend accepted the request (or the attempt
// budget is spent). Setup errors, transport failures, and HTTP status
// errors are returned directly; failures after that point arrive as the
// final element of the returned stream. The returned stream must be
// closed by the caller.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Streamer interface {
	Stream(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error)
}

// StreamerFunc adapts a function to the Streamer interface.
type StreamerFunc func(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error)

// Stream calls f(ctx, prompt).
func (f StreamerFunc) Stream(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error) {
	return f(ctx, prompt)
}
