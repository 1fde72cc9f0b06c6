// Package client provides ModelClient, the single entry point for
// streaming one model turn. It selects the backend pipeline from the
// active provider's wire API and always returns a ResponseStream with the
// same shape: output items followed by one Completed event or one error.
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
	"github.com/rhuss/modelstream/pkg/provider"
	"github.com/rhuss/modelstream/pkg/provider/chat"
	"github.com/rhuss/modelstream/pkg/provider/gemini"
	"github.com/rhuss/modelstream/pkg/provider/responses"
	"github.com/rhuss/modelstream/pkg/retry"
)

// ModelClient streams turns from the configured provider. It is safe for
// concurrent use; each Stream call is independent.
type ModelClient struct {
	model    string
	provider config.ProviderInfo
	streamer provider.Streamer
}

// Option configures a ModelClient.
type Option func(*options)

type options struct {
	httpClient *http.Client
	policy     *retry.Policy
}

// WithHTTPClient sets the HTTP client shared by all requests. Its
// transport is wrapped with metrics instrumentation.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithPolicy overrides the retry backoff policy.
func WithPolicy(p retry.Policy) Option {
	return func(o *options) { o.policy = &p }
}

// New creates a ModelClient for cfg's active provider. An unknown provider
// or wire API is a setup error.
func New(cfg *config.Config, opts ...Option) (*ModelClient, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	info, ok := cfg.ActiveProvider()
	if !ok {
		return nil, fmt.Errorf("client: provider %q is not configured", cfg.Provider)
	}

	httpClient := &http.Client{}
	if o.httpClient != nil {
		c := *o.httpClient
		httpClient = &c
	}
	httpClient.Transport = &observability.InstrumentedTransport{Base: httpClient.Transport}

	policy := retry.DefaultPolicy()
	if o.policy != nil {
		policy = *o.policy
	}

	exec := &retry.Executor{
		Client:     httpClient,
		MaxRetries: cfg.RequestMaxRetries,
		Policy:     policy,
		Label:      string(info.WireAPI),
	}

	var streamer provider.Streamer
	switch info.WireAPI {
	case config.WireResponses:
		streamer = responses.New(responses.Config{
			Provider:    info,
			Model:       cfg.Model,
			Reasoning:   cfg.Reasoning,
			IdleTimeout: cfg.StreamIdleTimeout,
			Fixture:     cfg.SSEFixture,
		}, exec)

	case config.WireChat:
		streamer = aggregated(chat.New(chat.Config{
			Provider:    info,
			Model:       cfg.Model,
			IdleTimeout: cfg.StreamIdleTimeout,
		}, exec))

	case config.WireGemini:
		streamer = gemini.New(gemini.Config{
			Provider: info,
			Model:    cfg.Model,
		}, exec)

	default:
		return nil, fmt.Errorf("client: provider %q has unsupported wire_api %q", cfg.Provider, info.WireAPI)
	}

	debug.Log(debug.Config, "model client ready", "provider", info.Name, "wire_api", info.WireAPI,
		"model", cfg.Model, "max_retries", cfg.RequestMaxRetries, "idle_timeout", cfg.StreamIdleTimeout)

	return &ModelClient{model: cfg.Model, provider: info, streamer: streamer}, nil
}

// Stream starts one turn. Errors before the backend accepted the request
// are returned directly; later failures arrive through the stream. The
// caller must close the returned stream.
func (c *ModelClient) Stream(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error) {
	return c.streamer.Stream(ctx, prompt)
}

// Model returns the model name requests are sent for.
func (c *ModelClient) Model() string {
	return c.model
}

// Provider returns the active provider description.
func (c *ModelClient) Provider() config.ProviderInfo {
	return c.provider
}

// aggregated wraps a raw chat streamer so callers see one assistant message
// per turn. The aggregated events are forwarded into a fresh bounded
// stream by a single goroutine that exits when the caller closes it.
func aggregated(raw provider.Streamer) provider.Streamer {
	return provider.StreamerFunc(func(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error) {
		stream, err := raw.Stream(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return bridge.Forward(ctx, chat.Aggregate(stream)), nil
	})
}
