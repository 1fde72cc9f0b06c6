package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/provider"
	"github.com/rhuss/modelstream/pkg/retry"
)

// Config holds configuration for the responses pipeline.
type Config struct {
	Provider    config.ProviderInfo
	Model       string
	Reasoning   config.ReasoningConfig
	IdleTimeout time.Duration

	// Fixture, when set, replays a recorded session from this file and
	// skips the network entirely.
	Fixture string
}

// Provider streams turns from a responses backend.
type Provider struct {
	cfg  Config
	exec *retry.Executor
}

// Ensure Provider implements provider.Streamer at compile time.
var _ provider.Streamer = (*Provider)(nil)

// New creates a Provider that sends requests through exec.
func New(cfg Config, exec *retry.Executor) *Provider {
	return &Provider{cfg: cfg, exec: exec}
}

// Stream posts the turn and starts interpreting the SSE body.
func (p *Provider) Stream(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error) {
	if p.cfg.Fixture != "" {
		slog.Warn("streaming from fixture", "path", p.cfg.Fixture)
		return StreamFromFixture(ctx, p.cfg.Fixture, p.cfg.IdleTimeout)
	}

	apiKey, err := p.cfg.Provider.APIKey()
	if err != nil {
		return nil, err
	}

	payload, err := buildRequest(p.cfg.Model, prompt, p.cfg.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("responses: build request: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("responses: marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.Provider.BaseURL, "/") + "/responses"
	debug.Log(debug.Providers, "request", "method", "POST", "url", url, "model", p.cfg.Model,
		"input_items", len(payload.Input), "tools", len(payload.Tools))
	if debug.TraceIsEnabled(debug.Providers) {
		debug.Trace(debug.Providers, "request payload", "url", url, "body", string(body))
	}

	// The producer context bounds the request and the body reads, so a
	// consumer drop aborts both.
	pctx, sink, stream := bridge.New(ctx, bridge.DefaultCapacity)

	resp, err := p.exec.Do(pctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("OpenAI-Beta", "responses=experimental")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		return req, nil
	})
	if err != nil {
		stream.Close()
		sink.Close()
		return nil, err
	}

	go func() {
		defer sink.Close()
		defer resp.Body.Close()
		ProcessSSE(pctx, resp.Body, sink, p.cfg.IdleTimeout)
	}()

	return stream, nil
}
