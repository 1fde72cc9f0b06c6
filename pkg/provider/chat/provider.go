package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
	"github.com/rhuss/modelstream/pkg/provider"
	"github.com/rhuss/modelstream/pkg/retry"
)

// Config holds configuration for the Chat Completions pipeline.
type Config struct {
	Provider    config.ProviderInfo
	Model       string
	IdleTimeout time.Duration
}

// Provider streams raw, per-delta turns from a Chat Completions backend.
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

// Stream posts the turn and starts interpreting the chunk stream. The
// returned stream is not aggregated.
func (p *Provider) Stream(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error) {
	apiKey, err := p.cfg.Provider.APIKey()
	if err != nil {
		return nil, err
	}

	payload := buildRequest(p.cfg.Model, prompt)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.Provider.BaseURL, "/") + "/chat/completions"
	debug.Log(debug.Providers, "request", "method", "POST", "url", url, "model", p.cfg.Model,
		"messages", len(payload.Messages), "tools", len(payload.Tools))
	if debug.TraceIsEnabled(debug.Providers) {
		debug.Trace(debug.Providers, "request payload", "url", url, "body", string(body))
	}

	pctx, sink, stream := bridge.New(ctx, bridge.DefaultCapacity)

	resp, err := p.exec.Do(pctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
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
		observability.ActiveStreams.Inc()
		defer observability.ActiveStreams.Dec()

		outcome := processChunks(pctx, resp.Body, sink, p.cfg.IdleTimeout)
		observability.StreamsTotal.WithLabelValues(wireLabel, outcome).Inc()
	}()

	return stream, nil
}
