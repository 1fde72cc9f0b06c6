package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
	"github.com/rhuss/modelstream/pkg/provider"
	"github.com/rhuss/modelstream/pkg/retry"
)

const wireLabel = string(config.WireGemini)

// Config holds configuration for the generateContent adapter.
type Config struct {
	Provider config.ProviderInfo
	Model    string
}

// Provider streams turns from a generateContent backend.
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

// Stream sends the turn and adapts the single response into a stream.
func (p *Provider) Stream(ctx context.Context, prompt *api.Prompt) (*bridge.ResponseStream, error) {
	apiKey, err := p.cfg.Provider.APIKey()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(p.cfg.Provider.BaseURL, "/"), modelPath(p.cfg.Model))
	debug.Log(debug.Providers, "request", "method", "POST", "url", url, "model", p.cfg.Model)
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
		if apiKey != "" {
			req.Header.Set("x-goog-api-key", apiKey)
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

		finish(adapt(pctx, resp.Body, sink))
	}()

	return stream, nil
}

// adapt reads the complete body, forwards one output item per text part,
// then a Completed event with a synthesized identifier. An envelope that
// cannot be decoded produces exactly one StreamError and nothing else.
// It returns the stream outcome label.
func adapt(ctx context.Context, body io.Reader, sink *bridge.Sink) string {
	data, err := io.ReadAll(body)
	if err != nil {
		if ctx.Err() != nil {
			return observability.StreamCancelled
		}
		sink.Fail(api.NewStreamError("failed to read Gemini response: %v", err))
		return observability.StreamFailed
	}

	var envelope generateContentResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		slog.Error("failed to parse Gemini response", "error", err, "body", debug.Truncate(string(data), 1024))
		sink.Fail(api.NewStreamError("failed to parse Gemini response: %v", err))
		return observability.StreamFailed
	}

	for _, cand := range envelope.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, raw := range cand.Content.Parts {
			var rp responsePart
			if err := json.Unmarshal(raw, &rp); err != nil {
				skip("part_decode", "failed to decode response part", "error", err)
				continue
			}
			if rp.Text == nil {
				skip("no_text", "response part carries no text")
				continue
			}
			if !sink.Send(api.OutputItemDone(api.NewAssistantMessage(*rp.Text))) {
				return observability.StreamCancelled
			}
		}
	}

	if !sink.Send(api.Completed(api.NewResponseID())) {
		return observability.StreamCancelled
	}
	return observability.StreamCompleted
}

func skip(reason, msg string, args ...any) {
	observability.SkippedFramesTotal.WithLabelValues(wireLabel, reason).Inc()
	debug.Log(debug.Streaming, msg, append([]any{"wire_api", wireLabel, "reason", reason}, args...)...)
}

func finish(outcome string) {
	observability.StreamsTotal.WithLabelValues(wireLabel, outcome).Inc()
}
