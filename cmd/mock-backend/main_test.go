package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/client"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/retry"
)

var fastPolicy = retry.Policy{InitialInterval: time.Millisecond, Multiplier: 1, MaxInterval: time.Millisecond}

func newClient(t *testing.T, wire config.WireAPI, baseURL, model string) *client.ModelClient {
	t.Helper()
	cfg := config.Defaults()
	cfg.Model = model
	cfg.Provider = "mock"
	cfg.RequestMaxRetries = 3
	cfg.StreamIdleTimeout = 2 * time.Second
	cfg.Providers["mock"] = config.ProviderInfo{
		Name:    "mock",
		BaseURL: baseURL,
		WireAPI: wire,
		Key:     "test-key",
	}
	c, err := client.New(&cfg, client.WithPolicy(fastPolicy))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c
}

func collect(t *testing.T, c *client.ModelClient, prompt *api.Prompt) []api.ResponseEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Stream(ctx, prompt)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var events []api.ResponseEvent
	for ev, err := range stream.All(ctx) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

// replyText joins the text of all assistant messages in events.
func replyText(events []api.ResponseEvent) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Item != nil && ev.Item.Type == api.ItemTypeMessage {
			b.WriteString(ev.Item.Text())
		}
	}
	return b.String()
}

func TestMockBackend_AllProtocols(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{}))
	defer srv.Close()

	tests := []struct {
		name   string
		wire   config.WireAPI
		base   string
		model  string
		prompt *api.Prompt
		want   string
	}{
		{
			name:   "responses greeting",
			wire:   config.WireResponses,
			base:   srv.URL + "/v1",
			model:  "gpt-4.1",
			prompt: &api.Prompt{Input: []api.ResponseItem{api.NewUserMessage("hi")}},
			want:   "Hello, nice day!",
		},
		{
			name:  "responses with instructions",
			wire:  config.WireResponses,
			base:  srv.URL + "/v1",
			model: "gpt-4.1",
			prompt: &api.Prompt{
				Instructions: "Talk like a pirate.",
				Input:        []api.ResponseItem{api.NewUserMessage("hi")},
			},
			want: "Ahoy there, matey!",
		},
		{
			name:   "chat counting",
			wire:   config.WireChat,
			base:   srv.URL + "/v1",
			model:  "openai/gpt-4o",
			prompt: &api.Prompt{Input: []api.ResponseItem{api.NewUserMessage("Please count from 1 to 5")}},
			want:   "1, 2, 3, 4, 5",
		},
		{
			name:  "gemini with system instruction",
			wire:  config.WireGemini,
			base:  srv.URL + "/v1beta",
			model: "gemini-2.0-flash",
			prompt: &api.Prompt{
				Instructions: "Talk like a pirate.",
				Input:        []api.ResponseItem{api.NewUserMessage("hi")},
			},
			want: "Ahoy there, matey!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := collect(t, newClient(t, tt.wire, tt.base, tt.model), tt.prompt)
			if len(events) == 0 {
				t.Fatal("no events")
			}
			if got := replyText(events); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			last := events[len(events)-1]
			if last.Type != api.EventCompleted || last.ResponseID == "" {
				t.Errorf("last event = %+v, want Completed with an ID", last)
			}
		})
	}
}

func TestMockBackend_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{}))
	defer srv.Close()

	prompt := &api.Prompt{
		Input: []api.ResponseItem{api.NewUserMessage("weather?")},
		Tools: []api.Tool{{
			Type:       "function",
			Name:       "get_weather",
			Parameters: json.RawMessage(`{"type":"object"}`),
		}},
	}

	for _, wire := range []config.WireAPI{config.WireResponses, config.WireChat} {
		t.Run(string(wire), func(t *testing.T) {
			events := collect(t, newClient(t, wire, srv.URL+"/v1", "gpt-4.1"), prompt)

			var call *api.ResponseItem
			for _, ev := range events {
				if ev.Item != nil && ev.Item.Type == api.ItemTypeFunctionCall {
					call = ev.Item
				}
			}
			if call == nil {
				t.Fatalf("no function_call in %+v", events)
			}
			if call.Name != "get_weather" || call.CallID != "call_mock_1" {
				t.Errorf("call = %+v", call)
			}
			if call.Arguments != mockCallArguments {
				t.Errorf("arguments = %q, want %q", call.Arguments, mockCallArguments)
			}
		})
	}
}

func TestMockBackend_FailFirstIsRetried(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{failFirst: 2}))
	defer srv.Close()

	c := newClient(t, config.WireChat, srv.URL+"/v1", "m")
	events := collect(t, c, &api.Prompt{Input: []api.ResponseItem{api.NewUserMessage("hi")}})
	if got := replyText(events); got != "Hello, nice day!" {
		t.Errorf("reply = %q after retries", got)
	}
}

func TestMockBackend_RejectsBadRequests(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{}))
	defer srv.Close()

	tests := []struct {
		name   string
		path   string
		header map[string]string
		body   string
		want   int
	}{
		{"unknown model action", "/v1beta/models/gemini:countTokens", map[string]string{"x-goog-api-key": "k"}, "{}", http.StatusNotFound},
		{"gemini without key", "/v1beta/models/gemini:generateContent", nil, "{}", http.StatusForbidden},
		{"invalid json", "/v1/chat/completions", nil, "{not json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, srv.URL+tt.path, strings.NewReader(tt.body))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestMockBackend_Healthz(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
