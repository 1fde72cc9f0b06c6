package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/retry"
)

func TestProviderStream(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer or-key" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		io.WriteString(w, chunks(
			`{"id":"gen-1","choices":[{"delta":{"content":"a"}}]}`,
			`{"id":"gen-1","choices":[{"delta":{"content":"b"},"finish_reason":"stop"}]}`,
			`[DONE]`,
		))
	}))
	defer srv.Close()

	p := New(Config{
		Provider:    config.ProviderInfo{BaseURL: srv.URL + "/api/v1", WireAPI: config.WireChat, Key: "or-key"},
		Model:       "openai/gpt-4o",
		IdleTimeout: time.Second,
	}, &retry.Executor{Label: wireLabel})

	stream, err := p.Stream(context.Background(), &api.Prompt{Input: []api.ResponseItem{api.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	events, err := drain(t, Aggregate(stream))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].Item.Text() != "ab" || events[1].ResponseID != "gen-1" {
		t.Errorf("events = %+v", events)
	}
	if !got.Stream || got.Model != "openai/gpt-4o" {
		t.Errorf("request = %+v", got)
	}
}
