package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// options controls failure injection and pacing.
type options struct {
	failFirst  int64
	frameDelay time.Duration
}

// server holds per-process state shared by the handlers.
type server struct {
	opts     options
	requests atomic.Int64
}

// newHandler builds the routing table for the three protocols.
func newHandler(opts options) http.Handler {
	s := &server{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/responses", s.failing(s.handleResponses))
	mux.HandleFunc("POST /v1/chat/completions", s.failing(s.handleChat))
	mux.HandleFunc("POST /v1beta/models/{action}", s.failing(s.handleGenerateContent))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// failing answers the first failFirst requests with 503 and Retry-After 0.
func (s *server) failing(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if n := s.requests.Add(1); n <= s.opts.failFirst {
			slog.Info("injecting failure", "request", n, "path", r.URL.Path)
			w.Header().Set("Retry-After", "0")
			http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func (s *server) pause() {
	if s.opts.frameDelay > 0 {
		time.Sleep(s.opts.frameDelay)
	}
}

// --- Reply selection ---

// reply picks the deterministic answer for a conversation.
func reply(lastUser string, hasSystem bool) []string {
	if strings.Contains(strings.ToLower(lastUser), "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	if hasSystem {
		return []string{"Ahoy", " there", ", matey!"}
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}

const mockCallArguments = `{"location":"San Francisco","unit":"celsius"}`

// --- responses protocol ---

func (s *server) handleResponses(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON(w, r)
	if err != nil {
		return
	}

	var lastUser string
	gjson.Get(body, "input").ForEach(func(_, item gjson.Result) bool {
		if item.Get("role").Str == "user" {
			lastUser = item.Get("content.0.text").Str
		}
		return true
	})
	tokens := reply(lastUser, gjson.Get(body, "instructions").Str != "")
	id := fmt.Sprintf("resp_mock_%d", s.requests.Load())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	send := func(v any) {
		data, _ := json.Marshal(v)
		writeSSE(w, data)
		s.pause()
	}

	send(map[string]any{"type": "response.created", "response": map[string]any{"id": id, "status": "in_progress"}})
	for _, tok := range tokens {
		send(map[string]any{"type": "response.output_text.delta", "delta": tok})
	}
	send(map[string]any{
		"type": "response.output_item.done",
		"item": map[string]any{
			"type":    "message",
			"id":      "msg_mock",
			"role":    "assistant",
			"status":  "completed",
			"content": []any{map[string]any{"type": "output_text", "text": strings.Join(tokens, "")}},
		},
	})
	if len(gjson.Get(body, "tools").Array()) > 0 {
		send(map[string]any{
			"type": "response.output_item.done",
			"item": map[string]any{
				"type":      "function_call",
				"id":        "fc_mock",
				"name":      "get_weather",
				"arguments": mockCallArguments,
				"call_id":   "call_mock_1",
			},
		})
	}
	send(map[string]any{"type": "response.completed", "response": map[string]any{"id": id, "status": "completed"}})
}

// --- chat protocol ---

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON(w, r)
	if err != nil {
		return
	}

	var lastUser string
	hasSystem := false
	gjson.Get(body, "messages").ForEach(func(_, msg gjson.Result) bool {
		switch msg.Get("role").Str {
		case "user":
			lastUser = msg.Get("content").Str
		case "system":
			hasSystem = true
		}
		return true
	})
	tokens := reply(lastUser, hasSystem)
	id := fmt.Sprintf("chatcmpl-mock-%d", s.requests.Load())
	model := gjson.Get(body, "model").Str

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	send := func(delta map[string]any, finish any) {
		data, _ := json.Marshal(map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"model":   model,
			"choices": []any{map[string]any{"index": 0, "delta": delta, "finish_reason": finish}},
		})
		writeSSE(w, data)
		s.pause()
	}

	send(map[string]any{"role": "assistant"}, nil)
	for _, tok := range tokens {
		send(map[string]any{"content": tok}, nil)
	}

	finish := "stop"
	if len(gjson.Get(body, "tools").Array()) > 0 {
		// Arguments arrive in two fragments, as real backends split them.
		half := len(mockCallArguments) / 2
		send(map[string]any{"tool_calls": []any{map[string]any{
			"index": 0, "id": "call_mock_1", "type": "function",
			"function": map[string]any{"name": "get_weather", "arguments": mockCallArguments[:half]},
		}}}, nil)
		send(map[string]any{"tool_calls": []any{map[string]any{
			"index": 0, "function": map[string]any{"arguments": mockCallArguments[half:]},
		}}}, nil)
		finish = "tool_calls"
	}
	send(map[string]any{}, finish)
	writeSSE(w, []byte("[DONE]"))
}

// --- generateContent protocol ---

func (s *server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.PathValue("action"), ":generateContent") {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("x-goog-api-key") == "" {
		http.Error(w, `{"error":{"code":403,"message":"API key missing","status":"PERMISSION_DENIED"}}`, http.StatusForbidden)
		return
	}
	body, err := readJSON(w, r)
	if err != nil {
		return
	}

	var lastUser string
	gjson.Get(body, "contents").ForEach(func(_, c gjson.Result) bool {
		if c.Get("role").Str == "user" {
			lastUser = c.Get("parts.0.text").Str
		}
		return true
	})
	tokens := reply(lastUser, gjson.Get(body, "systemInstruction").Exists())

	// One part per sentence fragment keeps multi-part replies observable.
	parts := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, map[string]any{"text": tok})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": "STOP",
		}},
	})
}

// readJSON reads the request body and rejects anything that is not JSON.
func readJSON(w http.ResponseWriter, r *http.Request) (string, error) {
	data, err := io.ReadAll(r.Body)
	if err == nil && !gjson.ValidBytes(data) {
		err = errors.New("invalid JSON body")
	}
	if err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return "", err
	}
	return string(data), nil
}
