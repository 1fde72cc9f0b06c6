package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
)

func chunks(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("data: ")
		b.WriteString(l)
		b.WriteString("\n\n")
	}
	return b.String()
}

func runChunks(t *testing.T, body io.Reader, idle time.Duration) *bridge.ResponseStream {
	t.Helper()
	pctx, sink, stream := bridge.New(context.Background(), bridge.DefaultCapacity)
	go func() {
		defer sink.Close()
		processChunks(pctx, body, sink, idle)
	}()
	t.Cleanup(stream.Close)
	return stream
}

func drain(t *testing.T, src Source) ([]api.ResponseEvent, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []api.ResponseEvent
	for {
		ev, err := src.Next(ctx)
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func TestProcessChunks_TextDeltas(t *testing.T) {
	body := chunks(
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`[DONE]`,
	)

	events, err := drain(t, runChunks(t, strings.NewReader(body), time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Item.Text() != "Hel" || events[1].Item.Text() != "lo" {
		t.Errorf("deltas = %q, %q", events[0].Item.Text(), events[1].Item.Text())
	}
	if events[2].Type != api.EventCompleted || events[2].ResponseID != "chatcmpl-1" {
		t.Errorf("last = %+v, want Completed(chatcmpl-1)", events[2])
	}
}

func TestProcessChunks_ToolCalls(t *testing.T) {
	body := chunks(
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"read","arguments":""}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"shell","arguments":"{\"cmd\":"}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"ls\"}"}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"function":{"arguments":"{}"}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	events, err := drain(t, runChunks(t, strings.NewReader(body), time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}

	first, second := events[0].Item, events[1].Item
	if first.Type != api.ItemTypeFunctionCall || first.CallID != "call_a" || first.Name != "shell" || first.Arguments != `{"cmd":"ls"}` {
		t.Errorf("first call = %+v", first)
	}
	if second.CallID != "call_b" || second.Name != "read" || second.Arguments != "{}" {
		t.Errorf("second call = %+v", second)
	}
	if events[2].ResponseID != "c2" {
		t.Errorf("ResponseID = %q, want c2", events[2].ResponseID)
	}
}

func TestProcessChunks_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		items   int
		message string
	}{
		{
			name:    "eof before finish",
			body:    chunks(`{"id":"c","choices":[{"delta":{"content":"partial"}}]}`),
			items:   1,
			message: "stream closed before finish_reason",
		},
		{
			name:    "done before finish",
			body:    chunks(`{"id":"c","choices":[{"delta":{"content":"partial"}}]}`, `[DONE]`),
			items:   1,
			message: "stream closed before finish_reason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := drain(t, runChunks(t, strings.NewReader(tt.body), time.Second))
			if len(events) != tt.items {
				t.Errorf("got %d items, want %d", len(events), tt.items)
			}
			var streamErr *api.StreamError
			if !errors.As(err, &streamErr) || streamErr.Message != tt.message {
				t.Errorf("err = %v, want StreamError(%q)", err, tt.message)
			}
		})
	}
}

func TestProcessChunks_SkipsMalformedChunks(t *testing.T) {
	body := chunks(
		`{not json`,
		`{"id":"c3","choices":[]}`,
		`{"id":"c3","choices":[{"delta":{"content":"ok"},"finish_reason":"stop"}]}`,
	)
	events, err := drain(t, runChunks(t, strings.NewReader(body), time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].Item.Text() != "ok" {
		t.Errorf("events = %+v", events)
	}
}

func TestProcessChunks_IdleTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	stream := runChunks(t, pr, 50*time.Millisecond)

	go pw.Write([]byte(chunks(`{"id":"c","choices":[{"delta":{"content":"x"}}]}`)))

	events, err := drain(t, stream)
	if len(events) != 1 {
		t.Errorf("got %d items, want 1", len(events))
	}
	var streamErr *api.StreamError
	if !errors.As(err, &streamErr) || streamErr.Message != "idle timeout waiting for SSE" {
		t.Errorf("err = %v, want idle timeout", err)
	}
}

func TestProcessChunks_SlowConsumerIsNotIdle(t *testing.T) {
	var lines []string
	for range 6 {
		lines = append(lines, `{"id":"c5","choices":[{"index":0,"delta":{"content":"x"}}]}`)
	}
	lines = append(lines, `{"id":"c5","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)

	pctx, sink, stream := bridge.New(context.Background(), 1)
	go func() {
		defer sink.Close()
		processChunks(pctx, strings.NewReader(chunks(lines...)), sink, 30*time.Millisecond)
	}()
	defer stream.Close()

	n := 0
	for {
		ev, err := stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("after %d events got error: %v", n, err)
		}
		n++
		if ev.Type == api.EventCompleted && ev.ResponseID != "c5" {
			t.Errorf("ResponseID = %q, want c5", ev.ResponseID)
		}
		time.Sleep(60 * time.Millisecond)
	}
	if n != 7 {
		t.Errorf("got %d events, want 6 deltas + Completed", n)
	}
}
