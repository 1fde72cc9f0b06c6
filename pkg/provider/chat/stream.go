package chat

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
	"github.com/rhuss/modelstream/pkg/sse"
)

const wireLabel = string(config.WireChat)

// Stream failure messages.
const (
	msgClosedEarly = "stream closed before finish_reason"
	msgIdleTimeout = "idle timeout waiting for SSE"
)

// toolCallBuffer tracks incremental tool call argument assembly across
// multiple chunks for a single tool call index.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// processChunks interprets a Chat Completions SSE body. Every non-empty
// text delta is forwarded as an assistant message item. Tool call
// fragments are assembled per index and forwarded as function_call items
// when the first choice reports a finish_reason, followed by Completed
// carrying the chunk id. A body that ends before any finish_reason is a
// StreamError.
func processChunks(ctx context.Context, body io.Reader, sink *bridge.Sink, idleTimeout time.Duration) string {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := sse.Read(ctx, body)
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	toolCalls := make(map[int]*toolCallBuffer)
	for {
		// The wait for the next frame starts only once the previous one
		// has been handed to the consumer.
		idle.Reset(idleTimeout)
		select {
		case <-ctx.Done():
			return observability.StreamCancelled

		case <-idle.C:
			sink.Fail(api.NewStreamError(msgIdleTimeout))
			return observability.StreamIdleTimeout

		case r, ok := <-frames:
			if !ok {
				sink.Fail(api.NewStreamError(msgClosedEarly))
				return observability.StreamFailed
			}
			if r.Err != nil {
				if ctx.Err() != nil {
					return observability.StreamCancelled
				}
				sink.Fail(api.NewStreamError("%v", r.Err))
				return observability.StreamFailed
			}
			payload := r.Frame.Data
			if payload == "[DONE]" {
				sink.Fail(api.NewStreamError(msgClosedEarly))
				return observability.StreamFailed
			}

			var chunk chatChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				observability.SkippedFramesTotal.WithLabelValues(wireLabel, "chunk_decode").Inc()
				debug.Log(debug.Streaming, "skipping malformed chunk", "error", err, "data", debug.Truncate(payload, 200))
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if c := choice.Delta.Content; c != nil && *c != "" {
				if !sink.Send(api.OutputItemDone(api.NewAssistantMessage(*c))) {
					return observability.StreamCancelled
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				buf, exists := toolCalls[tc.Index]
				if !exists {
					buf = &toolCallBuffer{}
					toolCalls[tc.Index] = buf
				}
				if tc.ID != "" {
					buf.id = tc.ID
				}
				if tc.Function.Name != "" {
					buf.name = tc.Function.Name
				}
				buf.args.WriteString(tc.Function.Arguments)
			}

			if choice.FinishReason == nil {
				continue
			}
			debug.Log(debug.Streaming, "choice finished", "wire_api", wireLabel, "finish_reason", *choice.FinishReason)
			for _, item := range flushToolCalls(toolCalls) {
				if !sink.Send(api.OutputItemDone(item)) {
					return observability.StreamCancelled
				}
			}
			id := chunk.ID
			if id == "" {
				id = api.NewResponseID()
			}
			if !sink.Send(api.Completed(id)) {
				return observability.StreamCancelled
			}
			return observability.StreamCompleted
		}
	}
}

// flushToolCalls returns the buffered tool calls as function_call items in
// index order and clears the buffer.
func flushToolCalls(toolCalls map[int]*toolCallBuffer) []api.ResponseItem {
	indexes := make([]int, 0, len(toolCalls))
	for idx := range toolCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	items := make([]api.ResponseItem, 0, len(indexes))
	for _, idx := range indexes {
		buf := toolCalls[idx]
		items = append(items, api.ResponseItem{
			Type:      api.ItemTypeFunctionCall,
			Status:    "completed",
			Name:      buf.name,
			Arguments: buf.args.String(),
			CallID:    buf.id,
		})
		delete(toolCalls, idx)
	}
	return items
}
