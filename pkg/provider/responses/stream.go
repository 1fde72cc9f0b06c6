package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/bridge"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
	"github.com/rhuss/modelstream/pkg/sse"
)

const wireLabel = string(config.WireResponses)

// Stream failure messages.
const (
	msgClosedEarly = "stream closed before response.completed"
	msgIdleTimeout = "idle timeout waiting for SSE"
)

// ProcessSSE interprets an incremental SSE body and forwards normalized
// events to sink until the body ends, a framing error occurs, no frame
// arrives within idleTimeout, or ctx is cancelled.
//
// Finalized output items are forwarded as they arrive. The turn identifier
// from the completion envelope is held back and sent as Completed only
// once the body closes cleanly; a body that closes without one ends the
// stream with a StreamError. Frames that fail to decode or carry an
// unrecognized type are skipped and counted. When ctx is cancelled the
// function returns without sending anything further, and the consumer
// observes bridge.ErrTruncated.
//
// ProcessSSE does not close sink or body.
func ProcessSSE(ctx context.Context, body io.Reader, sink *bridge.Sink, idleTimeout time.Duration) {
	observability.ActiveStreams.Inc()
	defer observability.ActiveStreams.Dec()

	// Stops the reader goroutine on every return path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := sse.Read(ctx, body)
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	var responseID string
	for {
		// The wait for the next frame starts only once the previous one
		// has been handed to the consumer.
		idle.Reset(idleTimeout)
		select {
		case <-ctx.Done():
			finish(observability.StreamCancelled)
			return

		case <-idle.C:
			debug.Log(debug.Streaming, "idle timeout", "wire_api", wireLabel, "timeout", idleTimeout)
			sink.Fail(api.NewStreamError(msgIdleTimeout))
			finish(observability.StreamIdleTimeout)
			return

		case r, ok := <-frames:
			if !ok {
				if responseID == "" {
					sink.Fail(api.NewStreamError(msgClosedEarly))
					finish(observability.StreamFailed)
					return
				}
				sink.Send(api.Completed(responseID))
				finish(observability.StreamCompleted)
				return
			}
			if r.Err != nil {
				if ctx.Err() != nil {
					finish(observability.StreamCancelled)
					return
				}
				debug.Log(debug.Streaming, "SSE error", "wire_api", wireLabel, "error", r.Err)
				sink.Fail(api.NewStreamError("%s", streamErrorText(r.Err)))
				finish(observability.StreamFailed)
				return
			}
			if !handleFrame(r.Frame, sink, &responseID) {
				finish(observability.StreamCancelled)
				return
			}
		}
	}
}

// handleFrame acts on one frame. It returns false when the consumer has
// gone away.
func handleFrame(frame sse.Frame, sink *bridge.Sink, responseID *string) bool {
	data := frame.Data
	if debug.TraceIsEnabled(debug.Streaming) {
		debug.Trace(debug.Streaming, "SSE frame", "event", frame.Event, "data", debug.Truncate(data, 2048))
	}

	if !gjson.Valid(data) {
		skip(skipEnvelope, "invalid JSON", "data", debug.Truncate(data, 256))
		return true
	}
	kind := gjson.Get(data, "type")
	if kind.Type != gjson.String {
		skip(skipEnvelope, "frame has no type", "data", debug.Truncate(data, 256))
		return true
	}

	switch kind.Str {
	case eventOutputItemDone:
		raw := gjson.Get(data, "item")
		if !raw.Exists() {
			skip(skipItem, "output item frame has no item")
			return true
		}
		var item api.ResponseItem
		if err := json.Unmarshal([]byte(raw.Raw), &item); err != nil {
			skip(skipItem, "failed to decode output item", "error", err)
			return true
		}
		return sink.Send(api.OutputItemDone(item))

	case eventResponseCompleted:
		resp := gjson.Get(data, "response")
		if !resp.Exists() {
			skip(skipCompleted, "completion frame has no response")
			return true
		}
		id := resp.Get("id")
		if id.Type != gjson.String {
			skip(skipCompleted, "completion envelope has no id")
			return true
		}
		*responseID = id.Str
		return true
	}

	if ignoredEvents[kind.Str] {
		return true
	}
	skip(skipUnknown, "unhandled frame type", "type", kind.Str)
	return true
}

func skip(reason, msg string, args ...any) {
	observability.SkippedFramesTotal.WithLabelValues(wireLabel, reason).Inc()
	debug.Log(debug.Streaming, msg, append([]any{"wire_api", wireLabel, "reason", reason}, args...)...)
}

func finish(outcome string) {
	observability.StreamsTotal.WithLabelValues(wireLabel, outcome).Inc()
}

func streamErrorText(err error) string {
	if errors.Is(err, sse.ErrInvalidUTF8) {
		return "malformed SSE frame: " + err.Error()
	}
	return err.Error()
}
