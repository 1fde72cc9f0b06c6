// Package responses implements the pipeline for backends that speak the
// incremental "responses" protocol. A turn is posted to {base}/responses
// with stream=true and the SSE body is interpreted frame by frame:
// finalized output items are forwarded as soon as they arrive and the turn
// identifier from the completion envelope terminates the stream.
package responses

import (
	"encoding/json"

	"github.com/rhuss/modelstream/pkg/api"
)

// --- Request types ---

// request is the wire format for POST {base}/responses.
type request struct {
	Model              string             `json:"model"`
	Instructions       string             `json:"instructions"`
	Input              []api.ResponseItem `json:"input"`
	Tools              []json.RawMessage  `json:"tools"`
	ToolChoice         string             `json:"tool_choice"`
	ParallelToolCalls  bool               `json:"parallel_tool_calls"`
	Reasoning          *reasoning         `json:"reasoning,omitempty"`
	PreviousResponseID string             `json:"previous_response_id,omitempty"`
	Store              bool               `json:"store"`
	Stream             bool               `json:"stream"`
}

// reasoning carries the reasoning parameters for reasoning-capable models.
type reasoning struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// functionTool is a tool definition in the responses format: name and
// schema sit next to "type" instead of under a "function" object.
type functionTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Strict      bool            `json:"strict"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// --- SSE event types ---

// Frame type discriminators the interpreter acts on.
const (
	eventOutputItemDone    = "response.output_item.done"
	eventResponseCompleted = "response.completed"
)

// ignoredEvents are recognized frame types that carry nothing the
// interpreter forwards. They are dropped without a skip being recorded.
var ignoredEvents = map[string]bool{
	"response.content_part.added":            true,
	"response.content_part.done":             true,
	"response.created":                       true,
	"response.function_call_arguments.delta": true,
	"response.in_progress":                   true,
	"response.output_item.added":             true,
	"response.output_text.delta":             true,
	"response.output_text.done":              true,
	"response.reasoning_summary_part.added":  true,
	"response.reasoning_summary_text.delta":  true,
	"response.reasoning_summary_text.done":   true,
}

// Skip reasons recorded in modelstream_skipped_frames_total.
const (
	skipEnvelope  = "envelope_decode"
	skipItem      = "item_decode"
	skipCompleted = "completed_decode"
	skipUnknown   = "unknown_type"
)
