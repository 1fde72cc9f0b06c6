package api

import (
	"encoding/json"
	"errors"
	"strings"
)

// ---------------------------------------------------------------------------
// Content types
// ---------------------------------------------------------------------------

// ContentType identifies the kind of a content part inside a message.
type ContentType string

const (
	ContentTypeInputText  ContentType = "input_text"
	ContentTypeInputImage ContentType = "input_image"
	ContentTypeOutputText ContentType = "output_text"
)

// ContentItem is a single part of message content.
type ContentItem struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
}

// IsText reports whether the part carries text (input or output).
func (c ContentItem) IsText() bool {
	return c.Type == ContentTypeInputText || c.Type == ContentTypeOutputText
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ItemType is the discriminator of a ResponseItem.
type ItemType string

const (
	ItemTypeMessage            ItemType = "message"
	ItemTypeReasoning          ItemType = "reasoning"
	ItemTypeFunctionCall       ItemType = "function_call"
	ItemTypeFunctionCallOutput ItemType = "function_call_output"
)

// ReasoningSummary is one summary entry of a reasoning item.
type ReasoningSummary struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ResponseItem is one finalized unit of model input or output. The wire
// format is flat: type-specific fields sit next to "type" and "id".
//
// Items whose type is not one of the ItemType constants decode without
// error and keep their original JSON in Raw.
type ResponseItem struct {
	Type   ItemType `json:"type"`
	ID     string   `json:"id,omitempty"`
	Status string   `json:"status,omitempty"`

	// message
	Role    MessageRole   `json:"role,omitempty"`
	Content []ContentItem `json:"content,omitempty"`

	// reasoning
	Summary []ReasoningSummary `json:"summary,omitempty"`

	// function_call
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// function_call_output
	Output string `json:"output,omitempty"`

	// Raw holds the original JSON the item was decoded from.
	Raw json.RawMessage `json:"-"`
}

// errMissingItemType is returned when an item has no "type" discriminator.
var errMissingItemType = errors.New("response item has no type")

// UnmarshalJSON decodes an item and keeps a copy of its raw JSON.
func (item *ResponseItem) UnmarshalJSON(data []byte) error {
	type wire ResponseItem
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == "" {
		return errMissingItemType
	}
	*item = ResponseItem(w)
	item.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON encodes known item kinds from their fields and replays the
// original JSON for kinds this package does not model.
func (item ResponseItem) MarshalJSON() ([]byte, error) {
	if !item.Type.Known() && len(item.Raw) > 0 {
		return item.Raw, nil
	}
	type wire ResponseItem
	return json.Marshal(wire(item))
}

// Known reports whether t is one of the modelled item kinds.
func (t ItemType) Known() bool {
	switch t {
	case ItemTypeMessage, ItemTypeReasoning, ItemTypeFunctionCall, ItemTypeFunctionCallOutput:
		return true
	}
	return false
}

// NewAssistantMessage builds an assistant message with one output_text part.
func NewAssistantMessage(text string) ResponseItem {
	return ResponseItem{
		Type:    ItemTypeMessage,
		Role:    RoleAssistant,
		Content: []ContentItem{{Type: ContentTypeOutputText, Text: text}},
	}
}

// NewUserMessage builds a user message with one input_text part.
func NewUserMessage(text string) ResponseItem {
	return ResponseItem{
		Type:    ItemTypeMessage,
		Role:    RoleUser,
		Content: []ContentItem{{Type: ContentTypeInputText, Text: text}},
	}
}

// Text concatenates the text parts of a message item.
func (item ResponseItem) Text() string {
	var b strings.Builder
	for _, c := range item.Content {
		if c.IsText() {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Prompt
// ---------------------------------------------------------------------------

// Tool is a function tool definition offered to the model.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Strict      bool            `json:"strict"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Prompt is the caller-supplied request for one model turn. It is built
// upstream and must not be modified while a stream for it is in flight.
type Prompt struct {
	// Instructions are the base instructions for the model.
	Instructions string

	// UserInstructions are appended to Instructions when non-empty.
	UserInstructions string

	// Input is the ordered conversation input.
	Input []ResponseItem

	// Tools is the tool schema offered to the model.
	Tools []Tool

	// PreviousResponseID links this turn to a prior one.
	PreviousResponseID string

	// Store asks the backend to persist the response.
	Store bool
}

// FullInstructions returns the instructions actually sent to the backend.
func (p *Prompt) FullInstructions() string {
	if p.UserInstructions == "" {
		return p.Instructions
	}
	if p.Instructions == "" {
		return p.UserInstructions
	}
	return p.Instructions + "\n\n" + p.UserInstructions
}
