// Package gemini adapts the single-shot generateContent protocol to the
// streaming event model. The whole response body is read once, each text
// part of every candidate becomes one output item, and a synthesized turn
// identifier completes the stream.
package gemini

import "encoding/json"

// --- Request types ---

// generateContentRequest is the wire format for
// POST {base}/models/{model}:generateContent.
type generateContentRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

// content is one turn of the conversation.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part is one piece of a content. Only text parts are produced.
type part struct {
	Text string `json:"text"`
}

// --- Response types ---

// generateContentResponse is the response envelope. Parts are kept raw so
// that one undecodable part does not fail the whole envelope.
type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content *candidateContent `json:"content"`
}

type candidateContent struct {
	Role  string            `json:"role"`
	Parts []json.RawMessage `json:"parts"`
}

// responsePart is the decoded form of one response part.
type responsePart struct {
	Text *string `json:"text"`
}
