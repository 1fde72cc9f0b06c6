package responses

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/config"
)

// buildRequest assembles the streaming payload for one turn.
func buildRequest(model string, prompt *api.Prompt, rc config.ReasoningConfig) (*request, error) {
	tools, err := toolsJSON(prompt.Tools)
	if err != nil {
		return nil, err
	}

	input := prompt.Input
	if input == nil {
		input = []api.ResponseItem{}
	}

	return &request{
		Model:              model,
		Instructions:       prompt.FullInstructions(),
		Input:              input,
		Tools:              tools,
		ToolChoice:         "auto",
		ParallelToolCalls:  false,
		Reasoning:          reasoningParam(model, rc),
		PreviousResponseID: prompt.PreviousResponseID,
		Store:              prompt.Store,
		Stream:             true,
	}, nil
}

// toolsJSON renders the tool schema. Function tools are flattened; tools
// of other types are passed through with only their type.
func toolsJSON(tools []api.Tool) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(tools))
	for _, t := range tools {
		typ := t.Type
		if typ == "" {
			typ = "function"
		}
		var v any = functionTool{
			Type:        typ,
			Name:        t.Name,
			Description: t.Description,
			Strict:      t.Strict,
			Parameters:  t.Parameters,
		}
		if typ != "function" {
			v = struct {
				Type string `json:"type"`
			}{typ}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// reasoningParam returns the reasoning parameters for reasoning-capable
// model families and nil for everything else.
func reasoningParam(model string, rc config.ReasoningConfig) *reasoning {
	if !supportsReasoning(model) {
		return nil
	}
	if rc.Effort == "" && (rc.Summary == "" || rc.Summary == "none") {
		return nil
	}
	r := &reasoning{Effort: rc.Effort}
	if rc.Summary != "none" {
		r.Summary = rc.Summary
	}
	return r
}

// supportsReasoning reports whether model belongs to a reasoning family:
// "o" followed by a digit (o3, o4-mini) or the codex- prefix.
func supportsReasoning(model string) bool {
	if strings.HasPrefix(model, "codex-") {
		return true
	}
	return len(model) > 1 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9'
}
