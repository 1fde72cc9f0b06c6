package gemini

import (
	"log/slog"
	"strings"

	"github.com/rhuss/modelstream/pkg/api"
)

// buildRequest maps the prompt input to generateContent contents. Each
// message becomes one content with role "user" for user messages and
// "model" otherwise, carrying one part per text content item. Items and
// parts the protocol cannot express are dropped with a warning.
func buildRequest(prompt *api.Prompt) *generateContentRequest {
	req := &generateContentRequest{Contents: []content{}}

	if instructions := prompt.FullInstructions(); instructions != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: instructions}}}
	}

	for _, item := range prompt.Input {
		if item.Type != api.ItemTypeMessage {
			slog.Warn("unsupported input item for gemini, skipping", "type", item.Type)
			continue
		}
		var parts []part
		for _, c := range item.Content {
			if !c.IsText() {
				slog.Warn("unsupported content type for gemini, skipping", "type", c.Type)
				continue
			}
			parts = append(parts, part{Text: c.Text})
		}
		if len(parts) == 0 {
			continue
		}
		role := "model"
		if item.Role == api.RoleUser {
			role = "user"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: parts})
	}

	return req
}

// modelPath returns the model path segment, adding the "models/" prefix
// unless the name already carries it.
func modelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}
