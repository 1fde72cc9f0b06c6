package chat

import (
	"log/slog"

	"github.com/rhuss/modelstream/pkg/api"
)

// buildRequest converts a prompt into a streaming Chat Completions request.
// Instructions become a leading system message; function calls and their
// outputs become assistant tool_calls and tool messages. Items with no
// Chat Completions equivalent are dropped.
func buildRequest(model string, prompt *api.Prompt) *chatRequest {
	req := &chatRequest{
		Model:    model,
		Messages: []chatMessage{},
		Stream:   true,
	}

	if instructions := prompt.FullInstructions(); instructions != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: &instructions})
	}

	for _, item := range prompt.Input {
		switch item.Type {
		case api.ItemTypeMessage:
			text := item.Text()
			role := string(item.Role)
			if role == "" {
				role = string(api.RoleUser)
			}
			req.Messages = append(req.Messages, chatMessage{Role: role, Content: &text})

		case api.ItemTypeFunctionCall:
			call := chatToolCall{
				ID:       item.CallID,
				Type:     "function",
				Function: chatFunctionCall{Name: item.Name, Arguments: item.Arguments},
			}
			// Consecutive calls share one assistant message.
			if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == "assistant" && len(req.Messages[n-1].ToolCalls) > 0 {
				req.Messages[n-1].ToolCalls = append(req.Messages[n-1].ToolCalls, call)
				continue
			}
			req.Messages = append(req.Messages, chatMessage{Role: "assistant", ToolCalls: []chatToolCall{call}})

		case api.ItemTypeFunctionCallOutput:
			output := item.Output
			req.Messages = append(req.Messages, chatMessage{Role: "tool", Content: &output, ToolCallID: item.CallID})

		default:
			slog.Debug("dropping item with no chat equivalent", "type", item.Type)
		}
	}

	for _, t := range prompt.Tools {
		if t.Type != "" && t.Type != "function" {
			continue
		}
		req.Tools = append(req.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	return req
}
