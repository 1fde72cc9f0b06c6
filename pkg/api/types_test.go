package api

import (
	"encoding/json"
	"testing"
)

func TestResponseItemUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType ItemType
		wantErr  bool
	}{
		{"message", `{"type":"message","id":"msg_1","role":"assistant","content":[{"type":"output_text","text":"hi"}]}`, ItemTypeMessage, false},
		{"function call", `{"type":"function_call","id":"fc_1","name":"shell","arguments":"{}","call_id":"call_1"}`, ItemTypeFunctionCall, false},
		{"reasoning", `{"type":"reasoning","id":"rs_1","summary":[{"type":"summary_text","text":"thinking"}]}`, ItemTypeReasoning, false},
		{"unknown kind", `{"type":"web_search_call","id":"ws_1","action":{"query":"go"}}`, ItemType("web_search_call"), false},
		{"missing type", `{"id":"msg_1","role":"assistant"}`, "", true},
		{"content wrong shape", `{"type":"message","content":42}`, "", true},
		{"not an object", `"message"`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item ResponseItem
			err := json.Unmarshal([]byte(tt.input), &item)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got item %+v", item)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", item.Type, tt.wantType)
			}
			if string(item.Raw) != tt.input {
				t.Errorf("Raw = %s, want original input", item.Raw)
			}
		})
	}
}

func TestResponseItemMarshal_UnknownKindReplaysRaw(t *testing.T) {
	input := `{"type":"web_search_call","id":"ws_1","action":{"query":"go"}}`
	var item ResponseItem
	if err := json.Unmarshal([]byte(input), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("marshal = %s, want %s", out, input)
	}
}

func TestResponseItemMarshal_KnownKindUsesFields(t *testing.T) {
	item := NewAssistantMessage("hello")

	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hello"}]}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestResponseItemText(t *testing.T) {
	item := ResponseItem{
		Type: ItemTypeMessage,
		Content: []ContentItem{
			{Type: ContentTypeOutputText, Text: "Hello"},
			{Type: ContentTypeInputImage, ImageURL: "data:image/png;base64,AAAA"},
			{Type: ContentTypeOutputText, Text: " world"},
		},
	}
	if got := item.Text(); got != "Hello world" {
		t.Errorf("Text() = %q, want %q", got, "Hello world")
	}
}

func TestPromptFullInstructions(t *testing.T) {
	tests := []struct {
		name   string
		prompt Prompt
		want   string
	}{
		{"base only", Prompt{Instructions: "base"}, "base"},
		{"user only", Prompt{UserInstructions: "user"}, "user"},
		{"both", Prompt{Instructions: "base", UserInstructions: "user"}, "base\n\nuser"},
		{"neither", Prompt{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prompt.FullInstructions(); got != tt.want {
				t.Errorf("FullInstructions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseEventConstructors(t *testing.T) {
	ev := OutputItemDone(NewAssistantMessage("x"))
	if ev.Type != EventOutputItemDone || ev.Item == nil || ev.IsTerminal() {
		t.Errorf("OutputItemDone() = %+v", ev)
	}

	done := Completed("resp_1")
	if done.Type != EventCompleted || done.ResponseID != "resp_1" || !done.IsTerminal() {
		t.Errorf("Completed() = %+v", done)
	}
}
