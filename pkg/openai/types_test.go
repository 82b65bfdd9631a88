package openai_test

import (
	"encoding/json"
	"testing"

	"github.com/suxyu/archgw/pkg/openai"
)

func TestContentUnmarshal_String(t *testing.T) {
	var m openai.Message
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := m.Content.Flatten(); got != "hello" {
		t.Errorf("Flatten() = %q, want %q", got, "hello")
	}
}

func TestContentUnmarshal_Parts(t *testing.T) {
	raw := `{
		"role": "user",
		"content": [
			{"type": "text", "text": "What city do you want the weather for?"},
			{"type": "image_url", "image_url": {"url": "https://example.com/map.png"}},
			{"type": "text", "text": "hello world"}
		]
	}`
	var m openai.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(m.Content.Parts) != 3 {
		t.Fatalf("len(Parts) = %d, want 3", len(m.Content.Parts))
	}

	want := "What city do you want the weather for?\nhello world"
	if got := m.Content.Flatten(); got != want {
		t.Errorf("Flatten() = %q, want %q", got, want)
	}
}

func TestContentMarshal_RoundTrip(t *testing.T) {
	m := openai.Message{
		Role: openai.RoleUser,
		Content: openai.PartsContent([]openai.ContentPart{
			{Type: "text", Text: "a"},
			{Type: "image_url", ImageURL: &openai.ImageURL{URL: "https://x/y.png"}},
		}),
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back openai.Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back.Content.Parts) != 2 {
		t.Errorf("round trip lost parts: got %d, want 2", len(back.Content.Parts))
	}
}

func TestContentMarshal_PlainString(t *testing.T) {
	m := openai.UserMessage("just text")
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"role":"user","content":"just text"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestMessage_ToolCallOnly(t *testing.T) {
	raw := `{"role":"assistant","tool_calls":[{"id":"c1","type":"function","function":{"name":"get_weather","arguments":"{}"}}]}`
	var m openai.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m.Content != nil {
		t.Errorf("Content = %v, want nil for tool-call-only turn", m.Content)
	}
	if len(m.ToolCalls) != 1 || m.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("ToolCalls = %+v, want one get_weather call", m.ToolCalls)
	}
}
