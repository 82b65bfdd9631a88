// Package openai holds the chat-completions wire types the gateway speaks on
// both sides: the client-facing surface and the upstream provider calls.
//
// Only the fields the gateway inspects are typed; unknown fields in inbound
// request bodies are preserved by the proxy pipeline, which re-serializes the
// generic JSON document rather than these structs.
package openai

import (
	"encoding/json"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ContentPart is one element of a multi-part message content array.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries the url of an image content part.
type ImageURL struct {
	URL string `json:"url"`
}

// Content is either a plain string or an ordered sequence of typed parts.
// It round-trips both JSON shapes.
type Content struct {
	Text  string
	Parts []ContentPart

	multipart bool
}

// TextContent wraps a plain string as message content.
func TextContent(s string) *Content {
	return &Content{Text: s}
}

// PartsContent wraps a part list as message content.
func PartsContent(parts []ContentPart) *Content {
	return &Content{Parts: parts, multipart: true}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.multipart = false
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	c.Parts = parts
	c.multipart = true
	c.Text = ""
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.multipart {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// Flatten returns the textual view of the content: the string itself, or the
// text parts joined with newlines. Image parts carry no text and are skipped.
func (c *Content) Flatten() string {
	if c == nil {
		return ""
	}
	if !c.multipart {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Message is a single conversation turn. A nil Content with non-empty
// ToolCalls is an assistant turn that only invokes tools.
type Message struct {
	Role       string     `json:"role"`
	Content    *Content   `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// UserMessage builds a plain-text user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: TextContent(text)}
}

// ToolCall is a tool invocation attached to an assistant turn.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the invoked function and its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// ChatCompletionsRequest is the subset of the chat-completions request the
// gateway reads and constructs.
type ChatCompletionsRequest struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChatCompletionsResponse is the non-streaming chat-completions reply shape.
type ChatCompletionsResponse struct {
	ID      string   `json:"id,omitempty"`
	Object  string   `json:"object,omitempty"`
	Created int64    `json:"created,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion candidate.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ModelList is the OpenAI-style /v1/models listing object.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Model is one entry in a ModelList.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}
