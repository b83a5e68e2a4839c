// Package llm abstracts the reasoning engine: given a conversation and a
// tool catalog, it returns either final text or exactly one tool-call
// request. Teller never interprets model output beyond that contract.
package llm

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation entry presented to the engine.
type Message struct {
	Role       string
	Content    string
	Name       string // tool name, for tool-result messages
	ToolCallID string // set on tool-result messages
	ToolCall   *ToolCallRequest
}

// ToolSpec describes one tool offered to the engine.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Request is one completion request.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// ToolCallRequest is the engine asking for one tool invocation.
type ToolCallRequest struct {
	ID   string
	Name string
	Args json.RawMessage
}

// Usage reports token counts for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the engine's answer: Text when final, ToolCall when the
// engine wants a tool run first. Exactly one of the two is meaningful per
// response; ToolCall wins when set.
type Completion struct {
	Text         string
	ToolCall     *ToolCallRequest
	Model        string
	FinishReason string
	Usage        Usage
}

// Engine is the opaque reasoning capability.
type Engine interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
