package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to an OpenAI-compatible chat-completions endpoint. Any
// service speaking that dialect works; Teller only uses non-streaming
// completions with optional tool definitions.
type Client struct {
	http  *resty.Client
	model string
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL string // e.g. https://api.openai.com/v1
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates a reasoning-engine client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("llm: base URL is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	http := resty.New()
	http.SetBaseURL(opts.BaseURL)
	http.SetTimeout(timeout)
	if opts.APIKey != "" {
		http.SetAuthToken(opts.APIKey)
	}

	return &Client{http: http, model: opts.Model}, nil
}

// Wire types for the chat-completions dialect.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the conversation and tool catalog and maps the reply to
// either final text or one tool-call request. When the model asks for
// several calls at once, only the first is honored; the loop re-asks after
// each result, so nothing is lost.
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	body := wireRequest{Model: c.model}

	if req.System != "" {
		body.Messages = append(body.Messages, wireMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		wm := wireMessage{Role: m.Role, Content: m.Content, Name: m.Name, ToolCallID: m.ToolCallID}
		if m.ToolCall != nil {
			wm.ToolCalls = []wireToolCall{{
				ID:   m.ToolCall.ID,
				Type: "function",
				Function: wireFunction{
					Name:      m.ToolCall.Name,
					Arguments: string(m.ToolCall.Args),
				},
			}}
		}
		body.Messages = append(body.Messages, wm)
	}
	for _, ts := range req.Tools {
		body.Tools = append(body.Tools, wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  ts.InputSchema,
			},
		})
	}

	var parsed wireResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("llm: complete: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("llm: complete: %s", msg)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llm: complete: empty choices")
	}

	choice := parsed.Choices[0]
	out := &Completion{
		Text:         choice.Message.Content,
		Model:        parsed.Model,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		out.ToolCall = &ToolCallRequest{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		}
	}
	return out, nil
}
