package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_CompleteText(t *testing.T) {
	var gotBody wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "Your balance is $500."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 12, "total_tokens": 112}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(ClientOpts{BaseURL: srv.URL, Model: "gpt-4o-mini", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	out, err := c.Complete(context.Background(), Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "What's my balance?"}},
		Tools:    []ToolSpec{{Name: "get_user_accounts", InputSchema: json.RawMessage(`{"type":"object"}`)}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if out.Text != "Your balance is $500." {
		t.Errorf("Text = %q", out.Text)
	}
	if out.ToolCall != nil {
		t.Errorf("ToolCall = %+v, want nil", out.ToolCall)
	}
	if out.Usage.TotalTokens != 112 {
		t.Errorf("TotalTokens = %d, want 112", out.Usage.TotalTokens)
	}

	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != RoleSystem {
		t.Errorf("wire messages = %+v, want system + user", gotBody.Messages)
	}
	if len(gotBody.Tools) != 1 || gotBody.Tools[0].Function.Name != "get_user_accounts" {
		t.Errorf("wire tools = %+v", gotBody.Tools)
	}
}

func TestClient_CompleteToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "get_user_accounts", "arguments": "{}"}}]},
				"finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 90, "completion_tokens": 8, "total_tokens": 98}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(ClientOpts{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	out, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "What's my balance?"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.ToolCall == nil {
		t.Fatal("ToolCall = nil, want tool-call request")
	}
	if out.ToolCall.Name != "get_user_accounts" || out.ToolCall.ID != "call_1" {
		t.Errorf("ToolCall = %+v", out.ToolCall)
	}
	if out.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q", out.FinishReason)
	}
}

func TestClient_CompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(ClientOpts{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error from 429 response")
	}
}

func TestScriptEngine_Replays(t *testing.T) {
	s := NewScriptEngine(
		Call("call_1", "get_user_accounts", "{}"),
		Text("done"),
	)

	first, err := s.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("complete 1: %v", err)
	}
	if first.ToolCall == nil || first.ToolCall.Name != "get_user_accounts" {
		t.Errorf("first = %+v", first)
	}

	second, err := s.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("complete 2: %v", err)
	}
	if second.Text != "done" {
		t.Errorf("second.Text = %q", second.Text)
	}

	if _, err := s.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error when script is exhausted")
	}
	if s.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", s.Calls())
	}
}
