package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptEngine implements Engine for testing. It replays a fixed sequence
// of completions and records every request it receives.
type ScriptEngine struct {
	mu       sync.Mutex
	script   []*Completion
	pos      int
	requests []Request
	err      error
}

// NewScriptEngine creates a ScriptEngine that returns the given
// completions in order.
func NewScriptEngine(script ...*Completion) *ScriptEngine {
	return &ScriptEngine{script: script}
}

// FailWith makes every subsequent Complete call return err.
func (s *ScriptEngine) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Complete returns the next scripted completion.
func (s *ScriptEngine) Complete(ctx context.Context, req Request) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.pos >= len(s.script) {
		return nil, fmt.Errorf("script engine: no completion scripted for call %d", s.pos+1)
	}
	c := s.script[s.pos]
	s.pos++
	return c, nil
}

// Requests returns a copy of every request seen so far.
func (s *ScriptEngine) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns how many times Complete was invoked.
func (s *ScriptEngine) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Text builds a final-text completion with plausible usage numbers.
func Text(content string) *Completion {
	return &Completion{
		Text:         content,
		Model:        "script",
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60},
	}
}

// Call builds a tool-call completion.
func Call(id, name, args string) *Completion {
	return &Completion{
		ToolCall:     &ToolCallRequest{ID: id, Name: name, Args: []byte(args)},
		Model:        "script",
		FinishReason: "tool_calls",
		Usage:        Usage{PromptTokens: 50, CompletionTokens: 15, TotalTokens: 65},
	}
}
