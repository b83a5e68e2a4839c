// Package executor runs one specialist's reasoning loop: present the
// conversation and toolset to the engine, dispatch at most one tool call
// per iteration, fold the result back in, and repeat until the engine
// produces final text. The loop is bounded; hitting the cap yields a
// degraded but complete answer, never a failure response.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zulandar/teller/internal/dispatch"
	"github.com/zulandar/teller/internal/llm"
	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/registry"
)

// DefaultMaxIterations caps the reasoning loop.
const DefaultMaxIterations = 6

// DegradedAnswer is returned when the iteration cap is hit.
const DegradedAnswer = "I couldn't complete this safely. I've stopped partway " +
	"through to avoid making unintended changes; please try rephrasing your request."

// Result is the outcome of one specialist run.
type Result struct {
	FinalText   string
	Messages    []models.ChatMessage
	Invocations []models.ToolInvocation
	ToolsUsed   []string
	Degraded    bool
}

// Executor wraps the reasoning engine and the tool dispatcher.
type Executor struct {
	engine        llm.Engine
	dispatcher    *dispatch.Dispatcher
	reg           *registry.Registry
	out           io.Writer
	maxIterations int
}

// New creates an Executor.
func New(engine llm.Engine, dispatcher *dispatch.Dispatcher, reg *registry.Registry, out io.Writer) *Executor {
	return &Executor{
		engine:        engine,
		dispatcher:    dispatcher,
		reg:           reg,
		out:           out,
		maxIterations: DefaultMaxIterations,
	}
}

// Run executes the bounded loop for the specialist named in call. history
// is the conversation so far, latest user message last. routingStep is the
// step number to assign to the first message this run emits; it increments
// per emitted message. Tool failures are folded into the conversation and
// never fail the run; only engine failures do.
func (e *Executor) Run(ctx context.Context, call registry.Call, history []llm.Message, routingStep int) (*Result, error) {
	spec, ok := e.reg.Specialist(call.Specialist)
	if !ok {
		return nil, fmt.Errorf("executor: unknown specialist %q", call.Specialist)
	}
	toolset, err := e.reg.Toolset(call.Specialist)
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}
	specs := make([]llm.ToolSpec, len(toolset))
	for i, t := range toolset {
		specs[i] = llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: json.RawMessage(t.InputSchema),
		}
	}
	system := strings.ReplaceAll(spec.PromptTemplate, "{{user_id}}", call.UserID)

	convo := make([]llm.Message, len(history))
	copy(convo, history)
	result := &Result{}

	for i := 0; i < e.maxIterations; i++ {
		start := time.Now()
		completion, err := e.engine.Complete(ctx, llm.Request{
			System:   system,
			Messages: convo,
			Tools:    specs,
		})
		if err != nil {
			return nil, fmt.Errorf("executor: reasoning engine: %w", err)
		}
		elapsed := time.Since(start).Milliseconds()

		aiMsg := models.ChatMessage{
			MessageID:        models.NewID("msg"),
			SessionID:        call.SessionID,
			TraceID:          call.TraceID,
			UserID:           call.UserID,
			SpecialistID:     spec.ID,
			SpecialistName:   spec.Name,
			RoutingStep:      routingStep,
			MessageType:      models.MessageAI,
			Content:          completion.Text,
			ModelName:        completion.Model,
			TotalTokens:      completion.Usage.TotalTokens,
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			FinishReason:     completion.FinishReason,
			ResponseTimeMS:   elapsed,
		}
		routingStep++

		if completion.ToolCall == nil {
			result.Messages = append(result.Messages, aiMsg)
			result.FinalText = completion.Text
			return result, nil
		}

		tc := completion.ToolCall
		aiMsg.ToolCallID = tc.ID
		result.Messages = append(result.Messages, aiMsg)
		convo = append(convo, llm.Message{Role: llm.RoleAssistant, Content: completion.Text, ToolCall: tc})

		var args map[string]any
		if len(tc.Args) > 0 {
			if err := json.Unmarshal(tc.Args, &args); err != nil {
				args = nil
			}
		}
		output, inv, toolErr := e.dispatcher.Dispatch(ctx, dispatch.Request{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Args:       args,
		}, call)
		inv.TokensUsed = completion.Usage.TotalTokens
		result.Invocations = append(result.Invocations, *inv)
		result.ToolsUsed = append(result.ToolsUsed, tc.Name)

		toolContent := output
		if toolErr != nil {
			// Fold the failure into the conversation so the engine can
			// retry, ask for clarification, or apologize.
			toolContent = fmt.Sprintf(`{"error":%q,"kind":%q}`, toolErr.Message, toolErr.Kind)
		}
		result.Messages = append(result.Messages, models.ChatMessage{
			MessageID:      models.NewID("msg"),
			SessionID:      call.SessionID,
			TraceID:        call.TraceID,
			UserID:         call.UserID,
			SpecialistID:   spec.ID,
			SpecialistName: spec.Name,
			RoutingStep:    routingStep,
			MessageType:    models.MessageTool,
			Content:        toolContent,
			ToolCallID:     tc.ID,
		})
		routingStep++
		convo = append(convo, llm.Message{
			Role:       llm.RoleTool,
			Content:    toolContent,
			Name:       tc.Name,
			ToolCallID: tc.ID,
		})
	}

	if e.out != nil {
		fmt.Fprintf(e.out, "executor: trace=%s specialist=%s iteration cap hit\n", call.TraceID, call.Specialist)
	}
	result.Messages = append(result.Messages, models.ChatMessage{
		MessageID:      models.NewID("msg"),
		SessionID:      call.SessionID,
		TraceID:        call.TraceID,
		UserID:         call.UserID,
		SpecialistID:   spec.ID,
		SpecialistName: spec.Name,
		RoutingStep:    routingStep,
		MessageType:    models.MessageAI,
		Content:        DegradedAnswer,
		FinishReason:   "iteration_cap",
	})
	result.FinalText = DegradedAnswer
	result.Degraded = true
	return result, nil
}
