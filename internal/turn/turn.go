// Package turn runs one conversational turn end to end: route the message
// to a specialist, run the reasoning loop, and commit the full audit trail
// as one unit. A turn that times out or fails to persist leaves no rows
// behind and reports a retryable error.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zulandar/teller/internal/coordinator"
	"github.com/zulandar/teller/internal/executor"
	"github.com/zulandar/teller/internal/llm"
	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/recorder"
	"github.com/zulandar/teller/internal/registry"
)

// ErrTurnTimeout is returned when the turn-level deadline expires. The
// trace is discarded; the caller may retry.
var ErrTurnTimeout = errors.New("turn: timed out")

// Message is one inbound conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one inbound turn: the conversation so far with the new user
// message last.
type Request struct {
	UserID    string
	SessionID string
	Messages  []Message
}

// Response is the turn's outcome for the caller.
type Response struct {
	Response      string
	SessionID     string
	TraceID       string
	Specialist    string
	WidgetCreated bool
	WidgetType    string
	GoalType      string
	ToolsUsed     []string
}

// Pipeline wires the router, executor, and recorder into one turn flow.
type Pipeline struct {
	router   *coordinator.Router
	executor *executor.Executor
	recorder *recorder.Recorder
	timeout  time.Duration
	out      io.Writer
}

// New creates a Pipeline. timeout bounds the whole turn: routing, the full
// reasoning loop, and the commit.
func New(router *coordinator.Router, ex *executor.Executor, rec *recorder.Recorder, timeout time.Duration, out io.Writer) *Pipeline {
	return &Pipeline{router: router, executor: ex, recorder: rec, timeout: timeout, out: out}
}

// Process runs one turn. Turns against the same session are serialized;
// the session lock is held across the commit.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("turn: no messages")
	}
	latest := req.Messages[len(req.Messages)-1].Content

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	unlock := p.recorder.LockSession(req.SessionID)
	defer unlock()

	if _, err := p.recorder.Session(ctx, req.SessionID); err != nil {
		return nil, err
	}

	started := time.Now()
	traceID := models.NewID("trace")
	decision := p.router.Route(historyTexts(req.Messages), latest)
	if p.out != nil {
		fmt.Fprintf(p.out, "turn: trace=%s session=%s routed to %s (%s)\n",
			traceID, req.SessionID, decision.Target, decision.Reason)
	}

	call := registry.Call{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		TraceID:    traceID,
		Specialist: decision.Target,
		Effects:    &registry.Effects{},
	}
	result, err := p.executor.Run(ctx, call, toEngineMessages(req.Messages), 2)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTurnTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("turn: cancelled: %w", err)
		}
		return nil, err
	}
	finished := time.Now()
	// A deadline that fired during the loop means a partial trace: discard.
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTurnTimeout
		}
		return nil, fmt.Errorf("turn: cancelled: %w", ctx.Err())
	}

	messages := make([]models.ChatMessage, 0, len(result.Messages)+1)
	messages = append(messages, models.ChatMessage{
		MessageID:   models.NewID("msg"),
		SessionID:   req.SessionID,
		TraceID:     traceID,
		UserID:      req.UserID,
		RoutingStep: 1,
		MessageType: models.MessageHuman,
		Content:     latest,
	})
	messages = append(messages, result.Messages...)
	for i := range messages {
		messages[i].TraceEnd = finished
	}

	step := models.TraceStep{
		TraceStepID:      models.NewID("step"),
		SessionID:        req.SessionID,
		TraceID:          traceID,
		UserID:           req.UserID,
		TargetSpecialist: decision.Target,
		StepOrder:        1,
		ExecutionStart:   started,
		ExecutionEnd:     finished,
		DurationMS:       finished.Sub(started).Milliseconds(),
		Success:          !result.Degraded,
	}
	if result.Degraded {
		step.ErrorMessage = "iteration cap exceeded"
	}

	if err := p.recorder.RecordTurn(ctx, recorder.Turn{
		SessionID:   req.SessionID,
		TraceID:     traceID,
		Steps:       []models.TraceStep{step},
		Messages:    messages,
		Invocations: result.Invocations,
		Started:     started,
		Finished:    finished,
	}); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTurnTimeout
		}
		return nil, fmt.Errorf("turn: persist: %w", err)
	}

	return &Response{
		Response:      result.FinalText,
		SessionID:     req.SessionID,
		TraceID:       traceID,
		Specialist:    decision.Target,
		WidgetCreated: call.Effects.WidgetCreated,
		WidgetType:    call.Effects.WidgetType,
		GoalType:      call.Effects.GoalType,
		ToolsUsed:     result.ToolsUsed,
	}, nil
}

func historyTexts(messages []Message) []string {
	texts := make([]string, 0, len(messages))
	for _, m := range messages[:len(messages)-1] {
		texts = append(texts, m.Content)
	}
	return texts
}

// toEngineMessages maps inbound roles onto the engine's vocabulary. The
// UI sends human/ai; API callers may already use user/assistant.
func toEngineMessages(messages []Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleUser
		switch m.Role {
		case "ai", llm.RoleAssistant:
			role = llm.RoleAssistant
		case "human", llm.RoleUser, "":
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
