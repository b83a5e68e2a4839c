// Package dispatch executes requested tool calls against validated
// arguments. Every call, failed or not, yields exactly one ToolInvocation
// audit row, and every failure crossing this boundary is a typed
// *registry.ToolError. The dispatcher never retries: a failed call is
// reported once and the reasoning loop decides what to do next.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/registry"
)

// Request is one tool call requested by the reasoning engine.
type Request struct {
	ToolCallID string
	Name       string
	Args       map[string]any
}

// Dispatcher resolves tool calls against the registry.
type Dispatcher struct {
	reg         *registry.Registry
	callTimeout time.Duration
	out         io.Writer
}

// New creates a Dispatcher. callTimeout bounds each individual tool body;
// zero means the caller's context is the only bound.
func New(reg *registry.Registry, callTimeout time.Duration, out io.Writer) *Dispatcher {
	return &Dispatcher{reg: reg, callTimeout: callTimeout, out: out}
}

// Dispatch runs one tool call for the active specialist. It returns the
// tool's serialized output, the audit row for the call, and on failure a
// typed ToolError. The audit row is always non-nil; on failure it carries
// Status=error and a null ToolOutput.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, call registry.Call) (string, *models.ToolInvocation, *registry.ToolError) {
	input, err := json.Marshal(req.Args)
	if err != nil {
		input = []byte("{}")
	}
	inv := &models.ToolInvocation{
		ToolCallID:          req.ToolCallID,
		SessionID:           call.SessionID,
		TraceID:             call.TraceID,
		ToolName:            req.Name,
		ToolInput:           string(input),
		Status:              models.ToolStatusError,
		ExecutingSpecialist: call.Specialist,
	}

	if !d.reg.Authorized(call.Specialist, req.Name) {
		return "", inv, d.fail(inv, registry.NewToolError(registry.ErrNotAuthorized, req.Name,
			fmt.Sprintf("tool %q is not in the %s specialist's catalog", req.Name, call.Specialist), nil))
	}
	tool, ok := d.reg.Tool(req.Name)
	if !ok {
		return "", inv, d.fail(inv, registry.NewToolError(registry.ErrNotAuthorized, req.Name,
			fmt.Sprintf("tool %q is not registered", req.Name), nil))
	}
	inv.ToolID = tool.ID

	if toolErr := registry.ValidateArgs(tool, req.Args); toolErr != nil {
		return "", inv, d.fail(inv, toolErr)
	}

	callCtx := ctx
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	call.Args = req.Args
	start := time.Now()
	output, invokeErr := tool.Invoke(callCtx, call)
	inv.ExecutionTimeMS = time.Since(start).Milliseconds()

	if invokeErr != nil {
		var toolErr *registry.ToolError
		switch {
		case errors.As(invokeErr, &toolErr):
		case errors.Is(invokeErr, context.DeadlineExceeded):
			toolErr = registry.NewToolError(registry.ErrTimeout, req.Name,
				"the operation took too long and was cancelled", invokeErr)
		default:
			toolErr = registry.NewToolError(registry.ErrUpstreamFailure, req.Name,
				"a downstream service failed while handling the request", invokeErr)
		}
		return "", inv, d.fail(inv, toolErr)
	}

	inv.Status = models.ToolStatusSuccess
	inv.ToolOutput = &output
	return output, inv, nil
}

func (d *Dispatcher) fail(inv *models.ToolInvocation, toolErr *registry.ToolError) *registry.ToolError {
	if d.out != nil {
		fmt.Fprintf(d.out, "dispatch: trace=%s tool=%s kind=%s: %v\n",
			inv.TraceID, inv.ToolName, toolErr.Kind, toolErr)
	}
	return toolErr
}
