package dispatch

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/registry"
)

func newTestRegistry(t *testing.T, invoke registry.InvokeFunc) *registry.Registry {
	t.Helper()
	reg := registry.New()
	if err := reg.RegisterTool(&registry.Tool{
		ID:          "tool_echo",
		Name:        "echo",
		InputSchema: `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		Invoke:      invoke,
	}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	if err := reg.RegisterSpecialist(&registry.Specialist{
		Name:      "support",
		ToolNames: []string{"echo"},
	}); err != nil {
		t.Fatalf("register specialist: %v", err)
	}
	return reg
}

func testCall() registry.Call {
	return registry.Call{
		UserID:     "user_1",
		SessionID:  "sess_1",
		TraceID:    "trace_1",
		Specialist: "support",
		Effects:    &registry.Effects{},
	}
}

func TestDispatch_Success(t *testing.T) {
	reg := newTestRegistry(t, func(ctx context.Context, call registry.Call) (string, error) {
		return `{"echoed":true}`, nil
	})
	d := New(reg, 0, io.Discard)

	out, inv, toolErr := d.Dispatch(context.Background(), Request{
		ToolCallID: "call_1", Name: "echo", Args: map[string]any{"text": "hi"},
	}, testCall())
	if toolErr != nil {
		t.Fatalf("dispatch: %v", toolErr)
	}
	if out != `{"echoed":true}` {
		t.Errorf("output = %q", out)
	}
	if inv.Status != models.ToolStatusSuccess {
		t.Errorf("Status = %q, want success", inv.Status)
	}
	if inv.ToolOutput == nil || *inv.ToolOutput != out {
		t.Error("audit row should carry the output")
	}
	if inv.ToolID != "tool_echo" || inv.ExecutingSpecialist != "support" {
		t.Errorf("audit row = %+v", inv)
	}
}

func TestDispatch_NotAuthorized(t *testing.T) {
	reg := newTestRegistry(t, func(ctx context.Context, call registry.Call) (string, error) {
		t.Fatal("tool body must not run")
		return "", nil
	})
	reg.RegisterSpecialist(&registry.Specialist{Name: "fraud", ToolNames: []string{}})
	d := New(reg, 0, io.Discard)

	call := testCall()
	call.Specialist = "fraud"
	_, inv, toolErr := d.Dispatch(context.Background(), Request{
		ToolCallID: "call_1", Name: "echo", Args: map[string]any{"text": "hi"},
	}, call)
	if toolErr == nil || toolErr.Kind != registry.ErrNotAuthorized {
		t.Fatalf("error = %v, want not_authorized", toolErr)
	}
	if inv.Status != models.ToolStatusError || inv.ToolOutput != nil {
		t.Errorf("audit row = %+v, want status=error with null output", inv)
	}
}

func TestDispatch_InvalidArgumentsSkipsBody(t *testing.T) {
	ran := false
	reg := newTestRegistry(t, func(ctx context.Context, call registry.Call) (string, error) {
		ran = true
		return "", nil
	})
	d := New(reg, 0, io.Discard)

	_, inv, toolErr := d.Dispatch(context.Background(), Request{
		ToolCallID: "call_1", Name: "echo", Args: map[string]any{},
	}, testCall())
	if toolErr == nil || toolErr.Kind != registry.ErrInvalidArguments {
		t.Fatalf("error = %v, want invalid_arguments", toolErr)
	}
	if ran {
		t.Error("tool body ran despite invalid arguments")
	}
	if inv.Status != models.ToolStatusError {
		t.Errorf("Status = %q, want error", inv.Status)
	}
}

func TestDispatch_UpstreamFailure(t *testing.T) {
	reg := newTestRegistry(t, func(ctx context.Context, call registry.Call) (string, error) {
		return "", errors.New("connection refused")
	})
	d := New(reg, 0, io.Discard)

	_, inv, toolErr := d.Dispatch(context.Background(), Request{
		ToolCallID: "call_1", Name: "echo", Args: map[string]any{"text": "hi"},
	}, testCall())
	if toolErr == nil || toolErr.Kind != registry.ErrUpstreamFailure {
		t.Fatalf("error = %v, want upstream_failure", toolErr)
	}
	if inv.ToolOutput != nil {
		t.Error("failed call must record null output")
	}
}

func TestDispatch_Timeout(t *testing.T) {
	reg := newTestRegistry(t, func(ctx context.Context, call registry.Call) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "too late", nil
		}
	})
	d := New(reg, 10*time.Millisecond, io.Discard)

	_, _, toolErr := d.Dispatch(context.Background(), Request{
		ToolCallID: "call_1", Name: "echo", Args: map[string]any{"text": "hi"},
	}, testCall())
	if toolErr == nil || toolErr.Kind != registry.ErrTimeout {
		t.Fatalf("error = %v, want timeout", toolErr)
	}
}

func TestDispatch_PreservesTypedToolErrors(t *testing.T) {
	reg := newTestRegistry(t, func(ctx context.Context, call registry.Call) (string, error) {
		return "", registry.NewToolError(registry.ErrInvalidArguments, "echo", "no such account", nil)
	})
	d := New(reg, 0, io.Discard)

	_, _, toolErr := d.Dispatch(context.Background(), Request{
		ToolCallID: "call_1", Name: "echo", Args: map[string]any{"text": "hi"},
	}, testCall())
	if toolErr == nil || toolErr.Kind != registry.ErrInvalidArguments {
		t.Fatalf("error = %v, want the tool's own invalid_arguments", toolErr)
	}
	if toolErr.Message != "no such account" {
		t.Errorf("Message = %q", toolErr.Message)
	}
}
