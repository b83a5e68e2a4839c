package turn

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/teller/internal/alerts"
	"github.com/zulandar/teller/internal/bank"
	"github.com/zulandar/teller/internal/coordinator"
	"github.com/zulandar/teller/internal/db"
	"github.com/zulandar/teller/internal/dispatch"
	"github.com/zulandar/teller/internal/docs"
	"github.com/zulandar/teller/internal/executor"
	"github.com/zulandar/teller/internal/llm"
	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/recorder"
	"github.com/zulandar/teller/internal/registry"
	"github.com/zulandar/teller/internal/tools"
	"github.com/zulandar/teller/internal/widget"
	"gorm.io/gorm"
)

type fixture struct {
	gdb      *gorm.DB
	pipeline *Pipeline
	recorder *recorder.Recorder
	bank     *bank.Store
}

func newFixture(t *testing.T, engine llm.Engine, timeout time.Duration) *fixture {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	if err := db.SeedCatalog(gdb); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	bankStore := bank.NewStore(gdb)
	deps := tools.Deps{
		Bank:    bankStore,
		Docs:    docs.NewStore(gdb),
		Widgets: widget.NewEngine(gdb),
		Alerts:  &alerts.Mock{},
	}
	reg, err := registry.Load(gdb, tools.BuildImpls(deps))
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	rec := recorder.New(gdb)
	ex := executor.New(engine, dispatch.New(reg, 0, io.Discard), reg, io.Discard)
	return &fixture{
		gdb:      gdb,
		pipeline: New(coordinator.NewRouter(), ex, rec, timeout, io.Discard),
		recorder: rec,
		bank:     bankStore,
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func request(sessionID, text string) Request {
	return Request{
		UserID:    "user_1",
		SessionID: sessionID,
		Messages:  []Message{{Role: "human", Content: text}},
	}
}

func TestProcess_BalanceTurn(t *testing.T) {
	engine := llm.NewScriptEngine(
		llm.Call("call_1", "get_user_accounts", `{}`),
		llm.Text("Your checking account has a balance of $500.00."),
	)
	f := newFixture(t, engine, 0)
	ctx := context.Background()

	f.bank.CreateAccount(ctx, "user_1", "checking", "Checking", dec("500.00"))
	session, _ := f.recorder.BeginSession(ctx, "user_1", "Balances")

	resp, err := f.pipeline.Process(ctx, request(session.SessionID, "What's my balance?"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(resp.Response, "$500") {
		t.Errorf("Response = %q, want mention of $500", resp.Response)
	}
	if resp.Specialist != registry.SpecialistAccount {
		t.Errorf("Specialist = %q, want account", resp.Specialist)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "get_user_accounts" {
		t.Errorf("ToolsUsed = %v", resp.ToolsUsed)
	}
	if resp.WidgetCreated {
		t.Error("no widget was created this turn")
	}

	var steps, invocations, messages int64
	f.gdb.Model(&models.TraceStep{}).Where("trace_id = ?", resp.TraceID).Count(&steps)
	f.gdb.Model(&models.ToolInvocation{}).Where("trace_id = ?", resp.TraceID).Count(&invocations)
	f.gdb.Model(&models.ChatMessage{}).Where("trace_id = ?", resp.TraceID).Count(&messages)
	if steps != 1 {
		t.Errorf("trace steps = %d, want 1", steps)
	}
	if invocations != 1 {
		t.Errorf("tool invocations = %d, want 1", invocations)
	}
	if messages < 2 {
		t.Errorf("chat messages = %d, want at least 2", messages)
	}

	// Tool messages pair one-to-one with invocation rows.
	var toolMessages int64
	f.gdb.Model(&models.ChatMessage{}).
		Where("trace_id = ? AND message_type = ?", resp.TraceID, models.MessageTool).
		Count(&toolMessages)
	if toolMessages != invocations {
		t.Errorf("tool messages = %d, invocations = %d", toolMessages, invocations)
	}
}

func TestProcess_GoalWidgetTurn(t *testing.T) {
	engine := llm.NewScriptEngine(
		llm.Call("call_1", "create_widget", `{
			"title":"Vacation savings",
			"widget_type":"goal",
			"data_mode":"dynamic",
			"query_type":"goal_savings_progress",
			"target_amount":5000,
			"target_date":"2025-12-31"}`),
		llm.Text("Your vacation savings goal is set up on your dashboard."),
	)
	f := newFixture(t, engine, 0)
	ctx := context.Background()

	f.bank.CreateAccount(ctx, "user_1", "savings", "Vacation Fund", dec("1250.00"))
	session, _ := f.recorder.BeginSession(ctx, "user_1", "")

	resp, err := f.pipeline.Process(ctx, request(session.SessionID, "Save $5000 for a vacation by 2025-12-31"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Specialist != registry.SpecialistVisualization {
		t.Errorf("Specialist = %q, want visualization", resp.Specialist)
	}
	if !resp.WidgetCreated || resp.WidgetType != models.WidgetGoal {
		t.Errorf("widget effect = created=%v type=%q", resp.WidgetCreated, resp.WidgetType)
	}
	if resp.GoalType != "goal_savings_progress" {
		t.Errorf("GoalType = %q", resp.GoalType)
	}

	var w models.Widget
	if err := f.gdb.Where("user_id = ?", "user_1").First(&w).Error; err != nil {
		t.Fatalf("widget row: %v", err)
	}
	if w.DataMode != models.DataModeDynamic || w.QueryConfig == nil {
		t.Errorf("widget = %+v, want dynamic with query config", w)
	}
}

func TestProcess_UpstreamToolFailureStillCommits(t *testing.T) {
	engine := llm.NewScriptEngine(
		llm.Call("call_1", "search_support_documents", `{"user_question":"what are the fees?"}`),
		llm.Text("I'm sorry, I couldn't look that up just now. Please try again."),
	)
	f := newFixture(t, engine, 0)
	ctx := context.Background()
	session, _ := f.recorder.BeginSession(ctx, "user_1", "")

	// Drop the table behind the tool so the store call fails.
	if err := f.gdb.Migrator().DropTable(&models.SupportDocument{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	resp, err := f.pipeline.Process(ctx, request(session.SessionID, "What are the overdraft fees?"))
	if err != nil {
		t.Fatalf("a failed tool must not fail the turn: %v", err)
	}
	if strings.Contains(resp.Response, "SQL") || strings.Contains(resp.Response, "table") {
		t.Errorf("internal error text leaked: %q", resp.Response)
	}

	var inv models.ToolInvocation
	if err := f.gdb.Where("trace_id = ?", resp.TraceID).First(&inv).Error; err != nil {
		t.Fatalf("invocation row: %v", err)
	}
	if inv.Status != models.ToolStatusError || inv.ToolOutput != nil {
		t.Errorf("invocation = %+v, want status=error with null output", inv)
	}
}

func TestProcess_TimeoutDiscardsTrace(t *testing.T) {
	slow := &slowEngine{delay: 200 * time.Millisecond}
	f := newFixture(t, slow, 20*time.Millisecond)
	ctx := context.Background()
	session, _ := f.recorder.BeginSession(ctx, "user_1", "")

	_, err := f.pipeline.Process(ctx, request(session.SessionID, "What's my balance?"))
	if !errors.Is(err, ErrTurnTimeout) {
		t.Fatalf("error = %v, want ErrTurnTimeout", err)
	}

	var steps, messages int64
	f.gdb.Model(&models.TraceStep{}).Count(&steps)
	f.gdb.Model(&models.ChatMessage{}).Count(&messages)
	if steps != 0 || messages != 0 {
		t.Errorf("timed-out turn left rows: steps=%d messages=%d", steps, messages)
	}
}

func TestProcess_UnknownSession(t *testing.T) {
	f := newFixture(t, llm.NewScriptEngine(llm.Text("hi")), 0)
	_, err := f.pipeline.Process(context.Background(), request("sess_missing", "hello"))
	if !errors.Is(err, recorder.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

type slowEngine struct {
	delay time.Duration
}

func (s *slowEngine) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return llm.Text("too late"), nil
	}
}
