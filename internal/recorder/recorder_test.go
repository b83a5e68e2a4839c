package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/teller/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.ChatSession{}, &models.TraceStep{},
		&models.ChatMessage{}, &models.ToolInvocation{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func sampleTurn(sessionID, traceID, specialist string, started time.Time) Turn {
	finished := started.Add(120 * time.Millisecond)
	return Turn{
		SessionID: sessionID,
		TraceID:   traceID,
		Started:   started,
		Finished:  finished,
		Steps: []models.TraceStep{{
			TraceStepID:      models.NewID("step"),
			SessionID:        sessionID,
			TraceID:          traceID,
			UserID:           "user_1",
			TargetSpecialist: specialist,
			StepOrder:        1,
			ExecutionStart:   started,
			ExecutionEnd:     finished,
			DurationMS:       120,
			Success:          true,
		}},
		Messages: []models.ChatMessage{
			{
				MessageID: models.NewID("msg"), SessionID: sessionID, TraceID: traceID,
				UserID: "user_1", RoutingStep: 1, MessageType: models.MessageHuman,
				Content: "What's my balance?", TraceEnd: finished,
			},
			{
				MessageID: models.NewID("msg"), SessionID: sessionID, TraceID: traceID,
				UserID: "user_1", RoutingStep: 2, MessageType: models.MessageAI,
				Content: "Your balance is $500.", SpecialistName: specialist, TraceEnd: finished,
			},
		},
		Invocations: []models.ToolInvocation{{
			ToolCallID: models.NewID("call"), SessionID: sessionID, TraceID: traceID,
			ToolID: "tool_1", ToolName: "get_user_accounts", ToolInput: "{}",
			Status: models.ToolStatusSuccess, ExecutingSpecialist: specialist,
		}},
	}
}

func TestRecordTurn_CommitsAndAggregates(t *testing.T) {
	db := openTestDB(t)
	rec := New(db)
	ctx := context.Background()

	session, err := rec.BeginSession(ctx, "user_1", "Balances")
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}

	start := time.Now()
	if err := rec.RecordTurn(ctx, sampleTurn(session.SessionID, "trace_1", "account", start)); err != nil {
		t.Fatalf("record turn: %v", err)
	}
	if err := rec.RecordTurn(ctx, sampleTurn(session.SessionID, "trace_2", "support", start.Add(time.Second))); err != nil {
		t.Fatalf("record turn: %v", err)
	}

	got, err := rec.Session(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got.TotalAgentsUsed != 2 {
		t.Errorf("TotalAgentsUsed = %d, want 2", got.TotalAgentsUsed)
	}
	var names []string
	json.Unmarshal([]byte(got.AgentNamesUsed), &names)
	if len(names) != 2 || names[0] != "account" || names[1] != "support" {
		t.Errorf("AgentNamesUsed = %v, want ordered set [account support]", names)
	}
	if got.DurationMS != 240 {
		t.Errorf("DurationMS = %d, want cumulative 240", got.DurationMS)
	}

	history, err := rec.History(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("len(history) = %d, want 4", len(history))
	}
	if history[0].MessageType != models.MessageHuman || history[1].MessageType != models.MessageAI {
		t.Errorf("history order wrong: %q then %q", history[0].MessageType, history[1].MessageType)
	}
}

func TestRecordTurn_RepeatSpecialistNotDoubleCounted(t *testing.T) {
	db := openTestDB(t)
	rec := New(db)
	ctx := context.Background()

	session, _ := rec.BeginSession(ctx, "user_1", "")
	start := time.Now()
	rec.RecordTurn(ctx, sampleTurn(session.SessionID, "trace_1", "account", start))
	rec.RecordTurn(ctx, sampleTurn(session.SessionID, "trace_2", "account", start.Add(time.Second)))

	got, _ := rec.Session(ctx, session.SessionID)
	if got.TotalAgentsUsed != 1 {
		t.Errorf("TotalAgentsUsed = %d, want 1", got.TotalAgentsUsed)
	}
}

func TestRecordTurn_Atomic(t *testing.T) {
	db := openTestDB(t)
	rec := New(db)
	ctx := context.Background()

	session, _ := rec.BeginSession(ctx, "user_1", "")
	before, _ := rec.Session(ctx, session.SessionID)

	turn := sampleTurn(session.SessionID, "trace_1", "account", time.Now())
	// Duplicate primary key forces the last insert to fail.
	turn.Messages = append(turn.Messages, turn.Messages[0])

	if err := rec.RecordTurn(ctx, turn); err == nil {
		t.Fatal("expected record turn to fail")
	}

	var steps, messages, invocations int64
	db.Model(&models.TraceStep{}).Count(&steps)
	db.Model(&models.ChatMessage{}).Count(&messages)
	db.Model(&models.ToolInvocation{}).Count(&invocations)
	if steps != 0 || messages != 0 || invocations != 0 {
		t.Errorf("partial commit: steps=%d messages=%d invocations=%d, want all 0",
			steps, messages, invocations)
	}
	after, _ := rec.Session(ctx, session.SessionID)
	if after.TotalAgentsUsed != before.TotalAgentsUsed || after.DurationMS != before.DurationMS {
		t.Error("session aggregates mutated by a failed turn")
	}
}

func TestRecordTurn_UnknownSession(t *testing.T) {
	rec := New(openTestDB(t))
	err := rec.RecordTurn(context.Background(), sampleTurn("sess_missing", "trace_1", "account", time.Now()))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestClearSession_ScopedPurge(t *testing.T) {
	db := openTestDB(t)
	rec := New(db)
	ctx := context.Background()

	keep, _ := rec.BeginSession(ctx, "user_1", "keep")
	purge, _ := rec.BeginSession(ctx, "user_1", "purge")
	start := time.Now()
	rec.RecordTurn(ctx, sampleTurn(keep.SessionID, "trace_1", "account", start))
	rec.RecordTurn(ctx, sampleTurn(purge.SessionID, "trace_2", "support", start))

	if err := rec.ClearSession(ctx, purge.SessionID); err != nil {
		t.Fatalf("clear session: %v", err)
	}

	if _, err := rec.Session(ctx, purge.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("purged session still present: %v", err)
	}
	history, _ := rec.History(ctx, keep.SessionID)
	if len(history) != 2 {
		t.Errorf("unrelated session lost rows: len(history) = %d, want 2", len(history))
	}

	if err := rec.ClearSession(ctx, "sess_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestClearAll(t *testing.T) {
	db := openTestDB(t)
	rec := New(db)
	ctx := context.Background()

	s1, _ := rec.BeginSession(ctx, "user_1", "")
	s2, _ := rec.BeginSession(ctx, "user_2", "")
	start := time.Now()
	rec.RecordTurn(ctx, sampleTurn(s1.SessionID, "trace_1", "account", start))
	rec.RecordTurn(ctx, sampleTurn(s2.SessionID, "trace_2", "support", start))

	if err := rec.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	for _, model := range []any{
		&models.ChatSession{}, &models.TraceStep{}, &models.ChatMessage{}, &models.ToolInvocation{},
	} {
		var count int64
		db.Model(model).Count(&count)
		if count != 0 {
			t.Errorf("%T rows = %d, want 0", model, count)
		}
	}
}

func TestLockSession_TotalOrder(t *testing.T) {
	db := openTestDB(t)
	rec := New(db)
	ctx := context.Background()

	session, _ := rec.BeginSession(ctx, "user_1", "")

	const turns = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	order := 0
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := rec.LockSession(session.SessionID)
			defer unlock()

			mu.Lock()
			order++
			step := order
			mu.Unlock()

			turn := sampleTurn(session.SessionID, models.NewID("trace"), "account", time.Now())
			turn.Steps[0].StepOrder = step
			if err := rec.RecordTurn(ctx, turn); err != nil {
				t.Errorf("record turn: %v", err)
			}
		}()
	}
	wg.Wait()

	steps, err := rec.TraceSteps(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("trace steps: %v", err)
	}
	if len(steps) != turns {
		t.Fatalf("len(steps) = %d, want %d", len(steps), turns)
	}
	seen := make(map[int]bool)
	for _, s := range steps {
		if seen[s.StepOrder] {
			t.Errorf("duplicate step order %d: turns interleaved", s.StepOrder)
		}
		seen[s.StepOrder] = true
	}
}
