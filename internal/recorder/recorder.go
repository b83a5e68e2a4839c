// Package recorder owns the session lifecycle and the audit trail. A
// turn's trace steps, messages, and tool-usage rows commit as one
// transaction: a partially-written trace is a correctness bug, not a
// degraded state. Per-session mutexes give turns against one session a
// total order; turns for different sessions run concurrently.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
)

// ErrSessionNotFound is returned for lookups of unknown session IDs.
var ErrSessionNotFound = errors.New("recorder: session not found")

// Turn is the full output of one conversational turn, recorded atomically.
type Turn struct {
	SessionID   string
	TraceID     string
	Steps       []models.TraceStep
	Messages    []models.ChatMessage
	Invocations []models.ToolInvocation
	Started     time.Time
	Finished    time.Time
}

// Recorder writes and reads the audit trail.
type Recorder struct {
	db    *gorm.DB
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Recorder.
func New(db *gorm.DB) *Recorder {
	return &Recorder{db: db, locks: make(map[string]*sync.Mutex)}
}

// BeginSession creates a new conversation for the user.
func (r *Recorder) BeginSession(ctx context.Context, userID, title string) (*models.ChatSession, error) {
	if title == "" {
		title = "New conversation"
	}
	session := models.ChatSession{
		SessionID:      models.NewID("sess"),
		UserID:         userID,
		Title:          title,
		AgentNamesUsed: "[]",
	}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("recorder: begin session: %w", err)
	}
	return &session, nil
}

// LockSession serializes turns for one session. It blocks until the
// session's lock is free and returns the unlock function. Callers must
// hold the lock across the whole turn, commit included.
func (r *Recorder) LockSession(sessionID string) func() {
	r.mu.Lock()
	l, ok := r.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[sessionID] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// RecordTurn commits every row of the turn and the session aggregate
// update as one unit. On any failure nothing is written.
func (r *Recorder) RecordTurn(ctx context.Context, turn Turn) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.ChatSession
		err := tx.Where("session_id = ?", turn.SessionID).First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %q", ErrSessionNotFound, turn.SessionID)
		}
		if err != nil {
			return err
		}

		for i := range turn.Steps {
			if err := tx.Create(&turn.Steps[i]).Error; err != nil {
				return err
			}
		}
		for i := range turn.Messages {
			if err := tx.Create(&turn.Messages[i]).Error; err != nil {
				return err
			}
		}
		for i := range turn.Invocations {
			if err := tx.Create(&turn.Invocations[i]).Error; err != nil {
				return err
			}
		}

		names := unionAgentNames(session.AgentNamesUsed, turn.Steps)
		encoded, err := json.Marshal(names)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"total_agents_used": len(names),
			"agent_names_used":  string(encoded),
			"updated_at":        turn.Finished,
			"duration_ms":       session.DurationMS + turn.Finished.Sub(turn.Started).Milliseconds(),
		}
		return tx.Model(&session).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("recorder: record turn: %w", err)
	}
	return nil
}

// unionAgentNames keeps the insertion-ordered set of specialists the
// session has used.
func unionAgentNames(prior string, steps []models.TraceStep) []string {
	var names []string
	if prior != "" {
		json.Unmarshal([]byte(prior), &names)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, s := range steps {
		if !seen[s.TargetSpecialist] {
			seen[s.TargetSpecialist] = true
			names = append(names, s.TargetSpecialist)
		}
	}
	if names == nil {
		names = []string{}
	}
	return names
}

// Session returns one session by ID.
func (r *Recorder) Session(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("recorder: session: %w", err)
	}
	return &session, nil
}

// Sessions lists a user's sessions, most recently active first.
func (r *Recorder) Sessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("recorder: sessions: %w", err)
	}
	return sessions, nil
}

// History returns a session's messages in conversation order: turns by
// completion time, messages within a turn by routing step.
func (r *Recorder) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("trace_end ASC, routing_step ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("recorder: history: %w", err)
	}
	return messages, nil
}

// TraceSteps returns a session's trace steps in commit order.
func (r *Recorder) TraceSteps(ctx context.Context, sessionID string) ([]models.TraceStep, error) {
	var steps []models.TraceStep
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("execution_start ASC, step_order ASC").
		Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("recorder: trace steps: %w", err)
	}
	return steps, nil
}

// ClearSession purges one session and all of its audit rows.
func (r *Recorder) ClearSession(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.ToolInvocation{}, &models.ChatMessage{}, &models.TraceStep{},
		} {
			if err := tx.Where("session_id = ?", sessionID).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("session_id = ?", sessionID).Delete(&models.ChatSession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("recorder: clear session: %w", err)
	}
	return nil
}

// ClearAll purges every session and audit row. Operator use only.
func (r *Recorder) ClearAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.ToolInvocation{}, &models.ChatMessage{}, &models.TraceStep{}, &models.ChatSession{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recorder: clear all: %w", err)
	}
	return nil
}
