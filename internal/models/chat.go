package models

import "time"

// Message types recorded per turn.
const (
	MessageHuman = "human"
	MessageAI    = "ai"
	MessageTool  = "tool"
)

// Tool invocation statuses.
const (
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// ChatSession is one conversation. Aggregate counters are recomputed on
// every committed turn; rows are removed only by an explicit admin purge.
type ChatSession struct {
	SessionID       string `gorm:"primaryKey;size:64"`
	UserID          string `gorm:"size:64;not null;index"`
	Title           string `gorm:"size:500"`
	CreatedAt       time.Time
	UpdatedAt       time.Time `gorm:"index"`
	TotalAgentsUsed int       `gorm:"default:0"`
	AgentNamesUsed  string    `gorm:"type:text"` // JSON array, insertion-ordered set
	DurationMS      int64     `gorm:"default:0"`
}

// TraceStep is one coordinator decision within a turn. All steps of a turn
// share a trace ID. Append-only.
type TraceStep struct {
	TraceStepID      string `gorm:"primaryKey;size:64"`
	SessionID        string `gorm:"size:64;not null;index"`
	TraceID          string `gorm:"size:64;not null;index"`
	UserID           string `gorm:"size:64;not null"`
	FromSpecialist   string `gorm:"size:64"` // empty on the first hop of a turn
	TargetSpecialist string `gorm:"size:64;not null"`
	StepOrder        int    `gorm:"not null"`
	ExecutionStart   time.Time
	ExecutionEnd     time.Time
	DurationMS       int64
	Success          bool   `gorm:"default:true"`
	ErrorMessage     string `gorm:"type:text"`
}

// ChatMessage is one message emitted during a turn, including intermediate
// tool messages. Ordered by RoutingStep within a trace. Append-only.
type ChatMessage struct {
	MessageID        string `gorm:"primaryKey;size:64"`
	SessionID        string `gorm:"size:64;not null;index"`
	TraceID          string `gorm:"size:64;not null;index"`
	UserID           string `gorm:"size:64;not null"`
	SpecialistID     string `gorm:"size:64"`
	SpecialistName   string `gorm:"size:64"`
	RoutingStep      int    `gorm:"not null"`
	MessageType      string `gorm:"size:16;not null"`
	Content          string `gorm:"type:text"`
	ModelName        string `gorm:"size:128"`
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
	ToolCallID       string `gorm:"size:64"`
	FinishReason     string `gorm:"size:64"`
	ResponseTimeMS   int64
	TraceEnd         time.Time
}

// ToolInvocation is the audit row for exactly one tool call, written for
// failed calls as well (Status=error, ToolOutput null). Append-only.
type ToolInvocation struct {
	ToolCallID          string  `gorm:"primaryKey;size:64"`
	SessionID           string  `gorm:"size:64;not null;index"`
	TraceID             string  `gorm:"size:64;not null;index"`
	ToolID              string  `gorm:"size:64;not null"`
	ToolName            string  `gorm:"size:128;not null"`
	ToolInput           string  `gorm:"type:text;not null"` // serialized JSON
	ToolOutput          *string `gorm:"type:text"`
	Status              string  `gorm:"size:16;not null"`
	ExecutingSpecialist string  `gorm:"size:64;not null"`
	TokensUsed          int
	ExecutionTimeMS     int64
}
