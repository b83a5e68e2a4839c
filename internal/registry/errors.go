package registry

import "fmt"

// ErrorKind classifies tool failures. Every failure crossing the
// dispatcher boundary is one of these; nothing unstructured propagates.
type ErrorKind string

const (
	ErrInvalidArguments ErrorKind = "invalid_arguments"
	ErrNotAuthorized    ErrorKind = "not_authorized"
	ErrUpstreamFailure  ErrorKind = "upstream_failure"
	ErrTimeout          ErrorKind = "timeout"
)

// ToolError is the typed result of a failed tool call. Message is plain
// language safe to fold back into the conversation; Err is the underlying
// cause and is only ever logged.
type ToolError struct {
	Kind    ErrorKind
	Tool    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %s: %s: %v", e.Tool, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError builds a ToolError.
func NewToolError(kind ErrorKind, tool, message string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Message: message, Err: err}
}
