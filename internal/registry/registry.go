// Package registry holds the capability catalog: named tool definitions
// grouped into named specialist profiles. Specialists reference tools by
// name only; resolution happens at dispatch time, so the catalog can gain
// tools without recompiling callers.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
)

// Specialist names. These are the routing targets of the coordinator and
// the keys of the specialist catalog.
const (
	SpecialistAccount       = "account"
	SpecialistSupport       = "support"
	SpecialistVisualization = "visualization"
	SpecialistFraud         = "fraud"
)

// Effects collects the side effects of one turn's tool calls so the caller
// can surface them in the response. Tool bodies write, the turn pipeline
// reads after the executor returns.
type Effects struct {
	mu            sync.Mutex
	WidgetCreated bool
	WidgetType    string
	GoalType      string
}

// RecordWidget notes that a tool created a widget during the turn.
func (e *Effects) RecordWidget(widgetType, goalType string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.WidgetCreated = true
	e.WidgetType = widgetType
	e.GoalType = goalType
}

// Call carries the per-turn context a tool body needs. UserID scopes every
// data access; Effects is shared across the turn's calls.
type Call struct {
	UserID     string
	SessionID  string
	TraceID    string
	Specialist string
	Args       map[string]any
	Effects    *Effects
}

// InvokeFunc is a tool body. It returns serialized JSON output, or a
// *ToolError (any other error is treated as an upstream failure by the
// dispatcher).
type InvokeFunc func(ctx context.Context, call Call) (string, error)

// Tool is one named, schema-validated operation.
type Tool struct {
	ID          string
	Name        string
	Description string
	InputSchema string // JSON Schema source
	Invoke      InvokeFunc
}

// Specialist is one capability profile: a prompt template plus the names
// of the tools it may call.
type Specialist struct {
	ID             string
	Name           string
	Description    string
	PromptTemplate string
	ToolNames      []string
}

// Registry is the name-keyed capability table.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]*Tool
	specialists map[string]*Specialist
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		tools:       make(map[string]*Tool),
		specialists: make(map[string]*Specialist),
	}
}

// RegisterTool adds or replaces a tool by name.
func (r *Registry) RegisterTool(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("registry: tool name is required")
	}
	if t.Invoke == nil {
		return fmt.Errorf("registry: tool %q has no invoke body", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	return nil
}

// RegisterSpecialist adds or replaces a specialist profile by name.
func (r *Registry) RegisterSpecialist(s *Specialist) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("registry: specialist name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specialists[s.Name] = s
	return nil
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Specialist looks up a specialist profile by name.
func (r *Registry) Specialist(name string) (*Specialist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specialists[name]
	return s, ok
}

// SpecialistNames returns all registered specialist names, sorted.
func (r *Registry) SpecialistNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specialists))
	for name := range r.specialists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Toolset resolves a specialist's tool-name list to tool definitions.
// Names without a registered tool are skipped: the catalog may declare a
// tool this build does not implement yet.
func (r *Registry) Toolset(specialistName string) ([]*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specialists[specialistName]
	if !ok {
		return nil, fmt.Errorf("registry: unknown specialist %q", specialistName)
	}
	tools := make([]*Tool, 0, len(s.ToolNames))
	for _, name := range s.ToolNames {
		if t, ok := r.tools[name]; ok {
			tools = append(tools, t)
		}
	}
	return tools, nil
}

// Authorized reports whether the named tool is in the specialist's catalog.
func (r *Registry) Authorized(specialistName, toolName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specialists[specialistName]
	if !ok {
		return false
	}
	for _, name := range s.ToolNames {
		if name == toolName {
			return true
		}
	}
	return false
}

// Load builds a Registry from the active catalog rows, binding each tool
// definition to its implementation by name. A catalog row without an
// implementation is an error: the catalog and the binary must agree.
func Load(db *gorm.DB, impls map[string]InvokeFunc) (*Registry, error) {
	r := New()

	var toolDefs []models.ToolDefinition
	if err := db.Where("is_active = ?", true).Find(&toolDefs).Error; err != nil {
		return nil, fmt.Errorf("registry: load tool definitions: %w", err)
	}
	for _, td := range toolDefs {
		impl, ok := impls[td.Name]
		if !ok {
			return nil, fmt.Errorf("registry: no implementation for tool %q", td.Name)
		}
		if err := r.RegisterTool(&Tool{
			ID:          td.ToolID,
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.InputSchema,
			Invoke:      impl,
		}); err != nil {
			return nil, err
		}
	}

	var specDefs []models.SpecialistDefinition
	if err := db.Where("is_active = ?", true).Find(&specDefs).Error; err != nil {
		return nil, fmt.Errorf("registry: load specialist definitions: %w", err)
	}
	for _, sd := range specDefs {
		var toolNames []string
		if sd.ToolNames != "" {
			if err := json.Unmarshal([]byte(sd.ToolNames), &toolNames); err != nil {
				return nil, fmt.Errorf("registry: specialist %q tool_names: %w", sd.Name, err)
			}
		}
		if err := r.RegisterSpecialist(&Specialist{
			ID:             sd.SpecialistID,
			Name:           sd.Name,
			Description:    sd.Description,
			PromptTemplate: sd.PromptTemplate,
			ToolNames:      toolNames,
		}); err != nil {
			return nil, err
		}
	}
	return r, nil
}
