package models

import "time"

// ToolDefinition is a catalog row describing one invocable tool. The
// registry loads active rows at startup; the mapping from specialists to
// tools is by name, so a tool can be added to a specialist without
// recompiling callers.
type ToolDefinition struct {
	ToolID      string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	InputSchema string `gorm:"type:text;not null"` // JSON Schema
	Version     string `gorm:"size:32;default:1.0.0"`
	IsActive    bool   `gorm:"default:true"`
	CreatedAt   time.Time
}

// SpecialistDefinition is a catalog row describing one specialist profile:
// a prompt template plus the names of the tools it is allowed to call.
type SpecialistDefinition struct {
	SpecialistID   string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"size:64;uniqueIndex;not null"`
	Description    string `gorm:"type:text"`
	PromptTemplate string `gorm:"type:text;not null"`
	ToolNames      string `gorm:"type:text"` // JSON array of tool names
	Version        string `gorm:"size:32;default:1.0.0"`
	IsActive       bool   `gorm:"default:true"`
	CreatedAt      time.Time
}
