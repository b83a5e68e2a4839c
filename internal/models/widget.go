package models

import "time"

// Widget types.
const (
	WidgetChart      = "chart"
	WidgetSimulation = "simulation"
	WidgetGoal       = "goal"
)

// Widget data modes.
const (
	DataModeStatic  = "static"
	DataModeDynamic = "dynamic"
)

// Widget is a persisted, user-owned visualization or goal tracker created
// by the visualization specialist. Dynamic widgets carry a query descriptor
// and are re-computed from live data on refresh; their cached snapshot in
// Config is display state only and is never used as a data source.
type Widget struct {
	ID            string  `gorm:"primaryKey;size:64"`
	UserID        string  `gorm:"size:64;not null;index"`
	Title         string  `gorm:"size:255;not null"`
	WidgetType    string  `gorm:"size:16;not null"`
	Config        string  `gorm:"type:text;not null"` // serialized display config + snapshot
	DataMode      string  `gorm:"size:16;not null;default:static"`
	QueryConfig   *string `gorm:"type:text"` // serialized query descriptor, required when dynamic
	LastRefreshed *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
