package db

import (
	"fmt"

	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Account{},
		&models.Transaction{},
		&models.SupportDocument{},
		&models.ChatSession{},
		&models.TraceStep{},
		&models.ChatMessage{},
		&models.ToolInvocation{},
		&models.ToolDefinition{},
		&models.SpecialistDefinition{},
		&models.Widget{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedCatalog upserts the tool and specialist definition rows the registry
// loads at startup. Re-running is safe: existing rows are updated in place,
// so a new tool can be added to a specialist without touching callers.
func SeedCatalog(db *gorm.DB) error {
	for _, td := range ToolCatalog() {
		row := td
		if row.ToolID == "" {
			row.ToolID = models.NewID("tooldef")
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "input_schema", "version", "is_active"}),
		}).Create(&row)
		if result.Error != nil {
			return fmt.Errorf("db: seed tool %q: %w", td.Name, result.Error)
		}
	}

	for _, sd := range SpecialistCatalog() {
		row := sd
		if row.SpecialistID == "" {
			row.SpecialistID = models.NewID("spec")
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "prompt_template", "tool_names", "version", "is_active"}),
		}).Create(&row)
		if result.Error != nil {
			return fmt.Errorf("db: seed specialist %q: %w", sd.Name, result.Error)
		}
	}
	return nil
}
