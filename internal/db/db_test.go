package db

import (
	"testing"

	"github.com/zulandar/teller/internal/models"
)

func TestSeedCatalog_Idempotent(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	if err := SeedCatalog(gdb); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedCatalog(gdb); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var toolCount, specCount int64
	gdb.Model(&models.ToolDefinition{}).Count(&toolCount)
	gdb.Model(&models.SpecialistDefinition{}).Count(&specCount)
	if toolCount != 11 {
		t.Errorf("tool definitions = %d, want 11", toolCount)
	}
	if specCount != 4 {
		t.Errorf("specialist definitions = %d, want 4", specCount)
	}
}

func TestSeedDemo_Idempotent(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	if err := SeedDemo(gdb, "user_demo"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedDemo(gdb, "user_demo"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var users, accounts int64
	gdb.Model(&models.User{}).Count(&users)
	gdb.Model(&models.Account{}).Count(&accounts)
	if users != 1 {
		t.Errorf("users = %d, want 1", users)
	}
	if accounts != 3 {
		t.Errorf("accounts = %d, want 3", accounts)
	}
}
