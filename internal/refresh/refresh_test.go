package refresh

import (
	"io"
	"testing"

	"github.com/zulandar/teller/internal/widget"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testEngine(t *testing.T) *widget.Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return widget.NewEngine(db)
}

func TestNew_BadCronSpec(t *testing.T) {
	if _, err := New("not a cron spec", testEngine(t), io.Discard); err == nil {
		t.Fatal("expected error for malformed spec")
	}
}

func TestNew_EmptySpecDisablesSweep(t *testing.T) {
	s, err := New("", testEngine(t), io.Discard)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	s.Stop()
}

func TestNew_ValidSpec(t *testing.T) {
	s, err := New("*/15 * * * *", testEngine(t), io.Discard)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	s.Stop()
}
