package docs

import (
	"context"
	"testing"

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
	if err := db.AutoMigrate(&models.SupportDocument{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestSearch_RanksByOverlap(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	store.Add(ctx, "Wire transfer limits", "Daily wire transfer limits are $10,000 for checking accounts.")
	store.Add(ctx, "Card replacement", "Lost or stolen cards are replaced within 5 business days.")
	store.Add(ctx, "Overdraft policy", "Overdraft fees are $25 per transaction over the limit.")

	hits, err := store.Search(ctx, "what are the wire transfer limits?", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if hits[0].Title != "Wire transfer limits" {
		t.Errorf("top hit = %q", hits[0].Title)
	}
	if hits[0].Score <= 0 || hits[0].Score > 1 {
		t.Errorf("score = %f, want in (0, 1]", hits[0].Score)
	}
}

func TestSearch_NoMatches(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	store.Add(ctx, "Overdraft policy", "Overdraft fees are $25.")

	hits, err := store.Search(ctx, "zebra migration patterns", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %v, want none", hits)
	}
}

func TestSearch_LimitsResults(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	store.Add(ctx, "Fees one", "account fees apply")
	store.Add(ctx, "Fees two", "account fees apply")
	store.Add(ctx, "Fees three", "account fees apply")

	hits, err := store.Search(ctx, "account fees", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2", len(hits))
	}
}
