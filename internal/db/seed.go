package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
)

// SeedDemo populates a demo user with accounts, a few months of
// transactions, and a small support corpus. Idempotent: re-running on a
// seeded database is a no-op.
func SeedDemo(db *gorm.DB, userID string) error {
	var existing models.User
	err := db.Where("id = ?", userID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: seed demo: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := models.User{ID: userID, Name: "Demo User", Email: "demo@example.com"}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("db: seed user: %w", err)
		}

		checking := models.Account{
			ID: models.NewID("acc"), UserID: userID, AccountNumber: "100000000001",
			AccountType: "checking", Balance: dec("2450.00"), Name: "Everyday Checking",
		}
		savings := models.Account{
			ID: models.NewID("acc"), UserID: userID, AccountNumber: "100000000002",
			AccountType: "savings", Balance: dec("8120.50"), Name: "Vacation Fund",
		}
		credit := models.Account{
			ID: models.NewID("acc"), UserID: userID, AccountNumber: "100000000003",
			AccountType: "credit", Balance: dec("640.00"), Name: "Travel Card",
		}
		for _, acc := range []*models.Account{&checking, &savings, &credit} {
			if err := tx.Create(acc).Error; err != nil {
				return fmt.Errorf("db: seed account %s: %w", acc.Name, err)
			}
		}

		now := time.Now()
		payments := []struct {
			category string
			amount   string
			daysAgo  int
			desc     string
		}{
			{"Groceries", "84.12", 2, "Fresh Mart"},
			{"Groceries", "112.40", 9, "Fresh Mart"},
			{"Dining", "46.80", 3, "Corner Bistro"},
			{"Dining", "28.25", 12, "Noodle House"},
			{"Utilities", "130.00", 6, "City Power"},
			{"Transport", "52.10", 4, "Metro Pass"},
			{"Groceries", "98.77", 38, "Fresh Mart"},
			{"Dining", "61.90", 41, "Corner Bistro"},
			{"Utilities", "129.50", 36, "City Power"},
			{"Groceries", "105.33", 68, "Fresh Mart"},
			{"Entertainment", "15.99", 70, "Streaming Plus"},
		}
		for _, p := range payments {
			txn := models.Transaction{
				ID:            models.NewID("txn"),
				FromAccountID: &checking.ID,
				Amount:        dec(p.amount),
				Type:          "payment",
				Description:   p.desc,
				Category:      p.category,
				Status:        models.TxnCompleted,
				CreatedAt:     now.AddDate(0, 0, -p.daysAgo),
			}
			if err := tx.Create(&txn).Error; err != nil {
				return fmt.Errorf("db: seed transaction: %w", err)
			}
		}
		deposit := models.Transaction{
			ID:          models.NewID("txn"),
			ToAccountID: &savings.ID,
			Amount:      dec("500.00"),
			Type:        "deposit",
			Description: "Payroll savings sweep",
			Category:    "Income",
			Status:      models.TxnCompleted,
			CreatedAt:   now.AddDate(0, 0, -14),
		}
		if err := tx.Create(&deposit).Error; err != nil {
			return fmt.Errorf("db: seed deposit: %w", err)
		}

		docs := []models.SupportDocument{
			{
				ID:    models.NewID("doc"),
				Title: "Wire transfer limits",
				Content: "Daily wire transfer limits are $10,000 for checking accounts " +
					"and $25,000 for savings accounts. Limits reset at midnight local time.",
			},
			{
				ID:    models.NewID("doc"),
				Title: "Overdraft policy",
				Content: "Overdraft fees are $25 per transaction over the available balance. " +
					"Opting into overdraft protection links a savings account as backup.",
			},
			{
				ID:    models.NewID("doc"),
				Title: "Card replacement",
				Content: "Lost or stolen cards are blocked immediately when reported and a " +
					"replacement ships within 5 business days at no charge.",
			},
			{
				ID:    models.NewID("doc"),
				Title: "Dispute a charge",
				Content: "Unrecognized charges can be disputed within 60 days of the statement " +
					"date. Flagged transactions are reviewed by the fraud team within 2 business days.",
			},
		}
		for _, doc := range docs {
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("db: seed document %q: %w", doc.Title, err)
			}
		}
		return nil
	})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("db: bad seed amount %q: %v", s, err))
	}
	return d
}
