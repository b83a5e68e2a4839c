// Package models defines the GORM entities persisted by Teller.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewID returns a prefixed unique identifier, e.g. "acc_6f1c...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// User is the identity stub that owns accounts and chat sessions.
// Rows are immutable after creation; authentication lives elsewhere and
// reaches this service only as an opaque user ID.
type User struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time

	Accounts []Account `gorm:"foreignKey:UserID"`
}

// Account is a single bank account. Balance is only ever mutated by
// applying a Transaction.
type Account struct {
	ID            string          `gorm:"primaryKey;size:64"`
	UserID        string          `gorm:"size:64;not null;index"`
	AccountNumber string          `gorm:"size:32;uniqueIndex;not null"`
	AccountType   string          `gorm:"size:16;not null"` // checking, savings, credit
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Name          string          `gorm:"size:255;not null"`
	CreatedAt     time.Time

	User User `gorm:"foreignKey:UserID"`
}

// Transaction statuses.
const (
	TxnPending   = "pending"
	TxnCompleted = "completed"
	TxnFailed    = "failed"
)

// Transaction records money movement. Amount is always positive; direction
// is carried by Type and the from/to account references, never by sign.
// Completed rows are immutable.
type Transaction struct {
	ID            string          `gorm:"primaryKey;size:64"`
	FromAccountID *string         `gorm:"size:64;index"`
	ToAccountID   *string         `gorm:"size:64;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Type          string          `gorm:"size:32;not null"` // payment, transfer, deposit
	Description   string          `gorm:"size:255"`
	Category      string          `gorm:"size:64;index"`
	Status        string          `gorm:"size:16;not null;index"`
	CreatedAt     time.Time       `gorm:"index"`

	FromAccount *Account `gorm:"foreignKey:FromAccountID"`
	ToAccount   *Account `gorm:"foreignKey:ToAccountID"`
}

// SupportDocument is one entry in the support knowledge base searched by
// the support specialist. It stands in for the external vector store.
type SupportDocument struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"size:255;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
