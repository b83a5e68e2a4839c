// Package bank implements the account/transaction store consumed by the
// account and fraud specialists' tools.
package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
)

// Sentinel errors callers branch on.
var (
	ErrAccountNotFound   = errors.New("bank: account not found")
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
)

// Store provides user-scoped access to accounts and transactions. Every
// method takes the owning user ID; rows belonging to other users are
// invisible.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetAccounts returns all accounts owned by the user.
func (s *Store) GetAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("bank: get accounts: %w", err)
	}
	return accounts, nil
}

// AccountByName looks up one of the user's accounts by display name.
func (s *Store) AccountByName(ctx context.Context, userID, name string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("bank: account by name: %w", err)
	}
	return &account, nil
}

// CreateAccount opens a new account for the user.
func (s *Store) CreateAccount(ctx context.Context, userID, accountType, name string, balance decimal.Decimal) (*models.Account, error) {
	if balance.IsNegative() {
		return nil, ErrInvalidAmount
	}
	account := models.Account{
		ID:            models.NewID("acc"),
		UserID:        userID,
		AccountNumber: newAccountNumber(),
		AccountType:   accountType,
		Balance:       balance,
		Name:          name,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, fmt.Errorf("bank: create account: %w", err)
	}
	return &account, nil
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Limit    int
	Category string
	Since    time.Time
	Until    time.Time
}

// ListTransactions returns the user's transactions, newest first. A
// transaction belongs to the user when either side references one of the
// user's accounts.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]models.Transaction, error) {
	accountIDs, err := s.accountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}

	q := s.db.WithContext(ctx).
		Where("from_account_id IN ? OR to_account_id IN ?", accountIDs, accountIDs)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", filter.Until)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var txns []models.Transaction
	if err := q.Order("created_at DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("bank: list transactions: %w", err)
	}
	return txns, nil
}

// TransactionByID returns one of the user's transactions by ID.
func (s *Store) TransactionByID(ctx context.Context, userID, txnID string) (*models.Transaction, error) {
	accountIDs, err := s.accountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	var txn models.Transaction
	err = s.db.WithContext(ctx).
		Where("id = ? AND (from_account_id IN ? OR to_account_id IN ?)", txnID, accountIDs, accountIDs).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("bank: transaction %q not found for user", txnID)
	}
	if err != nil {
		return nil, fmt.Errorf("bank: transaction by id: %w", err)
	}
	return &txn, nil
}

// FlagTransaction marks a transaction as under fraud review.
func (s *Store) FlagTransaction(ctx context.Context, userID, txnID string) (*models.Transaction, error) {
	txn, err := s.TransactionByID(ctx, userID, txnID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(txn).Update("category", "flagged").Error; err != nil {
		return nil, fmt.Errorf("bank: flag transaction: %w", err)
	}
	txn.Category = "flagged"
	return txn, nil
}

// Transfer moves money from one of the user's accounts to another account
// or an external recipient. The balance mutation and the transaction row
// commit together or not at all.
func (s *Store) Transfer(ctx context.Context, userID, fromName, toName string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var txn *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var from models.Account
		err := tx.Where("user_id = ? AND name = ?", userID, fromName).First(&from).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %q", ErrAccountNotFound, fromName)
		}
		if err != nil {
			return err
		}
		if from.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		var toID *string
		if toName != "" {
			var to models.Account
			err := tx.Where("user_id = ? AND name = ?", userID, toName).First(&to).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %q", ErrAccountNotFound, toName)
			}
			if err != nil {
				return err
			}
			toID = &to.ID
			if err := tx.Model(&to).Update("balance", to.Balance.Add(amount)).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&from).Update("balance", from.Balance.Sub(amount)).Error; err != nil {
			return err
		}

		if description == "" {
			recipient := toName
			if recipient == "" {
				recipient = "external recipient"
			}
			description = "Transfer to " + recipient
		}
		txn = &models.Transaction{
			ID:            models.NewID("txn"),
			FromAccountID: &from.ID,
			ToAccountID:   toID,
			Amount:        amount,
			Type:          "transfer",
			Description:   description,
			Category:      "Transfer",
			Status:        models.TxnCompleted,
		}
		return tx.Create(txn).Error
	})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("bank: transfer: %w", err)
	}
	return txn, nil
}

// CategoryTotal is one row of a spending summary.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// SpendingSummary aggregates completed payment amounts by category for the
// user's accounts within a window. Results are ordered by total, largest
// first.
func (s *Store) SpendingSummary(ctx context.Context, userID string, since, until time.Time, accountName string) ([]CategoryTotal, error) {
	var accountIDs []string
	if accountName != "" {
		account, err := s.AccountByName(ctx, userID, accountName)
		if err != nil {
			return nil, err
		}
		accountIDs = []string{account.ID}
	} else {
		ids, err := s.accountIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		accountIDs = ids
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}

	type row struct {
		Category string
		Total    decimal.Decimal
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("category, sum(amount) as total").
		Where("type = ? AND status = ? AND from_account_id IN ?", "payment", models.TxnCompleted, accountIDs).
		Where("created_at BETWEEN ? AND ?", since, until).
		Group("category").
		Order("total DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("bank: spending summary: %w", err)
	}

	out := make([]CategoryTotal, len(rows))
	for i, r := range rows {
		out[i] = CategoryTotal{Category: r.Category, Total: r.Total}
	}
	return out, nil
}

// PaymentsBetween returns the user's completed outbound payments in the
// window, oldest first. Used by the widget query engine for trend and goal
// aggregation.
func (s *Store) PaymentsBetween(ctx context.Context, userID string, since, until time.Time) ([]models.Transaction, error) {
	accountIDs, err := s.accountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var txns []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("type = ? AND status = ? AND from_account_id IN ?", "payment", models.TxnCompleted, accountIDs).
		Where("created_at BETWEEN ? AND ?", since, until).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("bank: payments between: %w", err)
	}
	return txns, nil
}

// newAccountNumber generates a 12-digit-style account number.
func newAccountNumber() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *Store) accountIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("bank: account ids: %w", err)
	}
	return ids, nil
}
