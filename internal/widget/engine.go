// Package widget implements the widget query engine: declarative query
// descriptors evaluated against live account/transaction data, and the
// persisted widgets that store them. Dynamic widgets are always recomputed
// from their stored descriptor, never from a stale snapshot.
package widget

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/teller/internal/bank"
	"gorm.io/gorm"
)

// Supported query types. The first three produce row lists (charts); the
// rest produce a single progress record (goal trackers).
const (
	QuerySpendingByCategory = "spending_by_category"
	QueryMonthlyTrend       = "monthly_trend"
	QueryAccountBalances    = "account_balances"
	QueryGoalSavings        = "goal_savings_progress"
	QueryDebtPayoff         = "debt_payoff_progress"
	QuerySpendingLimit      = "spending_limit"
)

// Filters narrows a query to a category, an account, or a goal target.
type Filters struct {
	Category     string          `json:"category,omitempty"`
	AccountName  string          `json:"account_name,omitempty"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TargetDate   string          `json:"target_date,omitempty"`
	LimitAmount  decimal.Decimal `json:"limit_amount"`
}

// QueryConfig is the stored, re-runnable query descriptor.
type QueryConfig struct {
	QueryType string  `json:"query_type"`
	TimeRange string  `json:"time_range,omitempty"`
	Filters   Filters `json:"filters"`
}

// Row is one label/amount pair of a list-shaped result.
type Row struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Progress is the single-record result of a goal query. ProgressPercent is
// clamped to [0, 100]; Remaining never goes below zero.
type Progress struct {
	CurrentAmount   decimal.Decimal `json:"current_amount"`
	TargetAmount    decimal.Decimal `json:"target_amount"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
	Remaining       decimal.Decimal `json:"remaining"`
	IsOverBudget    bool            `json:"is_over_budget"`
}

// Result is the aggregate output of one query execution. It deliberately
// carries no timestamps so that an unchanged dataset serializes
// identically on every run.
type Result struct {
	QueryType string    `json:"query_type"`
	Rows      []Row     `json:"rows,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
}

// Engine evaluates query configs. All queries are read-only.
type Engine struct {
	db    *gorm.DB
	store *bank.Store
	now   func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db, store: bank.NewStore(db), now: time.Now}
}

// ValidateQueryConfig checks a descriptor before it is stored on a widget.
func ValidateQueryConfig(cfg QueryConfig) error {
	switch cfg.QueryType {
	case QuerySpendingByCategory, QueryMonthlyTrend, QueryAccountBalances:
		return nil
	case QueryGoalSavings, QueryDebtPayoff:
		if !cfg.Filters.TargetAmount.IsPositive() {
			return fmt.Errorf("widget: %s requires a positive filters.target_amount", cfg.QueryType)
		}
		return nil
	case QuerySpendingLimit:
		if !cfg.Filters.LimitAmount.IsPositive() {
			return fmt.Errorf("widget: %s requires a positive filters.limit_amount", cfg.QueryType)
		}
		return nil
	default:
		return fmt.Errorf("widget: unknown query_type %q", cfg.QueryType)
	}
}

// Execute evaluates the descriptor for the user against current data.
func (e *Engine) Execute(ctx context.Context, cfg QueryConfig, userID string) (*Result, error) {
	since, until := bank.PeriodRange(cfg.TimeRange, e.now())

	switch cfg.QueryType {
	case QuerySpendingByCategory:
		totals, err := e.store.SpendingSummary(ctx, userID, since, until, cfg.Filters.AccountName)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, len(totals))
		for i, t := range totals {
			rows[i] = Row{Label: t.Category, Amount: t.Total}
		}
		return &Result{QueryType: cfg.QueryType, Rows: rows}, nil

	case QueryMonthlyTrend:
		txns, err := e.store.PaymentsBetween(ctx, userID, since, until)
		if err != nil {
			return nil, err
		}
		byMonth := make(map[string]decimal.Decimal)
		for _, txn := range txns {
			if cfg.Filters.Category != "" && txn.Category != cfg.Filters.Category {
				continue
			}
			month := txn.CreatedAt.Format("2006-01")
			byMonth[month] = byMonth[month].Add(txn.Amount)
		}
		months := make([]string, 0, len(byMonth))
		for m := range byMonth {
			months = append(months, m)
		}
		sort.Strings(months)
		rows := make([]Row, len(months))
		for i, m := range months {
			rows[i] = Row{Label: m, Amount: byMonth[m]}
		}
		return &Result{QueryType: cfg.QueryType, Rows: rows}, nil

	case QueryAccountBalances:
		accounts, err := e.store.GetAccounts(ctx, userID)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, len(accounts))
		for i, a := range accounts {
			rows[i] = Row{Label: a.Name, Amount: a.Balance}
		}
		return &Result{QueryType: cfg.QueryType, Rows: rows}, nil

	case QueryGoalSavings:
		current, err := e.balanceTotal(ctx, userID, cfg.Filters.AccountName, "savings")
		if err != nil {
			return nil, err
		}
		return &Result{
			QueryType: cfg.QueryType,
			Progress:  goalProgress(current, cfg.Filters.TargetAmount),
		}, nil

	case QueryDebtPayoff:
		owed, err := e.balanceTotal(ctx, userID, cfg.Filters.AccountName, "credit")
		if err != nil {
			return nil, err
		}
		// Paid-off amount: original debt minus what is still owed.
		paid := cfg.Filters.TargetAmount.Sub(owed)
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		return &Result{
			QueryType: cfg.QueryType,
			Progress:  goalProgress(paid, cfg.Filters.TargetAmount),
		}, nil

	case QuerySpendingLimit:
		totals, err := e.store.SpendingSummary(ctx, userID, since, until, cfg.Filters.AccountName)
		if err != nil {
			return nil, err
		}
		spent := decimal.Zero
		for _, t := range totals {
			if cfg.Filters.Category != "" && t.Category != cfg.Filters.Category {
				continue
			}
			spent = spent.Add(t.Total)
		}
		p := goalProgress(spent, cfg.Filters.LimitAmount)
		p.IsOverBudget = spent.GreaterThan(cfg.Filters.LimitAmount)
		return &Result{QueryType: cfg.QueryType, Progress: p}, nil

	default:
		return nil, fmt.Errorf("widget: unknown query_type %q", cfg.QueryType)
	}
}

// goalProgress computes min(100, current/target*100) for target > 0, else
// 0, with remaining clamped at zero.
func goalProgress(current, target decimal.Decimal) *Progress {
	hundred := decimal.NewFromInt(100)
	percent := decimal.Zero
	if target.IsPositive() {
		percent = current.Div(target).Mul(hundred).Round(2)
		if percent.GreaterThan(hundred) {
			percent = hundred
		}
	}
	remaining := target.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &Progress{
		CurrentAmount:   current,
		TargetAmount:    target,
		ProgressPercent: percent,
		Remaining:       remaining,
	}
}

// balanceTotal sums balances of the user's accounts, scoped to one account
// by name when given, otherwise to the named account type.
func (e *Engine) balanceTotal(ctx context.Context, userID, accountName, accountType string) (decimal.Decimal, error) {
	if accountName != "" {
		account, err := e.store.AccountByName(ctx, userID, accountName)
		if err != nil {
			return decimal.Zero, err
		}
		return account.Balance, nil
	}
	accounts, err := e.store.GetAccounts(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, a := range accounts {
		if a.AccountType == accountType {
			total = total.Add(a.Balance)
		}
	}
	return total, nil
}
