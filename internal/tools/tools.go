// Package tools provides the implementations behind the tool catalog.
// Each body receives schema-validated arguments from the dispatcher,
// performs its data access scoped to the calling user, and returns
// serialized JSON for the reasoning engine to read.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/teller/internal/alerts"
	"github.com/zulandar/teller/internal/bank"
	"github.com/zulandar/teller/internal/docs"
	"github.com/zulandar/teller/internal/registry"
	"github.com/zulandar/teller/internal/widget"
)

// Deps are the stores and services the tool bodies close over.
type Deps struct {
	Bank    *bank.Store
	Docs    *docs.Store
	Widgets *widget.Engine
	Alerts  alerts.Notifier
}

// BuildImpls returns the implementation for every tool in the catalog,
// keyed by tool name. registry.Load binds these to the catalog rows.
func BuildImpls(d Deps) map[string]registry.InvokeFunc {
	return map[string]registry.InvokeFunc{
		"get_user_accounts":        d.getUserAccounts,
		"get_transactions_summary": d.getTransactionsSummary,
		"list_transactions":        d.listTransactions,
		"create_new_account":       d.createNewAccount,
		"transfer_money":           d.transferMoney,
		"search_support_documents": d.searchSupportDocuments,
		"create_widget":            d.createWidget,
		"update_widget":            d.updateWidget,
		"list_user_widgets":        d.listUserWidgets,
		"delete_widget":            d.deleteWidget,
		"flag_suspicious_activity": d.flagSuspiciousActivity,
	}
}

func (d Deps) getUserAccounts(ctx context.Context, call registry.Call) (string, error) {
	accounts, err := d.Bank.GetAccounts(ctx, call.UserID)
	if err != nil {
		return "", err
	}
	out := make([]map[string]any, len(accounts))
	for i, a := range accounts {
		out[i] = map[string]any{
			"account_id":     a.ID,
			"name":           a.Name,
			"account_type":   a.AccountType,
			"account_number": a.AccountNumber,
			"balance":        a.Balance,
		}
	}
	return marshal(map[string]any{"accounts": out})
}

func (d Deps) getTransactionsSummary(ctx context.Context, call registry.Call) (string, error) {
	period := strArg(call.Args, "time_period")
	since, until := bank.PeriodRange(period, time.Now())
	totals, err := d.Bank.SpendingSummary(ctx, call.UserID, since, until, strArg(call.Args, "account_name"))
	if err != nil {
		if errors.Is(err, bank.ErrAccountNotFound) {
			return "", registry.NewToolError(registry.ErrInvalidArguments, "get_transactions_summary", err.Error(), err)
		}
		return "", err
	}
	rows := make([]map[string]any, len(totals))
	for i, t := range totals {
		rows[i] = map[string]any{"category": t.Category, "total": t.Total}
	}
	return marshal(map[string]any{"period": period, "spending_by_category": rows})
}

func (d Deps) listTransactions(ctx context.Context, call registry.Call) (string, error) {
	filter := bank.TransactionFilter{
		Limit:    intArg(call.Args, "limit"),
		Category: strArg(call.Args, "category"),
	}
	txns, err := d.Bank.ListTransactions(ctx, call.UserID, filter)
	if err != nil {
		return "", err
	}
	out := make([]map[string]any, len(txns))
	for i, t := range txns {
		out[i] = map[string]any{
			"transaction_id": t.ID,
			"amount":         t.Amount,
			"type":           t.Type,
			"category":       t.Category,
			"description":    t.Description,
			"status":         t.Status,
			"created_at":     t.CreatedAt,
		}
	}
	return marshal(map[string]any{"transactions": out})
}

func (d Deps) createNewAccount(ctx context.Context, call registry.Call) (string, error) {
	balance := decimal.Zero
	if f, ok := floatArg(call.Args, "balance"); ok {
		balance = decimal.NewFromFloat(f)
	}
	account, err := d.Bank.CreateAccount(ctx, call.UserID,
		strArg(call.Args, "account_type"), strArg(call.Args, "name"), balance)
	if err != nil {
		if errors.Is(err, bank.ErrInvalidAmount) {
			return "", registry.NewToolError(registry.ErrInvalidArguments, "create_new_account", err.Error(), err)
		}
		return "", err
	}
	return marshal(map[string]any{
		"account_id":     account.ID,
		"name":           account.Name,
		"account_type":   account.AccountType,
		"account_number": account.AccountNumber,
		"balance":        account.Balance,
	})
}

func (d Deps) transferMoney(ctx context.Context, call registry.Call) (string, error) {
	f, _ := floatArg(call.Args, "amount")
	txn, err := d.Bank.Transfer(ctx, call.UserID,
		strArg(call.Args, "from_account_name"),
		strArg(call.Args, "to_account_name"),
		decimal.NewFromFloat(f),
		strArg(call.Args, "description"))
	if err != nil {
		// Business failures are relayed to the reasoning engine so it can
		// explain them to the user.
		if errors.Is(err, bank.ErrAccountNotFound) ||
			errors.Is(err, bank.ErrInsufficientFunds) ||
			errors.Is(err, bank.ErrInvalidAmount) {
			return "", registry.NewToolError(registry.ErrInvalidArguments, "transfer_money", err.Error(), err)
		}
		return "", err
	}
	return marshal(map[string]any{
		"transaction_id": txn.ID,
		"amount":         txn.Amount,
		"status":         txn.Status,
		"description":    txn.Description,
	})
}

func (d Deps) searchSupportDocuments(ctx context.Context, call registry.Call) (string, error) {
	hits, err := d.Docs.Search(ctx, strArg(call.Args, "user_question"), 3)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return marshal(map[string]any{"documents": []any{}, "note": "no matching documents found"})
	}
	return marshal(map[string]any{"documents": hits})
}

func (d Deps) createWidget(ctx context.Context, call registry.Call) (string, error) {
	title := strArg(call.Args, "title")
	widgetType := strArg(call.Args, "widget_type")
	queryType := strArg(call.Args, "query_type")

	var cfg map[string]any
	if raw, ok := call.Args["config"].(map[string]any); ok {
		cfg = raw
	}

	var queryCfg *widget.QueryConfig
	if strArg(call.Args, "data_mode") == "dynamic" || queryType != "" {
		qc := widget.QueryConfig{
			QueryType: queryType,
			TimeRange: strArg(call.Args, "time_range"),
			Filters: widget.Filters{
				Category:    strArg(call.Args, "category"),
				AccountName: strArg(call.Args, "account_name"),
				TargetDate:  strArg(call.Args, "target_date"),
			},
		}
		if f, ok := floatArg(call.Args, "target_amount"); ok {
			qc.Filters.TargetAmount = decimal.NewFromFloat(f)
		}
		if f, ok := floatArg(call.Args, "limit_amount"); ok {
			qc.Filters.LimitAmount = decimal.NewFromFloat(f)
		}
		if err := widget.ValidateQueryConfig(qc); err != nil {
			return "", registry.NewToolError(registry.ErrInvalidArguments, "create_widget", err.Error(), err)
		}
		queryCfg = &qc
	}

	w, err := d.Widgets.Create(ctx, call.UserID, title, widgetType, cfg, queryCfg)
	if err != nil {
		return "", err
	}
	goalType := ""
	switch queryType {
	case widget.QueryGoalSavings, widget.QueryDebtPayoff, widget.QuerySpendingLimit:
		goalType = queryType
	}
	if call.Effects != nil {
		call.Effects.RecordWidget(w.WidgetType, goalType)
	}
	return marshal(map[string]any{
		"widget_id":   w.ID,
		"title":       w.Title,
		"widget_type": w.WidgetType,
		"data_mode":   w.DataMode,
	})
}

func (d Deps) updateWidget(ctx context.Context, call registry.Call) (string, error) {
	var cfg map[string]any
	if raw, ok := call.Args["config"].(map[string]any); ok {
		cfg = raw
	}
	w, err := d.Widgets.Update(ctx, call.UserID, strArg(call.Args, "widget_id"), strArg(call.Args, "title"), cfg)
	if err != nil {
		if errors.Is(err, widget.ErrWidgetNotFound) {
			return "", registry.NewToolError(registry.ErrInvalidArguments, "update_widget", err.Error(), err)
		}
		return "", err
	}
	return marshal(map[string]any{"widget_id": w.ID, "title": w.Title, "updated": true})
}

func (d Deps) listUserWidgets(ctx context.Context, call registry.Call) (string, error) {
	widgets, err := d.Widgets.List(ctx, call.UserID)
	if err != nil {
		return "", err
	}
	out := make([]map[string]any, len(widgets))
	for i, w := range widgets {
		out[i] = map[string]any{
			"widget_id":   w.ID,
			"title":       w.Title,
			"widget_type": w.WidgetType,
			"data_mode":   w.DataMode,
		}
	}
	return marshal(map[string]any{"widgets": out})
}

func (d Deps) deleteWidget(ctx context.Context, call registry.Call) (string, error) {
	widgetID := strArg(call.Args, "widget_id")
	if err := d.Widgets.Delete(ctx, call.UserID, widgetID); err != nil {
		if errors.Is(err, widget.ErrWidgetNotFound) {
			return "", registry.NewToolError(registry.ErrInvalidArguments, "delete_widget", err.Error(), err)
		}
		return "", err
	}
	return marshal(map[string]any{"widget_id": widgetID, "deleted": true})
}

func (d Deps) flagSuspiciousActivity(ctx context.Context, call registry.Call) (string, error) {
	txnID := strArg(call.Args, "transaction_id")
	reason := strArg(call.Args, "reason")
	txn, err := d.Bank.FlagTransaction(ctx, call.UserID, txnID)
	if err != nil {
		return "", registry.NewToolError(registry.ErrInvalidArguments, "flag_suspicious_activity", err.Error(), err)
	}

	alerted := false
	if d.Alerts != nil {
		subject := "Suspicious activity flagged"
		body := fmt.Sprintf("user=%s transaction=%s amount=%s reason=%s",
			call.UserID, txn.ID, txn.Amount, reason)
		// Best effort: a failed alert must not fail the flag itself.
		if err := d.Alerts.Notify(ctx, subject, body); err == nil {
			alerted = true
		}
	}
	return marshal(map[string]any{
		"transaction_id": txn.ID,
		"category":       txn.Category,
		"reason":         reason,
		"alerted":        alerted,
	})
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tools: encode output: %w", err)
	}
	return string(raw), nil
}

func strArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) (float64, bool) {
	f, ok := args[key].(float64)
	return f, ok
}

func intArg(args map[string]any, key string) int {
	if f, ok := floatArg(args, key); ok {
		return int(f)
	}
	return 0
}
