package db

import (
	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/registry"
)

// ToolCatalog returns the seed rows for every tool Teller ships with.
// Input schemas are JSON Schema; arguments are validated against them
// before the tool body runs.
func ToolCatalog() []models.ToolDefinition {
	return []models.ToolDefinition{
		{
			Name:        "get_user_accounts",
			Description: "Retrieves all accounts for the current user",
			InputSchema: `{"type":"object","properties":{}}`,
		},
		{
			Name:        "get_transactions_summary",
			Description: "Categorical spending summary for a time period, optionally filtered to one account",
			InputSchema: `{"type":"object","properties":{
				"time_period":{"type":"string"},
				"account_name":{"type":"string"}}}`,
		},
		{
			Name:        "list_transactions",
			Description: "Lists recent transactions for the current user, newest first",
			InputSchema: `{"type":"object","properties":{
				"limit":{"type":"integer","minimum":1,"maximum":100},
				"category":{"type":"string"}}}`,
		},
		{
			Name:        "create_new_account",
			Description: "Creates a new bank account for the current user",
			InputSchema: `{"type":"object","properties":{
				"account_type":{"type":"string","enum":["checking","savings","credit"]},
				"name":{"type":"string"},
				"balance":{"type":"number","minimum":0}},
				"required":["account_type","name"]}`,
		},
		{
			Name:        "transfer_money",
			Description: "Transfers money between the current user's accounts or to an external recipient",
			InputSchema: `{"type":"object","properties":{
				"from_account_name":{"type":"string"},
				"to_account_name":{"type":"string"},
				"amount":{"type":"number","exclusiveMinimum":0},
				"description":{"type":"string"}},
				"required":["from_account_name","amount"]}`,
		},
		{
			Name:        "search_support_documents",
			Description: "Searches the knowledge base for customer support answers",
			InputSchema: `{"type":"object","properties":{
				"user_question":{"type":"string"}},
				"required":["user_question"]}`,
		},
		{
			Name:        "create_widget",
			Description: "Creates a chart, simulation, or goal widget for the current user",
			InputSchema: `{"type":"object","properties":{
				"title":{"type":"string"},
				"widget_type":{"type":"string","enum":["chart","simulation","goal"]},
				"data_mode":{"type":"string","enum":["static","dynamic"]},
				"query_type":{"type":"string","enum":["spending_by_category","monthly_trend","account_balances","goal_savings_progress","debt_payoff_progress","spending_limit"]},
				"time_range":{"type":"string"},
				"category":{"type":"string"},
				"account_name":{"type":"string"},
				"target_amount":{"type":"number"},
				"target_date":{"type":"string"},
				"limit_amount":{"type":"number"},
				"config":{"type":"object"}},
				"required":["title","widget_type"]}`,
		},
		{
			Name:        "update_widget",
			Description: "Updates an existing widget's title or display config",
			InputSchema: `{"type":"object","properties":{
				"widget_id":{"type":"string"},
				"title":{"type":"string"},
				"config":{"type":"object"}},
				"required":["widget_id"]}`,
		},
		{
			Name:        "list_user_widgets",
			Description: "Lists the current user's widgets",
			InputSchema: `{"type":"object","properties":{}}`,
		},
		{
			Name:        "delete_widget",
			Description: "Deletes one of the current user's widgets",
			InputSchema: `{"type":"object","properties":{
				"widget_id":{"type":"string"}},
				"required":["widget_id"]}`,
		},
		{
			Name:        "flag_suspicious_activity",
			Description: "Flags a transaction for fraud review and alerts the operations channel",
			InputSchema: `{"type":"object","properties":{
				"transaction_id":{"type":"string"},
				"reason":{"type":"string"}},
				"required":["transaction_id","reason"]}`,
		},
	}
}

// SpecialistCatalog returns the seed rows for the four specialist profiles.
// The tool_names lists are the only binding between a specialist and its
// tools; the registry resolves them by name at dispatch time.
func SpecialistCatalog() []models.SpecialistDefinition {
	return []models.SpecialistDefinition{
		{
			Name:        registry.SpecialistAccount,
			Description: "Account management: balances, transactions, transfers, new accounts",
			PromptTemplate: `You are a customer support agent for a banking application.

You are currently helping user_id: {{user_id}}. All operations must be
performed for this user only.

Use get_user_accounts for account listings and balances, list_transactions
for specific transaction lists, get_transactions_summary ONLY for general
categorical summaries, transfer_money to move funds, and create_new_account
to open accounts.

Be concise. Do not explain your internal process. Present results directly;
format transaction lists as clean bulleted lines.`,
			ToolNames: `["get_user_accounts","get_transactions_summary","list_transactions","create_new_account","transfer_money"]`,
		},
		{
			Name:        registry.SpecialistSupport,
			Description: "Customer support: policies, procedures, general banking questions",
			PromptTemplate: `You are a customer support agent that provides immediate, complete answers.

Search the knowledge base with search_support_documents and answer the
user's question completely in your first response. No status updates like
"I'm searching...". Be helpful and professional, and include relevant
details from the knowledge base.`,
			ToolNames: `["search_support_documents"]`,
		},
		{
			Name:        registry.SpecialistVisualization,
			Description: "Visualization: charts, simulations, goal trackers",
			PromptTemplate: `You are a visualization specialist helping user_id: {{user_id}}.

Create widgets with create_widget. Use data_mode "dynamic" with a
query_type whenever the user wants current or time-based data (balances,
spending categories, trends, goals); use "static" only when the user
supplies fixed data points. Goal trackers use query_type
goal_savings_progress, debt_payoff_progress, or spending_limit and always
data_mode "dynamic".

Answer completely in your first response and tell the user the widget is
available on their dashboard.`,
			ToolNames: `["create_widget","update_widget","list_user_widgets","delete_widget"]`,
		},
		{
			Name:        registry.SpecialistFraud,
			Description: "Fraud review: anomalous or unauthorized activity",
			PromptTemplate: `You are a fraud review specialist helping user_id: {{user_id}}.

Inspect recent activity with list_transactions. When the user reports a
charge they do not recognize, locate it and use flag_suspicious_activity to
mark it for review; this alerts the operations team. Reassure the user and
state clearly what was flagged. Never invent transactions.`,
			ToolNames: `["list_transactions","flag_suspicious_activity"]`,
		},
	}
}
