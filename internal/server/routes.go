package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/zulandar/teller/internal/bank"
	"github.com/zulandar/teller/internal/models"
	"github.com/zulandar/teller/internal/recorder"
	"github.com/zulandar/teller/internal/turn"
	"github.com/zulandar/teller/internal/widget"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/health", handleHealth())

	router.POST("/chatbot", handleChatbot(opts))
	router.POST("/chat/sessions", handleCreateSession(opts))
	router.GET("/chat/sessions", handleListSessions(opts))
	router.GET("/chat/history/:session_id", handleHistory(opts))

	router.DELETE("/admin/clear-session/:session_id", handleClearSession(opts))
	router.DELETE("/admin/clear-chat-history", handleClearHistory(opts))

	router.GET("/accounts", handleAccounts(opts))
	router.POST("/accounts", handleCreateAccount(opts))
	router.GET("/transactions", handleTransactions(opts))
	router.POST("/transactions", handleTransfer(opts))

	router.GET("/widgets", handleWidgets(opts))
	router.POST("/widgets/:id/refresh", handleRefreshWidget(opts))
	router.DELETE("/widgets/:id", handleDeleteWidget(opts))

	router.GET("/tools/definitions", handleToolDefinitions(opts))
	router.GET("/specialists/definitions", handleSpecialistDefinitions(opts))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type chatbotRequest struct {
	Messages  []turn.Message `json:"messages" binding:"required"`
	SessionID string         `json:"session_id" binding:"required"`
	UserID    string         `json:"user_id" binding:"required"`
}

func handleChatbot(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatbotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messages, session_id, and user_id are required"})
			return
		}

		resp, err := opts.Pipeline.Process(c.Request.Context(), turn.Request{
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Messages:  req.Messages,
		})
		if err != nil {
			switch {
			case errors.Is(err, recorder.ErrSessionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			case errors.Is(err, turn.ErrTurnTimeout):
				logError(opts, "", err)
				c.JSON(http.StatusGatewayTimeout, gin.H{
					"error":     "the request took too long; please try again",
					"retryable": true,
				})
			default:
				logError(opts, "", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":     "something went wrong handling your message; please try again",
					"retryable": true,
				})
			}
			return
		}

		toolsUsed := resp.ToolsUsed
		if toolsUsed == nil {
			toolsUsed = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"response":       resp.Response,
			"session_id":     resp.SessionID,
			"widget_created": resp.WidgetCreated,
			"widget_type":    resp.WidgetType,
			"goal_type":      resp.GoalType,
			"tools_used":     toolsUsed,
		})
	}
}

type createSessionRequest struct {
	Title  string `json:"title"`
	UserID string `json:"user_id" binding:"required"`
}

func handleCreateSession(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		session, err := opts.Recorder.BeginSession(c.Request.Context(), req.UserID, req.Title)
		if err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create the conversation"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": session.SessionID})
	}
}

func handleListSessions(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		sessions, err := opts.Recorder.Sessions(c.Request.Context(), userID)
		if err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}

func handleHistory(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if _, err := opts.Recorder.Session(c.Request.Context(), sessionID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		messages, err := opts.Recorder.History(c.Request.Context(), sessionID)
		if err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
	}
}

func handleClearSession(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if err := opts.Recorder.ClearSession(c.Request.Context(), sessionID); err != nil {
			if errors.Is(err, recorder.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear the session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": sessionID})
	}
}

func handleClearHistory(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := opts.Recorder.ClearAll(c.Request.Context()); err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear chat history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": "all"})
	}
}

func handleAccounts(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		accounts, err := opts.Bank.GetAccounts(c.Request.Context(), userID)
		if err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load accounts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

type createAccountRequest struct {
	UserID      string  `json:"user_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	AccountType string  `json:"account_type" binding:"required"`
	Balance     float64 `json:"balance"`
}

func handleCreateAccount(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, name, and account_type are required"})
			return
		}
		account, err := opts.Bank.CreateAccount(c.Request.Context(), req.UserID,
			req.AccountType, req.Name, decimal.NewFromFloat(req.Balance))
		if err != nil {
			if errors.Is(err, bank.ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "balance must not be negative"})
				return
			}
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create the account"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": account})
	}
}

type transferRequest struct {
	UserID          string  `json:"user_id" binding:"required"`
	FromAccountName string  `json:"from_account_name" binding:"required"`
	ToAccountName   string  `json:"to_account_name"`
	Amount          float64 `json:"amount" binding:"required"`
	Description     string  `json:"description"`
}

func handleTransfer(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, from_account_name, and amount are required"})
			return
		}
		txn, err := opts.Bank.Transfer(c.Request.Context(), req.UserID,
			req.FromAccountName, req.ToAccountName, decimal.NewFromFloat(req.Amount), req.Description)
		if err != nil {
			switch {
			case errors.Is(err, bank.ErrAccountNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			case errors.Is(err, bank.ErrInsufficientFunds), errors.Is(err, bank.ErrInvalidAmount):
				c.JSON(http.StatusBadRequest, gin.H{"error": "the transfer amount is invalid or exceeds the balance"})
			default:
				logError(opts, "", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete the transfer"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": txn})
	}
}

func handleTransactions(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		txns, err := opts.Bank.ListTransactions(c.Request.Context(), userID, bank.TransactionFilter{
			Limit:    limit,
			Category: c.Query("category"),
		})
		if err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transactions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txns})
	}
}

func handleWidgets(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		widgets, err := opts.Widgets.List(c.Request.Context(), userID)
		if err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load widgets"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"widgets": widgets})
	}
}

func handleRefreshWidget(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		w, err := opts.Widgets.Refresh(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, widget.ErrWidgetNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
			case errors.Is(err, widget.ErrNotDynamic):
				c.JSON(http.StatusBadRequest, gin.H{"error": "only dynamic widgets can be refreshed"})
			default:
				logError(opts, "", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not refresh the widget"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"widget": w})
	}
}

func handleDeleteWidget(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		if err := opts.Widgets.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
			if errors.Is(err, widget.ErrWidgetNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
				return
			}
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete the widget"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
	}
}

func handleToolDefinitions(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var defs []models.ToolDefinition
		if err := opts.DB.Where("is_active = ?", true).Order("name ASC").Find(&defs).Error; err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load tool definitions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tools": defs})
	}
}

func handleSpecialistDefinitions(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var defs []models.SpecialistDefinition
		if err := opts.DB.Where("is_active = ?", true).Order("name ASC").Find(&defs).Error; err != nil {
			logError(opts, "", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load specialist definitions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"specialists": defs})
	}
}

// logError records internal failure detail server-side; clients only ever
// see plain-language messages.
func logError(opts StartOpts, traceID string, err error) {
	if opts.Out == nil {
		return
	}
	if traceID != "" {
		fmt.Fprintf(opts.Out, "server: trace=%s: %v\n", traceID, err)
		return
	}
	fmt.Fprintf(opts.Out, "server: %v\n", err)
}
