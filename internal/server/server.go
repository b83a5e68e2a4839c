// Package server exposes the orchestration engine over HTTP: the /chatbot
// turn endpoint, session and history reads, admin purges, and read-only
// banking/widget/catalog views for the dashboard.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/teller/internal/bank"
	"github.com/zulandar/teller/internal/recorder"
	"github.com/zulandar/teller/internal/turn"
	"github.com/zulandar/teller/internal/widget"
	"gorm.io/gorm"
)

// StartOpts holds configuration and collaborators for the API server.
type StartOpts struct {
	DB       *gorm.DB
	Pipeline *turn.Pipeline
	Recorder *recorder.Recorder
	Bank     *bank.Store
	Widgets  *widget.Engine
	Port     int
	Out      io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Pipeline == nil {
		return fmt.Errorf("server: turn pipeline is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := NewRouter(opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Teller API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered. Split from
// Start so tests can drive it with httptest.
func NewRouter(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
