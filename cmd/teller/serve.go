package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/teller/internal/config"
	"github.com/zulandar/teller/internal/db"
	"github.com/zulandar/teller/internal/refresh"
	"github.com/zulandar/teller/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Teller API server",
		Long:  "Serves the /chatbot turn endpoint plus session, history, admin, and dashboard routes. Runs the dynamic-widget refresh schedule when configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teller.yaml", "path to Teller config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	st, err := buildStack(cfg, gdb, engine, out)
	if err != nil {
		return err
	}

	scheduler, err := refresh.New(cfg.Refresh.Cron, st.widgets, out)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()
	if cfg.Refresh.Cron != "" {
		fmt.Fprintf(out, "Widget refresh scheduled: %s\n", cfg.Refresh.Cron)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, server.StartOpts{
		DB:       gdb,
		Pipeline: st.pipeline,
		Recorder: st.recorder,
		Bank:     st.bank,
		Widgets:  st.widgets,
		Port:     cfg.Server.Port,
		Out:      out,
	})
}
