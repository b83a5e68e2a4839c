package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/teller/internal/config"
	"github.com/zulandar/teller/internal/db"
	"github.com/zulandar/teller/internal/widget"
)

func newWidgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "Widget maintenance commands",
	}

	cmd.AddCommand(newWidgetsRefreshCmd())
	return cmd
}

func newWidgetsRefreshCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh all dynamic widgets once",
		Long:  "Re-runs every dynamic widget's stored query against current data. The serve command does this on a schedule; this runs one sweep and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWidgetsRefresh(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teller.yaml", "path to Teller config file")
	return cmd
}

func runWidgetsRefresh(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	engine := widget.NewEngine(gdb)
	refreshed, err := engine.RefreshAllDynamic(cmd.Context(), func(widgetID string, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "widget %s: %v\n", widgetID, err)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Refreshed %d dynamic widgets\n", refreshed)
	return nil
}
