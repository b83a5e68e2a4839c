package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/teller/internal/config"
	"github.com/zulandar/teller/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Teller database",
		Long:  "Migrates all tables and seeds the tool/specialist catalog, plus demo data when configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teller.yaml", "path to Teller config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedCatalog(gdb); err != nil {
		return err
	}
	fmt.Fprintln(out, "Seeded tool and specialist catalog")

	if cfg.Demo.Seed {
		if err := db.SeedDemo(gdb, cfg.Demo.UserID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded demo data for %s\n", cfg.Demo.UserID)
	}

	fmt.Fprintln(out, "\nTeller database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Teller database",
		Long:  "For the sqlite driver, removes the database file and re-runs init. Requires --yes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teller.yaml", "path to Teller config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, yes bool) error {
	if !yes {
		return fmt.Errorf("refusing to reset without --yes")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DB.Driver != "sqlite" {
		return fmt.Errorf("db reset supports the sqlite driver only; drop the %s database manually", cfg.DB.Driver)
	}

	if err := os.Remove(cfg.DB.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", cfg.DB.Path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cfg.DB.Path)

	return runDBInit(cmd, configPath)
}
