package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zulandar/nudgeyard/internal/config"
	"github.com/zulandar/nudgeyard/internal/db"
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
		Short: "Initialize the Nudgeyard database",
		Long:  "Creates the configured database (mysql) or file (sqlite) and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Using %s database %s\n", cfg.Database.Driver, databaseName(cfg))

	gormDB, err := db.Init(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nNudgeyard database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-create the Nudgeyard database",
		Long: `Drops the Nudgeyard database (mysql) or its tables (sqlite) and migrates
the schema again.

All stored user configs, context snapshots and intervention history are lost.
Feedback scores held in Redis are not touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes || force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt (alias for --yes)")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if !skipConfirm {
		if !confirmReset(cmd, databaseName(cfg)) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if cfg.Database.Driver == "mysql" {
		return resetMySQL(out, cfg)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.ResetSchema(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped and migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nDatabase reset successfully.")
	return nil
}

// resetMySQL drops the whole database and re-creates it.
func resetMySQL(out io.Writer, cfg *config.Config) error {
	admin, err := db.ConnectAdmin(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := admin.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.DropDatabase(admin, cfg.Database.Name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped database %s\n", cfg.Database.Name)

	gormDB, err := db.Init(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	fmt.Fprintf(out, "Database %s re-created, migrated %d tables\n", cfg.Database.Name, len(db.AllModels()))
	fmt.Fprintln(out, "\nDatabase reset successfully.")
	return nil
}

func databaseName(cfg *config.Config) string {
	if cfg.Database.Driver == "mysql" {
		return cfg.Database.Name
	}
	return cfg.Database.Path
}

// confirmReset prompts the user to type "yes" to confirm a destructive reset.
func confirmReset(cmd *cobra.Command, dbName string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in database %q.\n", dbName)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
