package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/sensei/internal/config"
	"github.com/zulandar/sensei/internal/db"
	"github.com/zulandar/sensei/internal/models"
	"gopkg.in/yaml.v3"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBDropCmd())
	cmd.AddCommand(newDBSeedCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Sensei database",
		Long:  "Creates the MySQL database if needed and migrates all tables. For sqlite the file is created on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Database.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.Database.Host, cfg.Database.Port)
		if err := db.CreateDatabase(adminDB, cfg.Database.Database); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Database)
	}

	if err := migrate(cmd, cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nSensei database initialized successfully.")
	return nil
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate all tables to the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return migrate(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	return cmd
}

func migrate(cmd *cobra.Command, cfg *config.Config) error {
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
	return nil
}

func newDBDropCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the Sensei database",
		Long:  "Drops the MySQL database, or deletes the sqlite file, named in the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBDrop(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBDrop(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	name := cfg.Database.Database
	if cfg.Database.Driver == "sqlite" {
		name = cfg.Database.Path
	}

	if !skipConfirm && !confirmDrop(cmd, name) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	if cfg.Database.Driver == "sqlite" {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		fmt.Fprintf(out, "Removed %s\n", name)
		return nil
	}

	adminDB, err := db.ConnectAdmin(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.DropDatabase(adminDB, name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped database %s\n", name)
	return nil
}

func confirmDrop(cmd *cobra.Command, name string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %q.\n", name)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}

// seedTransaction is one entry of a seed file.
type seedTransaction struct {
	TransactionID string  `yaml:"transaction_id"`
	CorrelationID string  `yaml:"correlation_id"`
	ServiceID     string  `yaml:"service_id"`
	ClientTxnID   string  `yaml:"client_txn_id"`
	UserID        string  `yaml:"user_id"`
	Status        string  `yaml:"status"`
	Amount        float64 `yaml:"amount"`
}

func newDBSeedCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load transaction records from a YAML file",
		Long: `Upserts transaction records keyed by transaction_id. The file holds a
list of entries with transaction_id, correlation_id, service_id,
client_txn_id, user_id, status and amount.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	return cmd
}

func runDBSeed(cmd *cobra.Command, configPath, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var entries []seedTransaction
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	txns := make([]models.Transaction, 0, len(entries))
	for _, e := range entries {
		txns = append(txns, models.Transaction{
			TransactionID: strings.TrimSpace(e.TransactionID),
			CorrelationID: e.CorrelationID,
			ServiceID:     e.ServiceID,
			ClientTxnID:   e.ClientTxnID,
			UserID:        e.UserID,
			Status:        strings.ToUpper(e.Status),
			Amount:        e.Amount,
		})
	}
	if err := db.SeedTransactions(gormDB, txns); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d transactions\n", len(txns))
	return nil
}
