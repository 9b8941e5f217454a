package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zulandar/sensei/internal/evidence"
)

func newIngestCmd() *cobra.Command {
	var (
		configPath string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "ingest <logfile>...",
		Short: "Index application log files as evidence",
		Long: `Parses log files line by line, indexes each line by the transaction,
correlation, client and user ids it mentions, and records every transaction
seen. Re-ingesting a file replaces its previous lines.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, configPath, batchSize, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().IntVar(&batchSize, "batch", 0, "rows per insert batch")
	return cmd
}

func runIngest(cmd *cobra.Command, configPath string, batchSize int, paths []string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	in, err := evidence.NewIngester(evidence.IngesterOpts{DB: gormDB, BatchSize: batchSize})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var total evidence.IngestStats
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		stats, err := in.Ingest(cmd.Context(), filepath.Base(path), f)
		f.Close()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d lines, %d transactions\n", path, stats.Lines, stats.Transactions)
		total.Lines += stats.Lines
		total.Transactions += stats.Transactions
	}
	if len(paths) > 1 {
		fmt.Fprintf(out, "total: %d lines, %d transactions\n", total.Lines, total.Transactions)
	}
	return nil
}
