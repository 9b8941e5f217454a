package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/sensei/internal/orchestrator"
)

func newAskCmd() *cobra.Command {
	var (
		configPath string
		owner      string
		chatID     string
		category   string
		limit      int
		analyze    bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Run one chat turn from the command line",
		Long: `Runs a prompt through the same pipeline as the HTTP API and prints the
answer. The turn is stored in the owner's conversation history.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turn := orchestrator.Turn{
				Owner:    owner,
				Prompt:   strings.Join(args, " "),
				ChatID:   chatID,
				Limit:    limit,
				Category: category,
			}
			return runAsk(cmd, configPath, turn, analyze, offline)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().StringVarP(&owner, "user", "u", currentUser(), "conversation owner")
	cmd.Flags().StringVar(&chatID, "chat", "", "continue this conversation (chat id)")
	cmd.Flags().StringVar(&category, "category", "", "analysis persona (GENERAL, DEVELOPER_RCA, PERFORMANCE_ANALYSIS, SECURITY_ANALYSIS, BUSINESS_IMPACT)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "row limit for data queries")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "skip routing and always run log analysis")
	cmd.Flags().BoolVar(&offline, "no-llm", false, "never call the completion service")
	return cmd
}

func runAsk(cmd *cobra.Command, configPath string, turn orchestrator.Turn, analyze, offline bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, gormDB, offline)
	if err != nil {
		return err
	}

	run := p.orch.Process
	if analyze {
		run = p.orch.Analyze
	}
	res, err := run(cmd.Context(), turn)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Text)
	fmt.Fprintf(out, "\nchat: %s", res.ChatID)
	if res.Target != "" {
		fmt.Fprintf(out, "  target: %s", res.Target)
	}
	if res.TransactionID != "" {
		fmt.Fprintf(out, "  transaction: %s", res.TransactionID)
	}
	fmt.Fprintln(out)
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
