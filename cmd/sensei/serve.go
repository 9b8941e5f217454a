package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/retention"
	"github.com/zulandar/sensei/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the chat HTTP API. When retention.schedule is set, empty
conversations older than retention.max_age_days are pruned on that schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, gormDB, false)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Retention.Schedule != "" {
		pruner, err := retention.New(retention.Opts{
			Store:    p.store,
			Schedule: cfg.Retention.Schedule,
			MaxAge:   maxAge(cfg.Retention.MaxAgeDays),
		})
		if err != nil {
			return err
		}
		logger.Info("retention enabled", "schedule", cfg.Retention.Schedule, "max_age_days", cfg.Retention.MaxAgeDays)
		go pruner.Run(ctx)
	}

	return server.Start(ctx, server.StartOpts{
		Orchestrator: p.orch,
		Chat:         p.resolver,
		DB:           gormDB,
		Port:         port,
		Out:          cmd.OutOrStdout(),
	})
}
