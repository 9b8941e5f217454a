package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/zulandar/sensei/internal/agent"
	"github.com/zulandar/sensei/internal/chat"
	"github.com/zulandar/sensei/internal/config"
	"github.com/zulandar/sensei/internal/db"
	"github.com/zulandar/sensei/internal/evidence"
	"github.com/zulandar/sensei/internal/format"
	"github.com/zulandar/sensei/internal/llm"
	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/orchestrator"
	"github.com/zulandar/sensei/internal/router"
	"gorm.io/gorm"
)

const defaultConfigPath = "sensei.yaml"

// loadConfig reads the config file. A missing file at the default path falls
// back to the built-in sqlite configuration.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connectFromConfig loads config, configures logging and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.File, cfg.Log.JSON); err != nil {
		return nil, nil, err
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// pipeline is everything a chat turn needs.
type pipeline struct {
	orch     *orchestrator.Orchestrator
	resolver *chat.Resolver
	store    *chat.GormStore
}

// buildPipeline wires stores, agents and the completer from cfg. offline
// replaces the completer with one that always fails, so routing and
// formatting use their local fallbacks and analyses report an upstream
// failure.
func buildPipeline(cfg *config.Config, gormDB *gorm.DB, offline bool) (*pipeline, error) {
	var completer llm.Completer = llm.Unconfigured{}
	if !offline {
		c, err := llm.New(cfg.LLM)
		if err != nil {
			return nil, err
		}
		completer = c
	}

	chatStore := chat.NewGormStore(gormDB)
	resolver, err := chat.NewResolver(chat.ResolverOpts{
		Store:         chatStore,
		TitleMaxLen:   cfg.Chat.TitleMaxLen,
		HistoryWindow: cfg.Analysis.HistoryWindow,
	})
	if err != nil {
		return nil, err
	}
	evStore, err := evidence.NewGormStore(evidence.GormStoreOpts{
		DB:       gormDB,
		PageSize: cfg.Analysis.PageSize,
	})
	if err != nil {
		return nil, err
	}
	logAgent, err := agent.NewLogAgent(agent.LogAgentOpts{
		Store:    evStore,
		LLM:      completer,
		MaxChars: cfg.Analysis.MaxLogChars,
	})
	if err != nil {
		return nil, err
	}
	dataAgent, err := agent.NewDataAgent(evStore)
	if err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(orchestrator.Opts{
		Chat:          resolver,
		Router:        router.New(completer),
		Formatter:     format.New(completer),
		LogAgent:      logAgent,
		DataAgent:     dataAgent,
		HistoryWindow: cfg.Analysis.HistoryWindow,
		RecentPrompts: cfg.Chat.RecentPrompts,
	})
	if err != nil {
		return nil, err
	}
	return &pipeline{orch: orch, resolver: resolver, store: chatStore}, nil
}

// maxAge converts retention days to a duration.
func maxAge(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
