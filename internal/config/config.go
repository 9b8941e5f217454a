// Package config provides YAML-based configuration loading for Sensei.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Sensei configuration, loaded from sensei.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Chat      ChatConfig      `yaml:"chat"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds connection settings for the chat and evidence store.
// Driver is "mysql" or "sqlite"; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"`
}

// LLMConfig selects the completion provider. The API key itself is never
// stored in the file; APIKeyEnv names the environment variable holding it.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// AnalysisConfig tunes evidence retrieval and log selection.
type AnalysisConfig struct {
	MaxLogChars   int `yaml:"max_log_chars"`
	PageSize      int `yaml:"page_size"`
	HistoryWindow int `yaml:"history_window"`
}

// ChatConfig tunes conversation titling and router context.
type ChatConfig struct {
	TitleMaxLen   int `yaml:"title_max_len"`
	RecentPrompts int `yaml:"recent_prompts"`
}

// RetentionConfig controls the background pruning of abandoned empty
// conversations. An empty Schedule disables pruning.
type RetentionConfig struct {
	Schedule   string `yaml:"schedule"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied,
// backed by a local sqlite file. Used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Database == "" {
			c.Database.Database = "sensei"
		}
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "sensei.db"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.Model = "claude-3-5-haiku-latest"
		default:
			c.LLM.Model = "gpt-4.1-mini"
		}
	}
	if c.LLM.APIKeyEnv == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
		default:
			c.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1500
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.Analysis.MaxLogChars == 0 {
		c.Analysis.MaxLogChars = 10000
	}
	if c.Analysis.PageSize == 0 {
		c.Analysis.PageSize = 100
	}
	if c.Analysis.HistoryWindow == 0 {
		c.Analysis.HistoryWindow = 10
	}
	if c.Chat.TitleMaxLen == 0 {
		c.Chat.TitleMaxLen = 60
	}
	if c.Chat.RecentPrompts == 0 {
		c.Chat.RecentPrompts = 5
	}
	if c.Retention.MaxAgeDays == 0 {
		c.Retention.MaxAgeDays = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q must be openai or anthropic", c.LLM.Provider))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, "llm.timeout must not be negative")
	}
	if c.Analysis.MaxLogChars < 0 {
		errs = append(errs, "analysis.max_log_chars must not be negative")
	}
	if c.Chat.TitleMaxLen < 2 {
		errs = append(errs, "chat.title_max_len must be at least 2")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN returns the driver-specific data source name for the configured database.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	mc.DBName = d.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// APIKey returns the LLM API key from the configured environment variable.
func (l LLMConfig) APIKey() string {
	return strings.TrimSpace(os.Getenv(l.APIKeyEnv))
}
