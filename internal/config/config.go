// Package config provides YAML-based configuration loading for Teller.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Teller configuration, loaded from config.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	LLM     LLMConfig     `yaml:"llm"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Refresh RefreshConfig `yaml:"refresh"`
	Demo    DemoConfig    `yaml:"demo"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port               int `yaml:"port"`
	TurnTimeoutSeconds int `yaml:"turn_timeout_seconds"`
}

// DBConfig holds connection settings for the banking/audit database.
// Driver "sqlite" uses Path; driver "mysql" uses Host/Port/Database.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Path     string `yaml:"path"`
}

// LLMConfig holds settings for the reasoning-engine endpoint. The API key
// is read from the environment variable named by APIKeyEnv, never from the
// config file.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AlertsConfig configures fraud-alert delivery channels. Channels with an
// empty token are disabled.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack alert settings. Token is read from the
// environment variable named by TokenEnv.
type SlackConfig struct {
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord alert settings.
type DiscordConfig struct {
	TokenEnv  string `yaml:"token_env"`
	ChannelID string `yaml:"channel_id"`
}

// RefreshConfig controls the dynamic-widget refresh schedule.
type RefreshConfig struct {
	Cron string `yaml:"cron"` // standard 5-field expression; empty disables
}

// DemoConfig controls demo data seeding on `teller db init`.
type DemoConfig struct {
	Seed   bool   `yaml:"seed"`
	UserID string `yaml:"user_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file next to the process, if present, is loaded first so that
// *_env lookups resolve.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

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

// TurnTimeout returns the turn-level timeout as a duration.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Server.TurnTimeoutSeconds) * time.Second
}

// LLMAPIKey resolves the reasoning-engine API key from the environment.
func (c *Config) LLMAPIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.TurnTimeoutSeconds == 0 {
		c.Server.TurnTimeoutSeconds = 60
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "teller.db"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "teller"
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "TELLER_LLM_API_KEY"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 45
	}
	if c.Demo.UserID == "" {
		c.Demo.UserID = "user_demo"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not one of sqlite, mysql", c.DB.Driver))
	}
	if c.LLM.BaseURL == "" {
		errs = append(errs, "llm.base_url is required")
	}
	if c.Server.TurnTimeoutSeconds < 0 {
		errs = append(errs, "server.turn_timeout_seconds must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
