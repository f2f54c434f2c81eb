package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/alertwatch/internal/alert"
	"github.com/good-yellow-bee/alertwatch/internal/history"
	"github.com/good-yellow-bee/alertwatch/internal/notify"
)

// Config represents the alertwatch configuration.
type Config struct {
	Database  DatabaseConfig          `yaml:"database"`
	API       APIConfig               `yaml:"api"`
	Notify    NotifyConfig            `yaml:"notify"`
	Alerts    alert.Config            `yaml:"alerts"`
	Policy    PolicyFileConfig        `yaml:"policy"`
	Collector history.CollectorConfig `yaml:"collector"`
	Retention RetentionConfig         `yaml:"retention"`
	Verbose   bool                    `yaml:"-"` // set via CLI flag
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // default: ./data/alertwatch.db
}

// APIConfig contains HTTP API settings.
type APIConfig struct {
	Address        string  `yaml:"address"` // default: :8090
	APIKey         string  `yaml:"api_key"`
	JWTSecret      string  `yaml:"jwt_secret"`
	RateLimitPerIP float64 `yaml:"rate_limit_per_ip"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// NotifyConfig contains notification delivery settings.
type NotifyConfig struct {
	Push      notify.PushConfig      `yaml:"push"`
	Email     notify.EmailConfig     `yaml:"email"`
	RateLimit notify.RateLimitConfig `yaml:"rate_limit"`
}

// PolicyFileConfig points at the escalation policy file. When the path
// is empty the built-in default policy applies.
type PolicyFileConfig struct {
	Path string `yaml:"path"`
	// Watch reloads the policy when the file changes. Default: true
	// when a path is set.
	Watch *bool `yaml:"watch"`
}

// RetentionConfig contains data retention settings.
type RetentionConfig struct {
	AlertDays   int `yaml:"alert_days"`   // default: 30
	HistoryDays int `yaml:"history_days"` // default: 90
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "./data/alertwatch.db"
	}
	if c.API.Address == "" {
		c.API.Address = ":8090"
	}
	if c.Notify.RateLimit.MaxPerWindow == 0 {
		c.Notify.RateLimit.MaxPerWindow = 10
	}
	if c.Notify.RateLimit.Window == 0 {
		c.Notify.RateLimit.Window = 5 * time.Minute
	}
	if c.Retention.AlertDays == 0 {
		c.Retention.AlertDays = alert.DefaultRetentionDays
	}
	if c.Retention.HistoryDays == 0 {
		c.Retention.HistoryDays = history.DefaultRetentionDays
	}
	c.Alerts.SetDefaults()
	c.Collector.SetDefaults()
	c.Collector.DatabasePath = c.Database.Path
}

// PolicyWatch reports whether the policy file should be watched for
// changes.
func (c *Config) PolicyWatch() bool {
	if c.Policy.Path == "" {
		return false
	}
	if c.Policy.Watch == nil {
		return true
	}
	return *c.Policy.Watch
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Notify.Push.URL != "" {
		if err := c.Notify.Push.Validate(); err != nil {
			return fmt.Errorf("notify.push: %w", err)
		}
	}
	if c.Notify.Email.Host != "" {
		if err := c.Notify.Email.Validate(); err != nil {
			return fmt.Errorf("notify.email: %w", err)
		}
	}
	if c.Retention.AlertDays < 0 {
		return fmt.Errorf("retention.alert_days must not be negative")
	}
	if c.Retention.HistoryDays < 0 {
		return fmt.Errorf("retention.history_days must not be negative")
	}
	for i, probe := range c.Collector.Probes {
		if probe.Name == "" {
			return fmt.Errorf("collector.probes[%d]: name is required", i)
		}
		if probe.URL == "" {
			return fmt.Errorf("collector.probes[%d]: url is required", i)
		}
	}
	return nil
}
