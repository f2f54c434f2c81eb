// Package cmd contains the CLI commands for alertwatch.
package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/alertwatch/internal/alert"
	"github.com/good-yellow-bee/alertwatch/internal/notify"
	"github.com/good-yellow-bee/alertwatch/internal/storage"
)

var (
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alertwatch",
	Short: "AlertWatch - Alert lifecycle and escalation engine",
	Long: `AlertWatch tracks operational alerts through their lifecycle,
escalates unacknowledged ones on a schedule, dispatches rate-limited
notifications over push and email, and keeps a time-series history of
service metrics.

Examples:
  # Start the HTTP API server
  alertwatch serve --config /etc/alertwatch/config.yaml

  # Run one escalation pass (from cron)
  alertwatch escalate --config /etc/alertwatch/config.yaml

  # Collect metrics and probe services (from cron)
  alertwatch collect --config /etc/alertwatch/config.yaml

  # Purge old resolved alerts and history samples
  alertwatch cleanup --config /etc/alertwatch/config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig resolves the effective configuration from the --config
// flag, falling back to defaults when none is given.
func loadConfig() (*Config, error) {
	var cfg *Config
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}
	cfg.Verbose = verbose
	return cfg, nil
}

// openStorage opens and migrates the SQLite store, creating the data
// directory on first run.
func openStorage(cfg *Config) (*storage.SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// buildDispatcher wires the configured notification channels and the
// durable rate limiter. Channels without configuration are simply not
// registered; sends to them report a skipped outcome.
func buildDispatcher(cfg *Config, store storage.Storage) (*notify.Dispatcher, error) {
	var limiter *notify.RateLimiter
	if cfg.Notify.RateLimit.Enabled {
		limiter = notify.NewRateLimiter(store.NotificationLog(), cfg.Notify.RateLimit)
	}

	dispatcher := notify.NewDispatcher(limiter)

	if cfg.Notify.Push.URL != "" {
		sender, err := notify.NewPushSender(cfg.Notify.Push)
		if err != nil {
			return nil, fmt.Errorf("push sender: %w", err)
		}
		dispatcher.Register(sender)
	}
	if cfg.Notify.Email.Host != "" {
		sender, err := notify.NewEmailSender(cfg.Notify.Email)
		if err != nil {
			return nil, fmt.Errorf("email sender: %w", err)
		}
		dispatcher.Register(sender)
	}

	return dispatcher, nil
}

// buildManager assembles the lifecycle manager with the escalation
// policy from the config, the default policy when none is configured.
func buildManager(cfg *Config, store storage.Storage, dispatcher *notify.Dispatcher) (*alert.Manager, error) {
	policy := alert.DefaultPolicy()
	if cfg.Policy.Path != "" {
		loaded, err := alert.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return nil, fmt.Errorf("load escalation policy: %w", err)
		}
		policy = loaded
		log.Printf("escalation policy loaded from %s", cfg.Policy.Path)
	}

	return alert.NewManager(store, dispatcher, policy, cfg.Alerts), nil
}
