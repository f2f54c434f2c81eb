package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/alertwatch/internal/alert"
	"github.com/good-yellow-bee/alertwatch/internal/api"
	"github.com/good-yellow-bee/alertwatch/internal/history"
	"github.com/good-yellow-bee/alertwatch/pkg/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API for alert management. The server exposes the
alert lifecycle endpoints, historical metrics endpoints, a health check
and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.API.Address = serveAddr
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	dispatcher, err := buildDispatcher(cfg, store)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	manager, err := buildManager(cfg, store, dispatcher)
	if err != nil {
		return err
	}

	aggregator := history.NewAggregator(store.Samples())

	apiCfg := &api.Config{
		Address:        cfg.API.Address,
		APIKey:         cfg.API.APIKey,
		JWTSecret:      []byte(cfg.API.JWTSecret),
		RateLimitPerIP: cfg.API.RateLimitPerIP,
		RateLimitBurst: cfg.API.RateLimitBurst,
		Verbose:        cfg.Verbose,
	}

	srv, err := api.New(apiCfg, store, manager, aggregator)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if cfg.PolicyWatch() {
		stop, err := watchPolicy(cfg.Policy.Path, manager)
		if err != nil {
			log.Printf("policy watch disabled: %v", err)
		} else {
			defer stop()
		}
	}

	log.Printf("starting alertwatch %s", config.Version)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// watchPolicy reloads the escalation policy when the file changes. The
// parent directory is watched because editors typically replace the
// file via rename, which drops a watch on the file itself.
func watchPolicy(path string, manager *alert.Manager) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)
	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Collapse the burst of events a single save produces.
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, func() {
					policy, err := alert.LoadPolicy(path)
					if err != nil {
						log.Printf("policy reload failed, keeping previous policy: %v", err)
						return
					}
					manager.SetPolicy(policy)
					log.Printf("escalation policy reloaded from %s", path)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("policy watcher error: %v", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
