package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/alertwatch/internal/history"
	"github.com/good-yellow-bee/alertwatch/internal/metrics"
	"github.com/good-yellow-bee/alertwatch/internal/runlock"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect metrics and probe services",
	Long: `Probes the configured services, records availability and runtime
metric samples and evaluates thresholds. Intended to run from cron.

Concurrent runs are excluded through a database lock, independent of
the escalation lock so that collection and escalation may overlap.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	ctx := context.Background()

	lock := runlock.New(store.Locks(), "collect", runlock.DefaultTTL)
	held, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire collect lock: %w", err)
	}
	if !held {
		log.Printf("collection already running, skipping")
		return nil
	}
	defer lock.Release()

	aggregator := history.NewAggregator(store.Samples())
	collector := history.NewCollector(aggregator, manager, cfg.Collector)

	start := time.Now()
	log.Printf("collection started: %d probe(s)", len(cfg.Collector.Probes))

	err = collector.Run(ctx)
	duration := time.Since(start)
	metrics.CronRunDuration.WithLabelValues("collect").Observe(duration.Seconds())
	if err != nil {
		metrics.CronRunsTotal.WithLabelValues("collect", "error").Inc()
		reportJobFailure(ctx, manager, "collect", err)
		return fmt.Errorf("collect metrics: %w", err)
	}

	metrics.CronRunsTotal.WithLabelValues("collect", "ok").Inc()
	log.Printf("collection finished in %s", duration.Round(time.Millisecond))
	return nil
}
