package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/alertwatch/internal/history"
	"github.com/good-yellow-bee/alertwatch/internal/notify"
)

var (
	cleanupAlertDays   int
	cleanupHistoryDays int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old resolved alerts and history samples",
	Long: `Deletes resolved alerts older than the alert retention period along
with their audit trails, metric and availability samples older than the
history retention period, and stale notification send records.

Unresolved alerts are never deleted, whatever their age.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupAlertDays, "alert-days", 0, "alert retention in days (overrides config)")
	cleanupCmd.Flags().IntVar(&cleanupHistoryDays, "history-days", 0, "history retention in days (overrides config)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cleanupAlertDays > 0 {
		cfg.Retention.AlertDays = cleanupAlertDays
	}
	if cleanupHistoryDays > 0 {
		cfg.Retention.HistoryDays = cleanupHistoryDays
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

	alerts, err := manager.CleanupOldAlerts(ctx, cfg.Retention.AlertDays)
	if err != nil {
		return fmt.Errorf("cleanup alerts: %w", err)
	}
	log.Printf("deleted %d resolved alert(s) and %d action(s) older than %d day(s)",
		alerts.AlertsDeleted, alerts.ActionsDeleted, cfg.Retention.AlertDays)

	aggregator := history.NewAggregator(store.Samples())
	samples, err := aggregator.CleanupOldData(ctx, cfg.Retention.HistoryDays)
	if err != nil {
		return fmt.Errorf("cleanup history: %w", err)
	}
	log.Printf("deleted %d metric and %d availability sample(s) older than %d day(s)",
		samples.MetricsDeleted, samples.AvailabilityDeleted, cfg.Retention.HistoryDays)

	limiter := notify.NewRateLimiter(store.NotificationLog(), cfg.Notify.RateLimit)
	sends, err := limiter.Prune(ctx)
	if err != nil {
		return fmt.Errorf("cleanup notification log: %w", err)
	}
	log.Printf("deleted %d notification send record(s)", sends)

	return nil
}
