package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/alertwatch/internal/metrics"
	"github.com/good-yellow-bee/alertwatch/internal/models"
	"github.com/good-yellow-bee/alertwatch/internal/runlock"
)

var escalateCmd = &cobra.Command{
	Use:   "escalate",
	Short: "Run one escalation pass",
	Long: `Scans open alerts, escalates those whose dwell time has elapsed and
re-notifies at the escalated priority. Intended to run from cron.

Concurrent runs are excluded through a database lock: when another run
holds the lock this one exits cleanly without doing anything.`,
	RunE: runEscalate,
}

func init() {
	rootCmd.AddCommand(escalateCmd)
}

func runEscalate(cmd *cobra.Command, args []string) error {
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

	lock := runlock.New(store.Locks(), "escalate", runlock.DefaultTTL)
	held, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire escalate lock: %w", err)
	}
	if !held {
		log.Printf("escalation already running, skipping")
		return nil
	}
	defer lock.Release()

	start := time.Now()
	log.Printf("escalation pass started")

	count, err := manager.ProcessEscalations(ctx)
	duration := time.Since(start)
	metrics.CronRunDuration.WithLabelValues("escalate").Observe(duration.Seconds())
	if err != nil {
		metrics.CronRunsTotal.WithLabelValues("escalate", "error").Inc()
		reportJobFailure(ctx, manager, "escalate", err)
		return fmt.Errorf("process escalations: %w", err)
	}

	metrics.CronRunsTotal.WithLabelValues("escalate", "ok").Inc()
	log.Printf("escalation pass finished: %d alert(s) escalated in %s", count, duration.Round(time.Millisecond))
	return nil
}

// reportJobFailure raises a system alert about a failed scheduled run.
// The alert is best effort: the original failure is what the caller
// returns, never an error from here.
func reportJobFailure(ctx context.Context, creator interface {
	CreateAlert(ctx context.Context, title, message string, severity int, source string, metadata models.Metadata) (string, error)
}, job string, jobErr error) {
	title := fmt.Sprintf("Scheduled job failed: %s", job)
	if _, err := creator.CreateAlert(ctx, title, jobErr.Error(), 4, "system",
		models.Metadata{"job": models.String(job)}); err != nil {
		log.Printf("report %s failure: %v", job, err)
	}
}
