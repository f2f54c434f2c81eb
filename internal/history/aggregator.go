// Package history records and summarizes time-series metric and
// availability samples. It has no knowledge of alerting policy;
// threshold evaluation belongs to the callers.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/models"
	"github.com/good-yellow-bee/alertwatch/internal/storage"
)

// Defaults for the read windows and retention.
const (
	DefaultRetentionDays    = 90
	DefaultSummaryHours     = 24
	MaxSummaryHours         = 14 * 24
	availabilityWindowHours = 24
)

// Aggregator stores samples and computes rolling summaries. Every read
// path operates over a bounded window; there is no full-history scan.
type Aggregator struct {
	samples storage.SampleRepository
	now     func() time.Time
}

// NewAggregator creates an aggregator over the given sample store.
func NewAggregator(samples storage.SampleRepository) *Aggregator {
	return &Aggregator{samples: samples, now: time.Now}
}

// RecordSample appends one numeric sample.
func (a *Aggregator) RecordSample(ctx context.Context, metric string, value float64, unit, scope string) error {
	if metric == "" {
		return fmt.Errorf("metric name is required")
	}
	err := a.samples.InsertMetric(ctx, &models.MetricSample{
		Metric:    metric,
		Value:     value,
		Unit:      unit,
		Scope:     scope,
		Timestamp: a.now(),
	})
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// RecordAvailability appends one availability probe result.
// responseTime is optional; probeErr is only meaningful for down.
func (a *Aggregator) RecordAvailability(ctx context.Context, service string, up bool, responseTime *float64, probeErr string) error {
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	status := models.ServiceDown
	if up {
		status = models.ServiceUp
	}
	err := a.samples.InsertAvailability(ctx, &models.AvailabilitySample{
		Service:        service,
		Status:         status,
		ResponseTimeMS: responseTime,
		Error:          probeErr,
		Timestamp:      a.now(),
	})
	if err != nil {
		return fmt.Errorf("record availability: %w", err)
	}
	return nil
}

// GetEventCount returns how many samples of metric were recorded on the
// given calendar day (UTC).
func (a *Aggregator) GetEventCount(ctx context.Context, metric string, date time.Time) (int64, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	count, err := a.samples.EventCount(ctx, metric, day, day.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("event count: %w", err)
	}
	return count, nil
}

// GetPerformanceSummary returns avg/min/max per metric over the last
// hours. The window is clamped to MaxSummaryHours.
func (a *Aggregator) GetPerformanceSummary(ctx context.Context, hours int) ([]*models.MetricSummary, error) {
	if hours <= 0 {
		hours = DefaultSummaryHours
	}
	if hours > MaxSummaryHours {
		hours = MaxSummaryHours
	}
	summaries, err := a.samples.MetricSummaries(ctx, a.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("performance summary: %w", err)
	}
	return summaries, nil
}

// GetAvailabilityMetrics returns per-service uptime over the last day.
func (a *Aggregator) GetAvailabilityMetrics(ctx context.Context) ([]*models.ServiceAvailability, error) {
	services, err := a.samples.AvailabilitySince(ctx, a.now().Add(-availabilityWindowHours*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("availability metrics: %w", err)
	}
	return services, nil
}

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	MetricsDeleted      int64 `json:"metrics_deleted"`
	AvailabilityDeleted int64 `json:"availability_deleted"`
}

// CleanupOldData removes samples older than retentionDays.
func (a *Aggregator) CleanupOldData(ctx context.Context, retentionDays int) (CleanupResult, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := a.now().AddDate(0, 0, -retentionDays)
	metricsDeleted, availabilityDeleted, err := a.samples.DeleteBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup samples: %w", err)
	}
	return CleanupResult{
		MetricsDeleted:      metricsDeleted,
		AvailabilityDeleted: availabilityDeleted,
	}, nil
}
