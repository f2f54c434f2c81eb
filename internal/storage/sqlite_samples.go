package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

type sqliteSampleRepo struct {
	db *sql.DB
}

func (r *sqliteSampleRepo) InsertMetric(ctx context.Context, sample *models.MetricSample) error {
	query := `
		INSERT INTO metric_samples (metric, value, unit, scope, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		sample.Metric, sample.Value, sample.Unit, sample.Scope,
		sample.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert metric sample: %w", err)
	}
	return nil
}

func (r *sqliteSampleRepo) InsertAvailability(ctx context.Context, sample *models.AvailabilitySample) error {
	query := `
		INSERT INTO availability_samples (service, status, response_time_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		sample.Service, sample.Status, nullFloat(sample.ResponseTimeMS),
		nullString(sample.Error), sample.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert availability sample: %w", err)
	}
	return nil
}

func (r *sqliteSampleRepo) EventCount(ctx context.Context, metric string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM metric_samples
		WHERE metric = ? AND created_at >= ? AND created_at < ?
	`, metric, from.UTC(), to.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count metric samples: %w", err)
	}
	return count, nil
}

func (r *sqliteSampleRepo) MetricSummaries(ctx context.Context, since time.Time) ([]*models.MetricSummary, error) {
	query := `
		SELECT metric, MAX(unit), COUNT(*), AVG(value), MIN(value), MAX(value)
		FROM metric_samples
		WHERE created_at >= ?
		GROUP BY metric
		ORDER BY metric
	`
	rows, err := r.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query metric summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.MetricSummary
	for rows.Next() {
		s := &models.MetricSummary{}
		if err := rows.Scan(&s.Metric, &s.Unit, &s.Count, &s.Avg, &s.Min, &s.Max); err != nil {
			return nil, fmt.Errorf("scan metric summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *sqliteSampleRepo) AvailabilitySince(ctx context.Context, since time.Time) ([]*models.ServiceAvailability, error) {
	query := `
		SELECT service,
			COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			AVG(response_time_ms),
			MAX(created_at)
		FROM availability_samples
		WHERE created_at >= ?
		GROUP BY service
		ORDER BY service
	`
	rows, err := r.db.QueryContext(ctx, query, models.ServiceUp, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	var services []*models.ServiceAvailability
	for rows.Next() {
		s := &models.ServiceAvailability{}
		var avgResponse sql.NullFloat64
		var lastChecked string
		err := rows.Scan(&s.Service, &s.Samples, &s.UpSamples, &avgResponse, &lastChecked)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		// MAX() strips the column's time affinity, so the driver hands
		// back the raw text.
		s.LastChecked, err = parseStoredTime(lastChecked)
		if err != nil {
			return nil, fmt.Errorf("parse last checked: %w", err)
		}
		if avgResponse.Valid {
			v := avgResponse.Float64
			s.AvgResponseMS = &v
		}
		if s.Samples > 0 {
			s.UptimePercent = 100.0 * float64(s.UpSamples) / float64(s.Samples)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Latest status needs a second pass; the grouped query only sees
	// aggregates.
	for _, s := range services {
		var status string
		err := r.db.QueryRowContext(ctx, `
			SELECT status FROM availability_samples
			WHERE service = ? AND created_at >= ?
			ORDER BY created_at DESC LIMIT 1
		`, s.Service, since.UTC()).Scan(&status)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("latest status for %s: %w", s.Service, err)
		}
		s.LastStatus = models.ServiceStatus(status)
	}

	return services, nil
}

func (r *sqliteSampleRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM metric_samples WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("delete old metric samples: %w", err)
	}
	metrics, _ := result.RowsAffected()

	result, err = r.db.ExecContext(ctx,
		"DELETE FROM availability_samples WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return metrics, 0, fmt.Errorf("delete old availability samples: %w", err)
	}
	availability, _ := result.RowsAffected()

	return metrics, availability, nil
}
