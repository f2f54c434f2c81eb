package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, title, message, severity, source, status, escalation_level,
	metadata_json, created_at, acknowledged_at, acknowledged_by,
	resolved_at, resolved_by, last_escalated_at`

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	metadata := alert.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO alerts (id, title, message, severity, source, status,
			escalation_level, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		alert.ID, alert.Title, alert.Message, alert.Severity, alert.Source,
		alert.Status, alert.EscalationLevel, string(metadataJSON),
		alert.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

func (r *sqliteAlertRepo) ListUnresolved(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts WHERE status != ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusResolved, limit)
	if err != nil {
		return nil, fmt.Errorf("query unresolved alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *sqliteAlertRepo) ListOpen(ctx context.Context) ([]*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts WHERE status = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("query open alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *sqliteAlertRepo) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE status = ?", models.StatusOpen,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open alerts: %w", err)
	}
	return count, nil
}

func (r *sqliteAlertRepo) Acknowledge(ctx context.Context, id, user string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET status = ?, acknowledged_at = ?, acknowledged_by = ?
		WHERE id = ? AND status = ?
	`, models.StatusAcknowledged, at.UTC(), nullString(user), id, models.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *sqliteAlertRepo) Resolve(ctx context.Context, id, user string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET status = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ? AND status IN (?, ?)
	`, models.StatusResolved, at.UTC(), nullString(user), id,
		models.StatusOpen, models.StatusAcknowledged)
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *sqliteAlertRepo) Escalate(ctx context.Context, id string, fromLevel int, at time.Time) (bool, error) {
	// Compare-and-set: a concurrent acknowledge or a previous scheduler
	// pass makes this a no-op rather than a lost update.
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET escalation_level = escalation_level + 1, last_escalated_at = ?
		WHERE id = ? AND status = ? AND escalation_level = ?
	`, at.UTC(), id, models.StatusOpen, fromLevel)
	if err != nil {
		return false, fmt.Errorf("escalate alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *sqliteAlertRepo) LatestBySource(ctx context.Context, source string, since time.Time) (*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts WHERE source = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, source, since.UTC()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest alert by source: %w", err)
	}
	return alert, nil
}

func (r *sqliteAlertRepo) Stats(ctx context.Context, since time.Time) (*models.AlertStats, error) {
	stats := &models.AlertStats{
		BySeverity: make(map[int]int64),
		ByStatus:   make(map[string]int64),
		BySource:   make(map[string]int64),
	}
	cutoff := since.UTC()

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE created_at >= ?", cutoff,
	).Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM alerts
		WHERE created_at >= ? GROUP BY severity
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("group by severity: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity int
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		stats.BySeverity[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM alerts
		WHERE created_at >= ? GROUP BY status
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("group by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT source, COUNT(*) FROM alerts
		WHERE created_at >= ? GROUP BY source
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("group by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	durations, err := r.resolutionDurations(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	stats.Resolution = resolutionPercentiles(durations)

	return stats, nil
}

func (r *sqliteAlertRepo) resolutionDurations(ctx context.Context, since time.Time) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT (julianday(resolved_at) - julianday(created_at)) * 86400.0
		FROM alerts
		WHERE status = ? AND created_at >= ? AND resolved_at IS NOT NULL
	`, models.StatusResolved, since)
	if err != nil {
		return nil, fmt.Errorf("query resolution durations: %w", err)
	}
	defer rows.Close()

	var durations []float64
	for rows.Next() {
		var seconds float64
		if err := rows.Scan(&seconds); err != nil {
			return nil, fmt.Errorf("scan resolution duration: %w", err)
		}
		durations = append(durations, seconds)
	}
	return durations, rows.Err()
}

// resolutionPercentiles computes p50/p90/p99 using nearest-rank.
func resolutionPercentiles(seconds []float64) models.ResolutionPercentiles {
	if len(seconds) == 0 {
		return models.ResolutionPercentiles{}
	}
	sort.Float64s(seconds)
	rank := func(p float64) float64 {
		idx := int(p*float64(len(seconds))+0.5) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(seconds) {
			idx = len(seconds) - 1
		}
		return seconds[idx]
	}
	return models.ResolutionPercentiles{
		P50: rank(0.50),
		P90: rank(0.90),
		P99: rank(0.99),
	}
}

func (r *sqliteAlertRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin cleanup transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM alert_actions WHERE alert_id IN (
			SELECT id FROM alerts WHERE status = ? AND created_at < ?
		)
	`, models.StatusResolved, cutoff.UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("delete old actions: %w", err)
	}
	actions, _ := result.RowsAffected()

	result, err = tx.ExecContext(ctx,
		"DELETE FROM alerts WHERE status = ? AND created_at < ?",
		models.StatusResolved, cutoff.UTC(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("delete old alerts: %w", err)
	}
	alerts, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return alerts, actions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var source, ackBy, resolvedBy sql.NullString
	var metadataJSON string
	var ackAt, resolvedAt, escalatedAt sql.NullTime

	err := row.Scan(
		&alert.ID, &alert.Title, &alert.Message, &alert.Severity, &source,
		&alert.Status, &alert.EscalationLevel, &metadataJSON,
		&alert.CreatedAt, &ackAt, &ackBy, &resolvedAt, &resolvedBy, &escalatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.Source = source.String
	alert.AcknowledgedBy = ackBy.String
	alert.ResolvedBy = resolvedBy.String
	if ackAt.Valid {
		t := ackAt.Time
		alert.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}
	if escalatedAt.Valid {
		t := escalatedAt.Time
		alert.LastEscalatedAt = &t
	}

	if err := json.Unmarshal([]byte(metadataJSON), &alert.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return alert, nil
}

func scanAlerts(rows *sql.Rows) ([]*models.Alert, error) {
	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
