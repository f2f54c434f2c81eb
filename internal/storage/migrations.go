package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Alerts table
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				severity INTEGER NOT NULL,
				source TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'open',
				escalation_level INTEGER NOT NULL DEFAULT 0,
				metadata_json TEXT NOT NULL DEFAULT '{}',
				created_at DATETIME NOT NULL,
				acknowledged_at DATETIME,
				acknowledged_by TEXT,
				resolved_at DATETIME,
				resolved_by TEXT,
				last_escalated_at DATETIME
			);

			-- Append-only audit trail per alert
			CREATE TABLE IF NOT EXISTS alert_actions (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				action TEXT NOT NULL,
				actor TEXT,
				notes TEXT,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE
			);

			-- Time-series numeric samples
			CREATE TABLE IF NOT EXISTS metric_samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				metric TEXT NOT NULL,
				value REAL NOT NULL,
				unit TEXT NOT NULL DEFAULT '',
				scope TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			);

			-- Service availability probes
			CREATE TABLE IF NOT EXISTS availability_samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				service TEXT NOT NULL,
				status TEXT NOT NULL,
				response_time_ms REAL,
				error TEXT,
				created_at DATETIME NOT NULL
			);

			-- Durable notification send log for rate limiting
			CREATE TABLE IF NOT EXISTS notification_sends (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				dedupe_key TEXT NOT NULL,
				sent_at DATETIME NOT NULL
			);

			-- Heartbeat locks for cron mutual exclusion
			CREATE TABLE IF NOT EXISTS job_locks (
				name TEXT PRIMARY KEY,
				owner TEXT NOT NULL,
				heartbeat_at DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
			CREATE INDEX IF NOT EXISTS idx_alerts_source ON alerts(source, created_at);
			CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
			CREATE INDEX IF NOT EXISTS idx_actions_alert ON alert_actions(alert_id);
			CREATE INDEX IF NOT EXISTS idx_metric_samples ON metric_samples(metric, created_at);
			CREATE INDEX IF NOT EXISTS idx_availability_samples ON availability_samples(service, created_at);
			CREATE INDEX IF NOT EXISTS idx_notification_sends ON notification_sends(dedupe_key, sent_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UTC(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
