package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	alerts    *sqliteAlertRepo
	actions   *sqliteActionRepo
	samples   *sqliteSampleRepo
	notifyLog *sqliteNotificationLogRepo
	locks     *sqliteLockRepo
}

// NewSQLiteStorage creates a new SQLite storage at path.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	// _time_format=sqlite stores timestamps in a layout SQLite's own
	// date functions understand (julianday in the stats queries).
	dsn := fmt.Sprintf("file:%s?_time_format=sqlite", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.alerts = &sqliteAlertRepo{db: db}
	s.actions = &sqliteActionRepo{db: db}
	s.samples = &sqliteSampleRepo{db: db}
	s.notifyLog = &sqliteNotificationLogRepo{db: db}
	s.locks = &sqliteLockRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// Alerts returns the alert repository.
func (s *SQLiteStorage) Alerts() AlertRepository {
	return s.alerts
}

// Actions returns the alert-action repository.
func (s *SQLiteStorage) Actions() ActionRepository {
	return s.actions
}

// Samples returns the historical sample repository.
func (s *SQLiteStorage) Samples() SampleRepository {
	return s.samples
}

// NotificationLog returns the notification send-log repository.
func (s *SQLiteStorage) NotificationLog() NotificationLogRepository {
	return s.notifyLog
}

// Locks returns the job-lock repository.
func (s *SQLiteStorage) Locks() LockRepository {
	return s.locks
}

// Helper functions shared by the repositories.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// storedTimeLayouts are the textual forms timestamps take on disk with
// the sqlite time format, longest first.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseStoredTime parses a timestamp read back through an SQL
// expression, where the driver no longer applies column time affinity.
func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
