// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// DB returns the underlying connection for health checks.
	DB() *sql.DB

	// Repository accessors
	Alerts() AlertRepository
	Actions() ActionRepository
	Samples() SampleRepository
	NotificationLog() NotificationLogRepository
	Locks() LockRepository
}

// AlertRepository defines operations for alert persistence.
//
// The state-transition methods (Acknowledge, Resolve, Escalate) are
// compare-and-set updates: they return false without error when the
// alert is missing or no longer in a state the transition applies to.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	// ListUnresolved returns open and acknowledged alerts, newest first.
	ListUnresolved(ctx context.Context, limit int) ([]*models.Alert, error)
	// ListOpen returns alerts still eligible for escalation, oldest first.
	ListOpen(ctx context.Context) ([]*models.Alert, error)
	CountOpen(ctx context.Context) (int64, error)
	Acknowledge(ctx context.Context, id, user string, at time.Time) (bool, error)
	Resolve(ctx context.Context, id, user string, at time.Time) (bool, error)
	// Escalate advances escalation_level from fromLevel to fromLevel+1,
	// gated on status still being open and the level unchanged.
	Escalate(ctx context.Context, id string, fromLevel int, at time.Time) (bool, error)
	// LatestBySource returns the newest alert from source created at or
	// after since, or nil if none exists.
	LatestBySource(ctx context.Context, source string, since time.Time) (*models.Alert, error)
	Stats(ctx context.Context, since time.Time) (*models.AlertStats, error)
	// DeleteResolvedBefore removes resolved alerts older than cutoff and
	// returns how many alert and action rows were deleted. Open and
	// acknowledged alerts are never touched.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (alerts, actions int64, err error)
}

// ActionRepository defines operations for the alert audit trail.
type ActionRepository interface {
	Append(ctx context.Context, action *models.AlertAction) error
	ListByAlert(ctx context.Context, alertID string) ([]*models.AlertAction, error)
}

// SampleRepository defines operations for historical metric and
// availability samples. Reads always take a caller-supplied window;
// there is no unbounded scan.
type SampleRepository interface {
	InsertMetric(ctx context.Context, sample *models.MetricSample) error
	InsertAvailability(ctx context.Context, sample *models.AvailabilitySample) error
	EventCount(ctx context.Context, metric string, from, to time.Time) (int64, error)
	MetricSummaries(ctx context.Context, since time.Time) ([]*models.MetricSummary, error)
	AvailabilitySince(ctx context.Context, since time.Time) ([]*models.ServiceAvailability, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (metrics, availability int64, err error)
}

// NotificationLogRepository backs the durable sliding-window rate
// limiter. Send records survive process restarts so short-lived cron
// invocations share one window.
type NotificationLogRepository interface {
	// AllowSend atomically counts sends for key since windowStart and,
	// if the count is below max, records a new send at the given time.
	// Returns false when the window is already full.
	AllowSend(ctx context.Context, key string, windowStart time.Time, max int, at time.Time) (bool, error)
	CountSince(ctx context.Context, key string, since time.Time) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LockRepository implements heartbeat-based job locks for cron mutual
// exclusion. A lock whose heartbeat is older than staleAfter is
// considered abandoned and may be taken over.
type LockRepository interface {
	Acquire(ctx context.Context, name, owner string, staleAfter time.Duration, now time.Time) (bool, error)
	Touch(ctx context.Context, name, owner string, now time.Time) (bool, error)
	Release(ctx context.Context, name, owner string) error
}
