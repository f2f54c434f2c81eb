// Package alert implements the alert lifecycle and escalation engine.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/alertwatch/internal/metrics"
	"github.com/good-yellow-bee/alertwatch/internal/models"
	"github.com/good-yellow-bee/alertwatch/internal/notify"
	"github.com/good-yellow-bee/alertwatch/internal/storage"
)

// ErrValidation marks rejected input: missing fields, out-of-range
// values. No state changes when it is returned.
var ErrValidation = errors.New("validation failed")

// Limits and defaults for the lifecycle operations.
const (
	// MaxListLimit is the hard ceiling for GetOpenAlerts regardless of
	// the requested limit.
	MaxListLimit     = 100
	DefaultListLimit = 50

	// DefaultRetentionDays is the alert retention horizon.
	DefaultRetentionDays = 30

	DefaultStatsDays = 7
	MaxStatsDays     = 90
)

// Config tunes the lifecycle manager.
type Config struct {
	// OverloadThreshold is the open-alert count above which a system
	// meta-alert is raised. Default: 20.
	OverloadThreshold int `yaml:"overload_threshold"`
	// OverloadInterval is the minimum spacing between overload
	// meta-alerts. Default: 1 hour.
	OverloadInterval time.Duration `yaml:"overload_interval"`
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.OverloadThreshold == 0 {
		c.OverloadThreshold = 20
	}
	if c.OverloadInterval == 0 {
		c.OverloadInterval = time.Hour
	}
}

// Manager owns Alert entities: creation, state transitions, statistics
// and retention. All notifications flow through the dispatcher it holds.
type Manager struct {
	store      storage.Storage
	dispatcher *notify.Dispatcher
	config     Config
	now        func() time.Time

	mu     sync.RWMutex
	policy *Policy
}

// NewManager creates a lifecycle manager.
func NewManager(store storage.Storage, dispatcher *notify.Dispatcher, policy *Policy, config Config) *Manager {
	config.SetDefaults()
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Manager{
		store:      store,
		dispatcher: dispatcher,
		config:     config,
		policy:     policy,
		now:        time.Now,
	}
}

// SetPolicy swaps the escalation policy, e.g. after a config reload.
func (m *Manager) SetPolicy(policy *Policy) {
	if policy == nil {
		return
	}
	m.mu.Lock()
	m.policy = policy
	m.mu.Unlock()
}

// Policy returns the current escalation policy.
func (m *Manager) Policy() *Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// CreateAlert validates the input, persists a new open alert and sends
// the initial notification at the severity's base priority. The alert
// id is returned. A notification failure is logged but never fails the
// creation.
func (m *Manager) CreateAlert(ctx context.Context, title, message string, severity int, source string, metadata models.Metadata) (string, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	if message == "" {
		return "", fmt.Errorf("%w: message is required", ErrValidation)
	}
	severity = models.ClampSeverity(severity)

	now := m.now()
	alert := &models.Alert{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Severity:  severity,
		Source:    source,
		Status:    models.StatusOpen,
		Metadata:  metadata,
		CreatedAt: now,
	}

	if err := m.store.Alerts().Create(ctx, alert); err != nil {
		return "", fmt.Errorf("create alert: %w", err)
	}
	m.appendAction(ctx, alert.ID, models.ActionCreated, source, "")
	metrics.AlertsCreatedTotal.WithLabelValues(strconv.Itoa(severity), source).Inc()
	log.Printf("alert created: %q severity=%d source=%s id=%s", title, severity, source, alert.ID)

	m.dispatcher.Send(ctx, &notify.Notification{
		Title:    title,
		Message:  message,
		Priority: m.Policy().BasePriority(severity),
	})

	return alert.ID, nil
}

// GetOpenAlerts returns unresolved alerts (open and acknowledged),
// newest first. The limit is capped at MaxListLimit.
func (m *Manager) GetOpenAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	alerts, err := m.store.Alerts().ListUnresolved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	return alerts, nil
}

// GetAlertDetails returns an alert with its audit trail, or nil if it
// does not exist.
func (m *Manager) GetAlertDetails(ctx context.Context, id string) (*models.Alert, []*models.AlertAction, error) {
	alert, err := m.store.Alerts().GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, nil, nil
	}
	actions, err := m.store.Actions().ListByAlert(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get alert actions: %w", err)
	}
	return alert, actions, nil
}

// AcknowledgeAlert transitions an open alert to acknowledged, freezing
// its escalation level. Returns false, without error, when the alert
// is missing or not open: repeats are no-ops, not faults.
func (m *Manager) AcknowledgeAlert(ctx context.Context, id, user, notes string) (bool, error) {
	ok, err := m.store.Alerts().Acknowledge(ctx, id, user, m.now())
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	if !ok {
		return false, nil
	}
	m.appendAction(ctx, id, models.ActionAcknowledged, user, notes)
	metrics.AlertsAcknowledgedTotal.Inc()
	log.Printf("alert acknowledged: id=%s by=%s", id, user)
	return true, nil
}

// ResolveAlert transitions an open or acknowledged alert to resolved.
// Same no-op semantics as AcknowledgeAlert.
func (m *Manager) ResolveAlert(ctx context.Context, id, user, notes string) (bool, error) {
	ok, err := m.store.Alerts().Resolve(ctx, id, user, m.now())
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	if !ok {
		return false, nil
	}
	m.appendAction(ctx, id, models.ActionResolved, user, notes)
	metrics.AlertsResolvedTotal.Inc()
	log.Printf("alert resolved: id=%s by=%s", id, user)
	return true, nil
}

// GetAlertStats summarizes alert activity over the last days. The
// period is clamped to MaxStatsDays.
func (m *Manager) GetAlertStats(ctx context.Context, days int) (*models.AlertStats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}
	since := m.now().AddDate(0, 0, -days)
	stats, err := m.store.Alerts().Stats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("alert stats: %w", err)
	}
	stats.PeriodDays = days
	return stats, nil
}

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	AlertsDeleted  int64 `json:"alerts_deleted"`
	ActionsDeleted int64 `json:"actions_deleted"`
}

// CleanupOldAlerts deletes resolved alerts (and their audit rows) older
// than retentionDays. Open and acknowledged alerts are never deleted
// regardless of age.
func (m *Manager) CleanupOldAlerts(ctx context.Context, retentionDays int) (CleanupResult, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := m.now().AddDate(0, 0, -retentionDays)
	alerts, actions, err := m.store.Alerts().DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup alerts: %w", err)
	}
	if alerts > 0 {
		log.Printf("alert cleanup: removed %d alerts, %d actions older than %dd", alerts, actions, retentionDays)
	}
	return CleanupResult{AlertsDeleted: alerts, ActionsDeleted: actions}, nil
}

func (m *Manager) appendAction(ctx context.Context, alertID string, action models.ActionType, actor, notes string) {
	err := m.store.Actions().Append(ctx, &models.AlertAction{
		ID:        uuid.New().String(),
		AlertID:   alertID,
		Action:    action,
		Actor:     actor,
		Notes:     notes,
		CreatedAt: m.now(),
	})
	if err != nil {
		// The audit trail is best effort; the transition itself already
		// committed.
		log.Printf("append alert action %s for %s: %v", action, alertID, err)
	}
}
