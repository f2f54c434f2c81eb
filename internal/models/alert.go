// Package models defines domain models for Alertwatch.
package models

import "time"

// Status represents the lifecycle state of an alert.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Severity bounds. 5 is the most urgent.
const (
	SeverityMin = 1
	SeverityMax = 5
)

// ClampSeverity forces a severity into the valid [1,5] range.
func ClampSeverity(severity int) int {
	if severity < SeverityMin {
		return SeverityMin
	}
	if severity > SeverityMax {
		return SeverityMax
	}
	return severity
}

// Alert is a stateful record of a detected condition requiring attention.
type Alert struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Severity        int        `json:"severity"`
	Source          string     `json:"source"`
	Status          Status     `json:"status"`
	EscalationLevel int        `json:"escalation_level"`
	Metadata        Metadata   `json:"metadata,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	LastEscalatedAt *time.Time `json:"last_escalated_at,omitempty"`
}

// Unresolved reports whether the alert still needs attention.
func (a *Alert) Unresolved() bool {
	return a.Status != StatusResolved
}

// EscalationReference returns the timestamp dwell is measured from:
// the last escalation if any, otherwise creation.
func (a *Alert) EscalationReference() time.Time {
	if a.LastEscalatedAt != nil {
		return *a.LastEscalatedAt
	}
	return a.CreatedAt
}

// ActionType identifies an entry in an alert's audit trail.
type ActionType string

const (
	ActionCreated      ActionType = "created"
	ActionAcknowledged ActionType = "acknowledged"
	ActionResolved     ActionType = "resolved"
	ActionEscalated    ActionType = "escalated"
	ActionNote         ActionType = "note"
)

// AlertAction is an append-only audit record for an alert.
type AlertAction struct {
	ID        string     `json:"id"`
	AlertID   string     `json:"alert_id"`
	Action    ActionType `json:"action"`
	Actor     string     `json:"actor,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AlertStats summarizes alert activity over a period.
type AlertStats struct {
	PeriodDays int                   `json:"period_days"`
	Total      int64                 `json:"total"`
	BySeverity map[int]int64         `json:"by_severity"`
	ByStatus   map[string]int64      `json:"by_status"`
	BySource   map[string]int64      `json:"by_source"`
	Resolution ResolutionPercentiles `json:"resolution_time_seconds"`
}

// ResolutionPercentiles holds resolution-time percentiles in seconds.
type ResolutionPercentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}
