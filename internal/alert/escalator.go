package alert

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/good-yellow-bee/alertwatch/internal/metrics"
	"github.com/good-yellow-bee/alertwatch/internal/models"
	"github.com/good-yellow-bee/alertwatch/internal/notify"
)

// SystemSource tags alerts the engine raises about itself.
const SystemSource = "system"

// overloadTitle is fixed so repeated overload alerts share a rate-limit
// bucket as well as the minimum-interval guard.
const overloadTitle = "Alert volume overload"

// ProcessEscalations runs one scheduler pass: every open alert whose
// dwell at its current level has elapsed is advanced one level and
// re-notified with the policy's priority and channels for the new
// level. Alerts at their terminal level stay open untouched; resolving
// them requires a human. Returns the number of alerts escalated.
func (m *Manager) ProcessEscalations(ctx context.Context) (int, error) {
	open, err := m.store.Alerts().ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open alerts: %w", err)
	}

	policy := m.Policy()
	now := m.now()
	escalated := 0

	for _, a := range open {
		steps := policy.Steps(a.Severity)
		if a.EscalationLevel >= len(steps) {
			// Fully escalated: terminal, not an error.
			continue
		}
		step := steps[a.EscalationLevel]
		if now.Sub(a.EscalationReference()) < step.Dwell {
			continue
		}

		// CAS: a concurrent acknowledge (or another scheduler) wins and
		// this becomes a no-op.
		ok, err := m.store.Alerts().Escalate(ctx, a.ID, a.EscalationLevel, now)
		if err != nil {
			return escalated, fmt.Errorf("escalate alert %s: %w", a.ID, err)
		}
		if !ok {
			continue
		}

		newLevel := a.EscalationLevel + 1
		escalated++
		m.appendAction(ctx, a.ID, models.ActionEscalated, SystemSource,
			fmt.Sprintf("escalated to level %d", newLevel))
		metrics.AlertsEscalatedTotal.WithLabelValues(strconv.Itoa(newLevel)).Inc()
		log.Printf("alert escalated: id=%s level=%d severity=%d title=%q",
			a.ID, newLevel, a.Severity, a.Title)

		m.dispatcher.Send(ctx, &notify.Notification{
			Title:    fmt.Sprintf("[Escalation %d] %s", newLevel, a.Title),
			Message:  a.Message,
			Priority: step.Priority,
			Channels: step.Channels,
			// Escalation re-notifies share the original title bucket.
			DedupeKey: notify.Fingerprint(a.Title),
		})
	}

	if err := m.checkOverload(ctx); err != nil {
		// The guard failing must not undo a successful pass.
		log.Printf("overload check failed: %v", err)
	}

	count, err := m.store.Alerts().CountOpen(ctx)
	if err == nil {
		metrics.AlertsOpen.Set(float64(count))
	}

	return escalated, nil
}

// checkOverload raises a single system meta-alert when the open-alert
// count exceeds the configured threshold. Recursion is prevented two
// ways: the meta-alert carries the system source tag, and a new one is
// only created when none was raised within the configured interval.
func (m *Manager) checkOverload(ctx context.Context) error {
	count, err := m.store.Alerts().CountOpen(ctx)
	if err != nil {
		return fmt.Errorf("count open alerts: %w", err)
	}
	if count <= int64(m.config.OverloadThreshold) {
		return nil
	}

	since := m.now().Add(-m.config.OverloadInterval)
	recent, err := m.store.Alerts().LatestBySource(ctx, SystemSource, since)
	if err != nil {
		return fmt.Errorf("check recent system alerts: %w", err)
	}
	if recent != nil {
		return nil
	}

	_, err = m.CreateAlert(ctx, overloadTitle,
		fmt.Sprintf("%d alerts are currently open (threshold %d); the monitoring pipeline may be flooding or a shared dependency is down",
			count, m.config.OverloadThreshold),
		4, SystemSource, models.Metadata{
			"open_alerts": models.Int(count),
			"threshold":   models.Int(int64(m.config.OverloadThreshold)),
		})
	if err != nil {
		return fmt.Errorf("create overload alert: %w", err)
	}
	return nil
}
