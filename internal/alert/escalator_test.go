package alert

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

func TestProcessEscalations_DwellGate(t *testing.T) {
	manager, _, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	manager.now = func() time.Time { return base }

	id, err := manager.CreateAlert(ctx, "CPU pegged", "load 40 on web1", 3, "monitoring", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Dwell not yet elapsed: nothing escalates.
	manager.now = func() time.Time { return base.Add(DefaultDwell - time.Minute) }
	count, err := manager.ProcessEscalations(ctx)
	if err != nil {
		t.Fatalf("escalations: %v", err)
	}
	if count != 0 {
		t.Errorf("escalated %d, want 0 before dwell", count)
	}

	// Past the dwell: one level.
	manager.now = func() time.Time { return base.Add(DefaultDwell + time.Minute) }
	count, err = manager.ProcessEscalations(ctx)
	if err != nil {
		t.Fatalf("escalations: %v", err)
	}
	if count != 1 {
		t.Fatalf("escalated %d, want 1", count)
	}

	got, _, err := manager.GetAlertDetails(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.EscalationLevel != 1 {
		t.Errorf("level = %d, want 1", got.EscalationLevel)
	}
	if got.LastEscalatedAt == nil {
		t.Fatal("last_escalated_at should be set")
	}

	// Immediately re-running does nothing: dwell restarts from the
	// escalation timestamp.
	count, err = manager.ProcessEscalations(ctx)
	if err != nil {
		t.Fatalf("escalations: %v", err)
	}
	if count != 0 {
		t.Errorf("escalated %d, want 0 right after an escalation", count)
	}
}

func TestProcessEscalations_TerminalLevel(t *testing.T) {
	manager, _, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	manager.now = func() time.Time { return base }

	// Severity 1 has a single escalation step in the default policy.
	id, err := manager.CreateAlert(ctx, "Minor noise", "informational", 1, "test", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	manager.now = func() time.Time { return base.Add(DefaultDwell + time.Minute) }
	if count, err := manager.ProcessEscalations(ctx); err != nil || count != 1 {
		t.Fatalf("first pass: count=%d err=%v", count, err)
	}

	// Far in the future: the alert sits at its terminal level, open,
	// and is never escalated again.
	manager.now = func() time.Time { return base.Add(48 * time.Hour) }
	count, err := manager.ProcessEscalations(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if count != 0 {
		t.Errorf("escalated %d, want 0 at terminal level", count)
	}

	got, _, err := manager.GetAlertDetails(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusOpen {
		t.Errorf("status = %q, terminal alerts stay open until a human resolves them", got.Status)
	}
	if got.EscalationLevel != 1 {
		t.Errorf("level = %d, want 1", got.EscalationLevel)
	}
}

func TestProcessEscalations_AcknowledgeFreezes(t *testing.T) {
	manager, _, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	manager.now = func() time.Time { return base }

	id, err := manager.CreateAlert(ctx, "Queue backlog", "10k jobs pending", 4, "monitoring", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := manager.AcknowledgeAlert(ctx, id, "ops", ""); err != nil || !ok {
		t.Fatalf("acknowledge: ok=%v err=%v", ok, err)
	}

	manager.now = func() time.Time { return base.Add(24 * time.Hour) }
	count, err := manager.ProcessEscalations(ctx)
	if err != nil {
		t.Fatalf("escalations: %v", err)
	}
	if count != 0 {
		t.Errorf("escalated %d, want 0: acknowledged alerts are frozen", count)
	}

	got, _, err := manager.GetAlertDetails(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.EscalationLevel != 0 {
		t.Errorf("level = %d, want 0", got.EscalationLevel)
	}
}

func TestProcessEscalations_OverloadMetaAlert(t *testing.T) {
	manager, store, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	manager.now = func() time.Time { return base }

	// 25 open alerts, past the default threshold of 20.
	for i := 0; i < 25; i++ {
		if _, err := manager.CreateAlert(ctx, "Flood alert", "one of many", 2, "monitoring", nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if _, err := manager.ProcessEscalations(ctx); err != nil {
		t.Fatalf("escalations: %v", err)
	}

	meta, err := store.Alerts().LatestBySource(ctx, SystemSource, base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("latest system alert: %v", err)
	}
	if meta == nil {
		t.Fatal("expected an overload meta-alert")
	}
	if meta.Title != "Alert volume overload" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Severity != 4 {
		t.Errorf("severity = %d, want 4", meta.Severity)
	}

	// A second pass within the interval must not raise another one.
	if _, err := manager.ProcessEscalations(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	var systemCount int64
	stats, err := store.Alerts().Stats(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	systemCount = stats.BySource[SystemSource]
	if systemCount != 1 {
		t.Errorf("system alerts = %d, want exactly 1 within the interval", systemCount)
	}

	// After the interval passes it may fire again.
	manager.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := manager.ProcessEscalations(ctx); err != nil {
		t.Fatalf("third pass: %v", err)
	}
	stats, err = store.Alerts().Stats(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.BySource[SystemSource] != 2 {
		t.Errorf("system alerts = %d, want 2 after the interval elapsed", stats.BySource[SystemSource])
	}
}
