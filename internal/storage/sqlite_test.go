package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/alertwatch/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "alertwatch-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")

	store := NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func newTestAlert(severity int) *models.Alert {
	return &models.Alert{
		ID:        uuid.New().String(),
		Title:     "Disk usage high",
		Message:   "disk usage at 91% on /var",
		Severity:  severity,
		Source:    "monitoring",
		Status:    models.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tables := []string{"alerts", "alert_actions", "metric_samples", "availability_samples", "notification_sends", "job_locks", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func TestAlertRepository_CreateGet(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alert := newTestAlert(4)
	alert.Metadata = models.Metadata{
		"disk":    models.String("/var"),
		"percent": models.Float(91.2),
	}

	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got == nil {
		t.Fatal("alert not found")
	}
	if got.Title != alert.Title {
		t.Errorf("title = %q, want %q", got.Title, alert.Title)
	}
	if got.Severity != 4 {
		t.Errorf("severity = %d, want 4", got.Severity)
	}
	if got.Status != models.StatusOpen {
		t.Errorf("status = %q, want open", got.Status)
	}
	if got.EscalationLevel != 0 {
		t.Errorf("escalation level = %d, want 0", got.EscalationLevel)
	}
	if got.Metadata["disk"].Text() != "/var" {
		t.Errorf("metadata disk = %q, want /var", got.Metadata["disk"].Text())
	}
}

func TestAlertRepository_GetByIDMissing(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := store.Alerts().GetByID(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("get missing alert: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing alert, got %+v", got)
	}
}

func TestAlertRepository_Acknowledge(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alert := newTestAlert(3)
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	now := time.Now().UTC()
	ok, err := store.Alerts().Acknowledge(ctx, alert.ID, "ops", now)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !ok {
		t.Fatal("acknowledge should succeed on open alert")
	}

	// Second acknowledge is a no-op, not an error.
	ok, err = store.Alerts().Acknowledge(ctx, alert.ID, "ops2", now)
	if err != nil {
		t.Fatalf("second acknowledge: %v", err)
	}
	if ok {
		t.Error("second acknowledge should report false")
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got.Status != models.StatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", got.Status)
	}
	if got.AcknowledgedBy != "ops" {
		t.Errorf("acknowledged_by = %q, want ops (first writer wins)", got.AcknowledgedBy)
	}
	if got.AcknowledgedAt == nil {
		t.Error("acknowledged_at should be set")
	}
}

func TestAlertRepository_ResolveFromBothStates(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	// Resolve straight from open.
	open := newTestAlert(2)
	if err := store.Alerts().Create(ctx, open); err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err := store.Alerts().Resolve(ctx, open.ID, "ops", now)
	if err != nil || !ok {
		t.Fatalf("resolve open alert: ok=%v err=%v", ok, err)
	}

	// Resolve from acknowledged.
	acked := newTestAlert(2)
	if err := store.Alerts().Create(ctx, acked); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := store.Alerts().Acknowledge(ctx, acked.ID, "ops", now); err != nil || !ok {
		t.Fatalf("acknowledge: ok=%v err=%v", ok, err)
	}
	ok, err = store.Alerts().Resolve(ctx, acked.ID, "ops", now)
	if err != nil || !ok {
		t.Fatalf("resolve acknowledged alert: ok=%v err=%v", ok, err)
	}

	// Resolving again is a no-op.
	ok, err = store.Alerts().Resolve(ctx, acked.ID, "ops", now)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if ok {
		t.Error("second resolve should report false")
	}
}

func TestAlertRepository_EscalateCAS(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	alert := newTestAlert(5)
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := store.Alerts().Escalate(ctx, alert.ID, 0, now)
	if err != nil || !ok {
		t.Fatalf("escalate from 0: ok=%v err=%v", ok, err)
	}

	// Same fromLevel again loses the compare-and-set.
	ok, err = store.Alerts().Escalate(ctx, alert.ID, 0, now)
	if err != nil {
		t.Fatalf("stale escalate: %v", err)
	}
	if ok {
		t.Error("escalate with stale fromLevel should report false")
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EscalationLevel != 1 {
		t.Errorf("escalation level = %d, want 1", got.EscalationLevel)
	}
	if got.LastEscalatedAt == nil {
		t.Error("last_escalated_at should be set")
	}

	// An acknowledged alert is no longer escalatable.
	if ok, err := store.Alerts().Acknowledge(ctx, alert.ID, "ops", now); err != nil || !ok {
		t.Fatalf("acknowledge: ok=%v err=%v", ok, err)
	}
	ok, err = store.Alerts().Escalate(ctx, alert.ID, 1, now)
	if err != nil {
		t.Fatalf("escalate acknowledged: %v", err)
	}
	if ok {
		t.Error("escalate should report false for acknowledged alert")
	}
}

func TestAlertRepository_ListUnresolved(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		a := newTestAlert(3)
		a.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
		if i == 0 {
			if ok, err := store.Alerts().Resolve(ctx, a.ID, "ops", now); err != nil || !ok {
				t.Fatalf("resolve: ok=%v err=%v", ok, err)
			}
		}
	}

	list, err := store.Alerts().ListUnresolved(ctx, 10)
	if err != nil {
		t.Fatalf("list unresolved: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("got %d alerts, want 4", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Error("unresolved alerts should be ordered newest first")
		}
	}

	limited, err := store.Alerts().ListUnresolved(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d alerts, want 2", len(limited))
	}
}

func TestAlertRepository_LatestBySource(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	old := newTestAlert(4)
	old.Source = "system"
	old.CreatedAt = now.Add(-2 * time.Hour)
	if err := store.Alerts().Create(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Alerts().LatestBySource(ctx, "system", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("latest by source: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, alert is older than the window")
	}

	recent := newTestAlert(4)
	recent.Source = "system"
	recent.CreatedAt = now.Add(-10 * time.Minute)
	if err := store.Alerts().Create(ctx, recent); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err = store.Alerts().LatestBySource(ctx, "system", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("latest by source: %v", err)
	}
	if got == nil || got.ID != recent.ID {
		t.Errorf("expected recent system alert, got %+v", got)
	}
}

func TestAlertRepository_Stats(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		a := newTestAlert(3)
		a.CreatedAt = now.Add(-time.Duration(i+1) * time.Hour)
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
		if i == 0 {
			if ok, err := store.Alerts().Resolve(ctx, a.ID, "ops", a.CreatedAt.Add(30*time.Minute)); err != nil || !ok {
				t.Fatalf("resolve: ok=%v err=%v", ok, err)
			}
		}
	}
	sev5 := newTestAlert(5)
	sev5.Source = "api"
	if err := store.Alerts().Create(ctx, sev5); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := store.Alerts().Stats(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.BySeverity[3] != 3 {
		t.Errorf("by_severity[3] = %d, want 3", stats.BySeverity[3])
	}
	if stats.BySeverity[5] != 1 {
		t.Errorf("by_severity[5] = %d, want 1", stats.BySeverity[5])
	}
	if stats.ByStatus["open"] != 3 {
		t.Errorf("by_status[open] = %d, want 3", stats.ByStatus["open"])
	}
	if stats.ByStatus["resolved"] != 1 {
		t.Errorf("by_status[resolved] = %d, want 1", stats.ByStatus["resolved"])
	}
	if stats.BySource["monitoring"] != 3 {
		t.Errorf("by_source[monitoring] = %d, want 3", stats.BySource["monitoring"])
	}

	// One resolution of 30 minutes: every percentile reports it.
	want := 30 * time.Minute.Seconds()
	if diff := stats.Resolution.P50 - want; diff < -1 || diff > 1 {
		t.Errorf("p50 = %.1f, want about %.1f", stats.Resolution.P50, want)
	}
}

func TestAlertRepository_DeleteResolvedBefore(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	// Old resolved alert with an action: both rows go.
	oldResolved := newTestAlert(2)
	oldResolved.CreatedAt = now.Add(-60 * 24 * time.Hour)
	if err := store.Alerts().Create(ctx, oldResolved); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := store.Alerts().Resolve(ctx, oldResolved.ID, "ops", now.Add(-59*24*time.Hour)); err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	action := &models.AlertAction{
		ID:        uuid.New().String(),
		AlertID:   oldResolved.ID,
		Action:    models.ActionResolved,
		Actor:     "ops",
		CreatedAt: now.Add(-59 * 24 * time.Hour),
	}
	if err := store.Actions().Append(ctx, action); err != nil {
		t.Fatalf("append action: %v", err)
	}

	// Old but still open: retention never touches it.
	oldOpen := newTestAlert(4)
	oldOpen.CreatedAt = now.Add(-90 * 24 * time.Hour)
	if err := store.Alerts().Create(ctx, oldOpen); err != nil {
		t.Fatalf("create: %v", err)
	}

	alerts, actions, err := store.Alerts().DeleteResolvedBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("delete resolved: %v", err)
	}
	if alerts != 1 {
		t.Errorf("deleted %d alerts, want 1", alerts)
	}
	if actions != 1 {
		t.Errorf("deleted %d actions, want 1", actions)
	}

	got, err := store.Alerts().GetByID(ctx, oldOpen.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Error("open alert must survive retention regardless of age")
	}
}

func TestActionRepository_AppendList(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	alert := newTestAlert(3)
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	types := []models.ActionType{models.ActionCreated, models.ActionAcknowledged, models.ActionResolved}
	for i, typ := range types {
		action := &models.AlertAction{
			ID:        uuid.New().String(),
			AlertID:   alert.ID,
			Action:    typ,
			Actor:     "ops",
			Notes:     "step",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := store.Actions().Append(ctx, action); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	actions, err := store.Actions().ListByAlert(ctx, alert.ID)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}
	for i, typ := range types {
		if actions[i].Action != typ {
			t.Errorf("action[%d] = %q, want %q (chronological order)", i, actions[i].Action, typ)
		}
	}
}

func TestNotificationLogRepository_AllowSend(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()
	windowStart := now.Add(-5 * time.Minute)

	key := "deadbeefdeadbeef"
	for i := 0; i < 10; i++ {
		ok, err := store.NotificationLog().AllowSend(ctx, key, windowStart, 10, now)
		if err != nil {
			t.Fatalf("allow send %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("send %d should be allowed", i)
		}
	}

	ok, err := store.NotificationLog().AllowSend(ctx, key, windowStart, 10, now)
	if err != nil {
		t.Fatalf("allow send 11: %v", err)
	}
	if ok {
		t.Error("11th send in the window should be denied")
	}

	// A different key has its own window.
	ok, err = store.NotificationLog().AllowSend(ctx, "feedfacefeedface", windowStart, 10, now)
	if err != nil || !ok {
		t.Errorf("other key should be allowed: ok=%v err=%v", ok, err)
	}

	// Sends that predate the window do not count.
	count, err := store.NotificationLog().CountSince(ctx, key, windowStart)
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
	ok, err = store.NotificationLog().AllowSend(ctx, key, now.Add(time.Second), 10, now.Add(time.Minute))
	if err != nil || !ok {
		t.Errorf("send after window rollover should be allowed: ok=%v err=%v", ok, err)
	}
}

func TestLockRepository_AcquireContention(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()
	ttl := 10 * time.Minute

	ok, err := store.Locks().Acquire(ctx, "escalate", "owner-a", ttl, now)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = store.Locks().Acquire(ctx, "escalate", "owner-b", ttl, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("contended acquire: %v", err)
	}
	if ok {
		t.Error("second owner should not acquire a live lock")
	}

	// A different lock name is independent.
	ok, err = store.Locks().Acquire(ctx, "collect", "owner-b", ttl, now)
	if err != nil || !ok {
		t.Errorf("independent lock: ok=%v err=%v", ok, err)
	}

	if err := store.Locks().Release(ctx, "escalate", "owner-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = store.Locks().Acquire(ctx, "escalate", "owner-b", ttl, now.Add(2*time.Minute))
	if err != nil || !ok {
		t.Errorf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestLockRepository_StaleTakeover(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()
	ttl := 10 * time.Minute

	ok, err := store.Locks().Acquire(ctx, "escalate", "crashed", ttl, now)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	// Heartbeat has gone stale: the lock may be taken over.
	ok, err = store.Locks().Acquire(ctx, "escalate", "successor", ttl, now.Add(ttl+time.Second))
	if err != nil {
		t.Fatalf("stale acquire: %v", err)
	}
	if !ok {
		t.Error("stale lock should be taken over")
	}

	// The crashed owner can no longer refresh it.
	ok, err = store.Locks().Touch(ctx, "escalate", "crashed", now.Add(ttl+2*time.Second))
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if ok {
		t.Error("touch by the old owner should report false")
	}

	ok, err = store.Locks().Touch(ctx, "escalate", "successor", now.Add(ttl+2*time.Second))
	if err != nil || !ok {
		t.Errorf("touch by new owner: ok=%v err=%v", ok, err)
	}
}

func TestSampleRepository_MetricSummaries(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	values := []float64{100, 200, 300}
	for i, v := range values {
		sample := &models.MetricSample{
			Metric:    "response_time",
			Value:     v,
			Unit:      "ms",
			Scope:     "api",
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
		}
		if err := store.Samples().InsertMetric(ctx, sample); err != nil {
			t.Fatalf("insert metric: %v", err)
		}
	}
	// A sample outside the window is excluded.
	stale := &models.MetricSample{
		Metric:    "response_time",
		Value:     9999,
		Unit:      "ms",
		Timestamp: now.Add(-48 * time.Hour),
	}
	if err := store.Samples().InsertMetric(ctx, stale); err != nil {
		t.Fatalf("insert stale metric: %v", err)
	}

	summaries, err := store.Samples().MetricSummaries(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Metric != "response_time" || s.Unit != "ms" {
		t.Errorf("summary identity = %q/%q", s.Metric, s.Unit)
	}
	if s.Count != 3 {
		t.Errorf("count = %d, want 3", s.Count)
	}
	if s.Min != 100 || s.Max != 300 {
		t.Errorf("min/max = %.0f/%.0f, want 100/300", s.Min, s.Max)
	}
	if s.Avg < 199 || s.Avg > 201 {
		t.Errorf("avg = %.1f, want 200", s.Avg)
	}
}

func TestSampleRepository_Availability(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	rt := func(v float64) *float64 { return &v }
	samples := []*models.AvailabilitySample{
		{Service: "billing", Status: models.ServiceUp, ResponseTimeMS: rt(120), Timestamp: now.Add(-3 * time.Hour)},
		{Service: "billing", Status: models.ServiceUp, ResponseTimeMS: rt(180), Timestamp: now.Add(-2 * time.Hour)},
		{Service: "billing", Status: models.ServiceDown, Error: "connection refused", Timestamp: now.Add(-1 * time.Hour)},
		{Service: "dns", Status: models.ServiceUp, ResponseTimeMS: rt(20), Timestamp: now.Add(-30 * time.Minute)},
	}
	for _, s := range samples {
		if err := store.Samples().InsertAvailability(ctx, s); err != nil {
			t.Fatalf("insert availability: %v", err)
		}
	}

	services, err := store.Samples().AvailabilitySince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("availability since: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("got %d services, want 2", len(services))
	}

	byName := map[string]*models.ServiceAvailability{}
	for _, s := range services {
		byName[s.Service] = s
	}

	billing := byName["billing"]
	if billing == nil {
		t.Fatal("billing service missing")
	}
	if billing.Samples != 3 || billing.UpSamples != 2 {
		t.Errorf("billing samples = %d/%d, want 3/2", billing.Samples, billing.UpSamples)
	}
	if billing.UptimePercent < 66 || billing.UptimePercent > 67 {
		t.Errorf("billing uptime = %.2f, want about 66.67", billing.UptimePercent)
	}
	if billing.LastStatus != models.ServiceDown {
		t.Errorf("billing last status = %q, want down (most recent sample)", billing.LastStatus)
	}

	dns := byName["dns"]
	if dns == nil {
		t.Fatal("dns service missing")
	}
	if dns.UptimePercent != 100 {
		t.Errorf("dns uptime = %.2f, want 100", dns.UptimePercent)
	}
}

func TestSampleRepository_EventCountAndDelete(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour)

	for i := 0; i < 4; i++ {
		sample := &models.MetricSample{
			Metric:    "orders",
			Value:     1,
			Unit:      "count",
			Timestamp: day.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Samples().InsertMetric(ctx, sample); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	outside := &models.MetricSample{
		Metric:    "orders",
		Value:     1,
		Unit:      "count",
		Timestamp: day.Add(-time.Hour),
	}
	if err := store.Samples().InsertMetric(ctx, outside); err != nil {
		t.Fatalf("insert: %v", err)
	}

	count, err := store.Samples().EventCount(ctx, "orders", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("event count: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4 (half-open day window)", count)
	}

	metrics, availability, err := store.Samples().DeleteBefore(ctx, day)
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if metrics != 1 {
		t.Errorf("deleted %d metric samples, want 1", metrics)
	}
	if availability != 0 {
		t.Errorf("deleted %d availability samples, want 0", availability)
	}
}
