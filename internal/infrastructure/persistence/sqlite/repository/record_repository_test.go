package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"guardian/internal/domain/moderation"
	"guardian/internal/infrastructure/persistence/sqlite/model"
	"guardian/internal/ports"
)

func newTestRepo(t *testing.T) *RecordRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.VideoRecord{}, &model.ModerationEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRecordRepository(db)
}

func createUploaded(t *testing.T, repo *RecordRepository, videoID string, uploadedAt time.Time) {
	t.Helper()
	if err := repo.CreateRecord(context.Background(), ports.VideoRecord{
		VideoID:    videoID,
		StorageKey: "videos/" + videoID + ".mp4",
		SizeBytes:  1024,
		Status:     moderation.StatusUploaded,
		Decision:   moderation.DecisionPending,
		UploadedAt: uploadedAt,
	}); err != nil {
		t.Fatalf("CreateRecord(%s) error = %v", videoID, err)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetRecord(context.Background(), "missing"); !errors.Is(err, moderation.ErrRecordNotFound) {
		t.Fatalf("GetRecord() error = %v, want %v", err, moderation.ErrRecordNotFound)
	}
}

func TestConditionalUpdateAppliesOnce(t *testing.T) {
	repo := newTestRepo(t)
	createUploaded(t, repo, "vid-1", time.Now().UTC())

	screened := moderation.StatusScreened
	risk := 0.42
	screenedAt := time.Now().UTC()
	update := ports.RecordUpdate{
		Status:     &screened,
		RiskScore:  &risk,
		ScreenedAt: &screenedAt,
	}

	applied, err := repo.ConditionalUpdate(context.Background(), "vid-1", moderation.StatusUploaded, update)
	if err != nil {
		t.Fatalf("ConditionalUpdate() error = %v", err)
	}
	if !applied {
		t.Fatal("first conditional update should apply")
	}

	// Second delivery of the same transition matches zero rows.
	applied, err = repo.ConditionalUpdate(context.Background(), "vid-1", moderation.StatusUploaded, update)
	if err != nil {
		t.Fatalf("duplicate ConditionalUpdate() error = %v", err)
	}
	if applied {
		t.Fatal("duplicate conditional update must not apply")
	}

	record, err := repo.GetRecord(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if record.Status != moderation.StatusScreened {
		t.Fatalf("status = %s, want screened", record.Status)
	}
	if record.RiskScore == nil || *record.RiskScore != 0.42 {
		t.Fatalf("risk score = %v, want 0.42", record.RiskScore)
	}
	if record.ScreenedAt == nil {
		t.Fatal("screened_at not persisted")
	}
}

func TestConditionalUpdateRejectsIllegalTransition(t *testing.T) {
	repo := newTestRepo(t)
	createUploaded(t, repo, "vid-1", time.Now().UTC())

	approved := moderation.StatusApproved
	if _, err := repo.ConditionalUpdate(context.Background(), "vid-1", moderation.StatusUploaded, ports.RecordUpdate{
		Status: &approved,
	}); err == nil {
		t.Fatal("uploaded -> approved should be rejected")
	}
}

func TestQueryByStatusOrdersByStageEntry(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	// Newer upload but older decision entry should still sort by upload
	// time because neither record carries stage timestamps yet.
	createUploaded(t, repo, "vid-new", base.Add(time.Hour))
	createUploaded(t, repo, "vid-old", base)

	records, err := repo.QueryByStatus(context.Background(), moderation.StatusUploaded)
	if err != nil {
		t.Fatalf("QueryByStatus() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].VideoID != "vid-old" || records[1].VideoID != "vid-new" {
		t.Fatalf("order = %s, %s; want vid-old first", records[0].VideoID, records[1].VideoID)
	}
}

func TestQueryByStatusOrdersSubSecondTimestamps(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 8, 30, 10, 0, 5, 0, time.UTC)

	// A whole-second timestamp must not sort after one half a second
	// earlier within the same second.
	createUploaded(t, repo, "vid-whole", base)
	createUploaded(t, repo, "vid-half", base.Add(-500*time.Millisecond))

	records, err := repo.QueryByStatus(context.Background(), moderation.StatusUploaded)
	if err != nil {
		t.Fatalf("QueryByStatus() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].VideoID != "vid-half" || records[1].VideoID != "vid-whole" {
		t.Fatalf("order = %s, %s; want vid-half first", records[0].VideoID, records[1].VideoID)
	}
}

func TestFormatTimeSortsLexically(t *testing.T) {
	earlier := time.Date(2026, 8, 30, 10, 0, 5, 500_000_000, time.UTC)
	later := time.Date(2026, 8, 30, 10, 0, 6, 0, time.UTC)
	a, b := formatTime(earlier), formatTime(later)
	if a >= b {
		t.Fatalf("formatTime text order: %q >= %q", a, b)
	}
	parsed, err := parseTime(a)
	if err != nil {
		t.Fatalf("parseTime(%q) error = %v", a, err)
	}
	if !parsed.Equal(earlier) {
		t.Fatalf("round trip = %v, want %v", parsed, earlier)
	}
}

func TestEventAppendListAndPurge(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now().UTC()

	entries := []ports.EventEntry{
		{
			EventID:   "evt-1",
			VideoID:   "vid-1",
			EventType: moderation.EventUploaded,
			Payload:   map[string]any{"size_bytes": float64(1024)},
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Hour),
		},
		{
			EventID:   "evt-2",
			VideoID:   "vid-1",
			EventType: moderation.EventScreened,
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		},
	}
	for _, entry := range entries {
		if err := repo.AppendEvent(context.Background(), entry); err != nil {
			t.Fatalf("AppendEvent(%s) error = %v", entry.EventID, err)
		}
	}

	listed, err := repo.ListEvents(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(listed) != 2 || listed[0].EventID != "evt-1" {
		t.Fatalf("listed = %v, want evt-1 then evt-2", listed)
	}
	if listed[0].Payload["size_bytes"] != float64(1024) {
		t.Fatalf("payload = %v, want size_bytes 1024", listed[0].Payload)
	}

	removed, err := repo.PurgeExpiredEvents(context.Background(), now)
	if err != nil {
		t.Fatalf("PurgeExpiredEvents() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	listed, err = repo.ListEvents(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(listed) != 1 || listed[0].EventID != "evt-2" {
		t.Fatalf("events after purge = %v, want only evt-2", listed)
	}
}
