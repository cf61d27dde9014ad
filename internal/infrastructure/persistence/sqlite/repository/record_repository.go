package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/infrastructure/persistence/sqlite/model"
	"guardian/internal/ports"
)

// RecordRepository implements ports.RecordRepository on gorm/sqlite. All
// status-advancing writes go through ConditionalUpdate so concurrent workers
// coordinate purely through the store.
type RecordRepository struct {
	db *gorm.DB
}

var _ ports.RecordRepository = (*RecordRepository)(nil)

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *RecordRepository) CreateRecord(ctx context.Context, record ports.VideoRecord) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.VideoRecord{
		VideoID:        record.VideoID,
		StorageKey:     record.StorageKey,
		SizeBytes:      record.SizeBytes,
		Status:         string(record.Status),
		RiskScore:      record.RiskScore,
		NSFWScore:      record.NSFWScore,
		ViolenceScore:  record.ViolenceScore,
		FinalScore:     record.FinalScore,
		Decision:       string(record.Decision),
		FramesAnalyzed: record.FramesAnalyzed,
		HumanReviewed:  record.HumanReviewed,
		ReviewerNotes:  record.ReviewerNotes,
		FailureReason:  record.FailureReason,
		UploadedAt:     formatTime(record.UploadedAt),
		ScreenedAt:     formatTimePtr(record.ScreenedAt),
		AnalyzedAt:     formatTimePtr(record.AnalyzedAt),
		DecidedAt:      formatTimePtr(record.DecidedAt),
		ReviewedAt:     formatTimePtr(record.ReviewedAt),
	}

	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert video record")
	}
	return nil
}

func (r *RecordRepository) GetRecord(ctx context.Context, videoID string) (ports.VideoRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.VideoRecord{}, err
	}

	var row model.VideoRecord
	if err := db.Where("video_id = ?", videoID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.VideoRecord{}, fmt.Errorf("%w: %s", moderation.ErrRecordNotFound, videoID)
		}
		return ports.VideoRecord{}, errs.Wrap(err, "query video record")
	}

	return mapRecord(row)
}

func (r *RecordRepository) ConditionalUpdate(ctx context.Context, videoID string, expected moderation.Status, update ports.RecordUpdate) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	assignments := buildAssignments(update)
	if len(assignments) == 0 {
		return false, errors.New("conditional update requires at least one mutation")
	}
	if update.Status != nil && !moderation.CanTransition(expected, *update.Status) {
		return false, fmt.Errorf("illegal transition %s -> %s", expected, *update.Status)
	}

	// The status predicate is the compare-and-swap: with at-least-once
	// delivery a losing writer simply matches zero rows.
	result := db.Model(&model.VideoRecord{}).
		Where("video_id = ? AND status = ?", videoID, string(expected)).
		Updates(assignments)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "conditional update video record")
	}

	return result.RowsAffected > 0, nil
}

func (r *RecordRepository) QueryByStatus(ctx context.Context, status moderation.Status) ([]ports.VideoRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.VideoRecord
	if err := db.
		Where("status = ?", string(status)).
		Order("COALESCE(analyzed_at, screened_at, uploaded_at) asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query records by status")
	}

	records := make([]ports.VideoRecord, 0, len(rows))
	for _, row := range rows {
		record, err := mapRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *RecordRepository) AppendEvent(ctx context.Context, entry ports.EventEntry) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	payload := "{}"
	if len(entry.Payload) > 0 {
		raw, err := json.Marshal(entry.Payload)
		if err != nil {
			return errs.Wrap(err, "marshal event payload")
		}
		payload = string(raw)
	}

	row := model.ModerationEvent{
		EventID:   entry.EventID,
		VideoID:   entry.VideoID,
		EventType: entry.EventType,
		Payload:   payload,
		CreatedAt: formatTime(entry.CreatedAt),
		ExpiresAt: formatTime(entry.ExpiresAt),
	}

	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "append moderation event")
	}
	return nil
}

func (r *RecordRepository) ListEvents(ctx context.Context, videoID string) ([]ports.EventEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ModerationEvent
	if err := db.
		Where("video_id = ?", videoID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query moderation events")
	}

	entries := make([]ports.EventEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapEvent(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *RecordRepository) PurgeExpiredEvents(ctx context.Context, now time.Time) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Where("expires_at <= ?", formatTime(now)).Delete(&model.ModerationEvent{})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "purge expired events")
	}
	return result.RowsAffected, nil
}

func buildAssignments(update ports.RecordUpdate) map[string]any {
	assignments := make(map[string]any, 8)

	if update.Status != nil {
		assignments["status"] = string(*update.Status)
	}
	if update.Decision != nil {
		assignments["decision"] = string(*update.Decision)
	}
	if update.RiskScore != nil {
		assignments["risk_score"] = *update.RiskScore
	}
	if update.NSFWScore != nil {
		assignments["nsfw_score"] = *update.NSFWScore
	}
	if update.ViolenceScore != nil {
		assignments["violence_score"] = *update.ViolenceScore
	}
	if update.FinalScore != nil {
		assignments["final_score"] = *update.FinalScore
	}
	if update.FramesAnalyzed != nil {
		assignments["frames_analyzed"] = *update.FramesAnalyzed
	}
	if update.HumanReviewed != nil {
		assignments["human_reviewed"] = *update.HumanReviewed
	}
	if update.ReviewerNotes != nil {
		assignments["reviewer_notes"] = *update.ReviewerNotes
	}
	if update.FailureReason != nil {
		assignments["failure_reason"] = *update.FailureReason
	}
	if update.ScreenedAt != nil {
		assignments["screened_at"] = formatTime(*update.ScreenedAt)
	}
	if update.AnalyzedAt != nil {
		assignments["analyzed_at"] = formatTime(*update.AnalyzedAt)
	}
	if update.DecidedAt != nil {
		assignments["decided_at"] = formatTime(*update.DecidedAt)
	}
	if update.ReviewedAt != nil {
		assignments["reviewed_at"] = formatTime(*update.ReviewedAt)
	}

	return assignments
}

func mapRecord(row model.VideoRecord) (ports.VideoRecord, error) {
	status, err := moderation.ParseStatus(row.Status)
	if err != nil {
		return ports.VideoRecord{}, errs.Wrapf(err, "record %s", row.VideoID)
	}

	uploadedAt, err := parseTime(row.UploadedAt)
	if err != nil {
		return ports.VideoRecord{}, errs.Wrapf(err, "record %s uploaded_at", row.VideoID)
	}

	record := ports.VideoRecord{
		VideoID:        row.VideoID,
		StorageKey:     row.StorageKey,
		SizeBytes:      row.SizeBytes,
		Status:         status,
		RiskScore:      row.RiskScore,
		NSFWScore:      row.NSFWScore,
		ViolenceScore:  row.ViolenceScore,
		FinalScore:     row.FinalScore,
		Decision:       moderation.Decision(row.Decision),
		FramesAnalyzed: row.FramesAnalyzed,
		HumanReviewed:  row.HumanReviewed,
		ReviewerNotes:  row.ReviewerNotes,
		FailureReason:  row.FailureReason,
		UploadedAt:     uploadedAt,
	}

	for _, field := range []struct {
		raw  *string
		dest **time.Time
		name string
	}{
		{row.ScreenedAt, &record.ScreenedAt, "screened_at"},
		{row.AnalyzedAt, &record.AnalyzedAt, "analyzed_at"},
		{row.DecidedAt, &record.DecidedAt, "decided_at"},
		{row.ReviewedAt, &record.ReviewedAt, "reviewed_at"},
	} {
		if field.raw == nil {
			continue
		}
		parsed, err := parseTime(*field.raw)
		if err != nil {
			return ports.VideoRecord{}, errs.Wrapf(err, "record %s %s", row.VideoID, field.name)
		}
		*field.dest = &parsed
	}

	return record, nil
}

func mapEvent(row model.ModerationEvent) (ports.EventEntry, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return ports.EventEntry{}, errs.Wrapf(err, "event %s created_at", row.EventID)
	}
	expiresAt, err := parseTime(row.ExpiresAt)
	if err != nil {
		return ports.EventEntry{}, errs.Wrapf(err, "event %s expires_at", row.EventID)
	}

	var payload map[string]any
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return ports.EventEntry{}, errs.Wrapf(err, "event %s payload", row.EventID)
		}
	}

	return ports.EventEntry{
		EventID:   row.EventID,
		VideoID:   row.VideoID,
		EventType: row.EventType,
		Payload:   payload,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// timeLayout is RFC 3339 with fixed-width nanoseconds. RFC3339Nano trims
// trailing zeros, which breaks lexical ordering of the stored text within a
// second; the padded form keeps text order chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := formatTime(*t)
	return &formatted
}

func parseTime(raw string) (time.Time, error) {
	// RFC3339Nano accepts both the padded layout and older trimmed values.
	return time.Parse(time.RFC3339Nano, raw)
}
