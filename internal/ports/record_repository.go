package ports

import (
	"context"
	"time"

	"guardian/internal/domain/moderation"
)

// VideoRecord is the store-level view of one moderated artifact. The Record
// Store is the single source of truth; workers never share records through
// memory, only through conditional writes keyed on the expected status.
type VideoRecord struct {
	VideoID        string
	StorageKey     string
	SizeBytes      int64
	Status         moderation.Status
	RiskScore      *float64
	NSFWScore      *float64
	ViolenceScore  *float64
	FinalScore     *float64
	Decision       moderation.Decision
	FramesAnalyzed int
	HumanReviewed  bool
	ReviewerNotes  string
	FailureReason  string
	UploadedAt     time.Time
	ScreenedAt     *time.Time
	AnalyzedAt     *time.Time
	DecidedAt      *time.Time
	ReviewedAt     *time.Time
}

// Scores collects whichever stage scores the record carries.
func (r VideoRecord) Scores() moderation.ScoreSet {
	return moderation.ScoreSet{
		Risk:     r.RiskScore,
		NSFW:     r.NSFWScore,
		Violence: r.ViolenceScore,
	}
}

// RecordUpdate lists the mutations one conditional write may apply. Nil
// fields are left untouched; timestamps are set at most once because each is
// only ever written by the single transition that produces it.
type RecordUpdate struct {
	Status         *moderation.Status
	Decision       *moderation.Decision
	RiskScore      *float64
	NSFWScore      *float64
	ViolenceScore  *float64
	FinalScore     *float64
	FramesAnalyzed *int
	HumanReviewed  *bool
	ReviewerNotes  *string
	FailureReason  *string
	ScreenedAt     *time.Time
	AnalyzedAt     *time.Time
	DecidedAt      *time.Time
	ReviewedAt     *time.Time
}

// EventEntry is one append-only audit log row. VideoID is a plain foreign
// key with no referential integrity; ExpiresAt bounds retention.
type EventEntry struct {
	EventID   string
	VideoID   string
	EventType string
	Payload   map[string]any
	CreatedAt time.Time
	ExpiresAt time.Time
}

type RecordRepository interface {
	CreateRecord(ctx context.Context, record VideoRecord) error
	GetRecord(ctx context.Context, videoID string) (VideoRecord, error)

	// ConditionalUpdate applies the mutations only when the record still has
	// the expected status. It reports false (no error) when the precondition
	// no longer holds; with at-least-once delivery the caller treats that as
	// a successful duplicate.
	ConditionalUpdate(ctx context.Context, videoID string, expected moderation.Status, update RecordUpdate) (bool, error)

	// QueryByStatus lists records in a status, oldest stage-entry first.
	QueryByStatus(ctx context.Context, status moderation.Status) ([]VideoRecord, error)

	AppendEvent(ctx context.Context, entry EventEntry) error
	ListEvents(ctx context.Context, videoID string) ([]EventEntry, error)

	// PurgeExpiredEvents deletes audit rows past their TTL and returns the
	// number removed.
	PurgeExpiredEvents(ctx context.Context, now time.Time) (int64, error)
}
