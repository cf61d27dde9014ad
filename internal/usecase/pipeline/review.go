package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// maxReviewerNotes bounds stored notes.
const maxReviewerNotes = 4096

// ReviewItem is one pending human-review entry with its SLA bookkeeping.
// SLA breach is an observability signal; overdue items stay in the queue.
type ReviewItem struct {
	VideoID       string
	RiskScore     *float64
	NSFWScore     *float64
	ViolenceScore *float64
	FinalScore    *float64
	EnteredAt     time.Time
	Deadline      time.Time
	Waiting       time.Duration
	Overdue       bool
}

// ListPendingReviews returns every record awaiting a human verdict, oldest
// first.
func (s *Service) ListPendingReviews(ctx context.Context) ([]ReviewItem, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	records, err := s.repo.QueryByStatus(ctx, moderation.StatusReview)
	if err != nil {
		return nil, errs.Wrap(err, "list review queue")
	}

	now := s.now()
	items := make([]ReviewItem, 0, len(records))
	overdue := 0
	for _, r := range records {
		entered := r.UploadedAt
		if r.DecidedAt != nil {
			entered = *r.DecidedAt
		}
		item := ReviewItem{
			VideoID:       r.VideoID,
			RiskScore:     r.RiskScore,
			NSFWScore:     r.NSFWScore,
			ViolenceScore: r.ViolenceScore,
			FinalScore:    r.FinalScore,
			EnteredAt:     entered,
			Deadline:      entered.Add(s.settings.ReviewSLA),
			Waiting:       now.Sub(entered),
		}
		item.Overdue = now.After(item.Deadline)
		if item.Overdue {
			overdue++
		}
		items = append(items, item)
	}

	reviewQueueGauge.Set(float64(len(items)))
	reviewOverdueGauge.Set(float64(overdue))
	return items, nil
}

type VerdictInput struct {
	VideoID  string
	Approved bool
	Reviewer string
	Notes    string
}

// SubmitVerdict resolves a record in human review. The status precondition
// rejects double submissions: the second reviewer gets ErrInvalidState
// instead of silently overwriting the first verdict.
func (s *Service) SubmitVerdict(ctx context.Context, in VerdictInput) (ports.VideoRecord, error) {
	if ctx == nil {
		return ports.VideoRecord{}, errors.New("context is required")
	}
	if len(in.Notes) > maxReviewerNotes {
		return ports.VideoRecord{}, moderation.ErrNotesTooLong
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "pipeline.review"),
		slog.String("video_id", in.VideoID))

	record, err := s.repo.GetRecord(ctx, in.VideoID)
	if err != nil {
		return ports.VideoRecord{}, err
	}
	if record.Status != moderation.StatusReview {
		return ports.VideoRecord{}, errs.Wrapf(moderation.ErrInvalidState,
			"record is %s, not awaiting review", record.Status)
	}

	decision := moderation.DecisionReject
	if in.Approved {
		decision = moderation.DecisionApprove
	}
	status := decision.StatusFor()
	reviewed := true
	reviewedAt := s.now()

	var applied bool
	err = s.uow.WithTx(ctx, func(ctx context.Context) error {
		applied, err = s.repo.ConditionalUpdate(ctx, in.VideoID, moderation.StatusReview, ports.RecordUpdate{
			Status:        &status,
			Decision:      &decision,
			HumanReviewed: &reviewed,
			ReviewerNotes: &in.Notes,
			ReviewedAt:    &reviewedAt,
		})
		if err != nil {
			return errs.Wrap(err, "record verdict")
		}
		if !applied {
			return nil
		}
		return s.appendEvent(ctx, in.VideoID, moderation.EventReviewed, map[string]any{
			"decision": string(decision),
			"reviewer": in.Reviewer,
		})
	})
	if err != nil {
		return ports.VideoRecord{}, err
	}
	if !applied {
		// Lost the race to a concurrent verdict between the read and the
		// write.
		return ports.VideoRecord{}, errs.Wrap(moderation.ErrInvalidState, "verdict already submitted")
	}

	verdictsTotal.WithLabelValues(string(decision)).Inc()
	logging.Info(ctx, "verdict recorded",
		slog.String("decision", string(decision)),
		slog.String("reviewer", in.Reviewer))

	s.dispatchOutcome(ctx, in.VideoID, decision)

	return s.repo.GetRecord(ctx, in.VideoID)
}
