package pipeline

import (
	"context"
	"log/slog"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// decideRecord computes the final score, applies the thresholds, and moves
// the record from its current stage status to the decision's status. The
// write is conditional, so concurrent deciders settle on exactly one
// outcome; the losers see a no-op and acknowledge.
func (s *Service) decideRecord(ctx context.Context, videoID string, from moderation.Status, scores moderation.ScoreSet) error {
	final := moderation.FinalScore(scores, s.settings.FinalWeights)
	decision := moderation.Decide(final, s.settings.Thresholds)
	status := decision.StatusFor()
	decidedAt := s.now()

	var applied bool
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		var err error
		applied, err = s.repo.ConditionalUpdate(ctx, videoID, from, ports.RecordUpdate{
			Status:     &status,
			Decision:   &decision,
			FinalScore: &final,
			DecidedAt:  &decidedAt,
		})
		if err != nil {
			return errs.Transient(errs.Wrap(err, "record decision"))
		}
		if !applied {
			return nil
		}
		return s.appendEvent(ctx, videoID, moderation.EventDecided, map[string]any{
			"final_score": final,
			"decision":    string(decision),
		})
	})
	if err != nil {
		return err
	}
	if !applied {
		logging.Info(ctx, "record already decided, acknowledging duplicate",
			slog.String("video_id", videoID))
		return nil
	}

	decisionsTotal.WithLabelValues(string(decision)).Inc()
	logging.Info(ctx, "decision recorded",
		slog.String("video_id", videoID),
		slog.Float64("final_score", final),
		slog.String("decision", string(decision)))

	if decision == moderation.DecisionApprove || decision == moderation.DecisionReject {
		s.dispatchOutcome(ctx, videoID, decision)
	}
	return nil
}
