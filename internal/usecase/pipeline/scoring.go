package pipeline

import (
	"context"
	"log/slog"
	"time"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// fetchFrames loads the artifact and samples it at the given rate. Store
// errors other than not-found come back transient so the message is
// redelivered rather than the record failed.
func (s *Service) fetchFrames(ctx context.Context, record ports.VideoRecord, rate float64) ([]ports.Frame, error) {
	artifact, err := s.artifacts.Get(ctx, record.StorageKey)
	if err != nil {
		return nil, errs.Wrapf(err, "open artifact %s", record.StorageKey)
	}
	defer artifact.Close()

	frames, err := s.sampler.SampleFrames(ctx, artifact, rate)
	if err != nil {
		return nil, errs.Wrap(err, "sample frames")
	}
	return frames, nil
}

// scoreWithRetries runs one scorer, retrying transient failures a bounded
// number of times. A permanent scorer error short-circuits; the caller fails
// the record.
func (s *Service) scoreWithRetries(ctx context.Context, scorer ports.Scorer, frames []ports.Frame, retries int) (float64, error) {
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		score, err := scorer.Score(ctx, frames)
		if err == nil {
			return score, nil
		}
		lastErr = err
		if !errs.IsTransient(err) {
			break
		}
		logging.Warn(ctx, "scorer attempt failed, retrying",
			slog.String("scorer", scorer.Name()),
			slog.Int("attempt", attempt),
			slog.Any("err", errs.Loggable(err)))

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return 0, errs.Wrapf(lastErr, "scorer %s exhausted retries", scorer.Name())
}

// blendScore runs each scorer in the group and blends the results. All
// scorers must succeed; a sub-score with a missing component is worse than
// no sub-score at all.
func (s *Service) blendScore(ctx context.Context, scorers []WeightedScorer, frames []ports.Frame) (float64, error) {
	weighted := make([]moderation.WeightedScore, 0, len(scorers))
	for _, ws := range scorers {
		score, err := s.scoreWithRetries(ctx, ws.Scorer, frames, s.settings.AnalysisScorerRetries)
		if err != nil {
			return 0, err
		}
		weighted = append(weighted, moderation.WeightedScore{Score: score, Weight: ws.Weight})
	}
	return moderation.Blend(weighted), nil
}

// markFailed moves a record to the failed status and records why. The write
// is conditional: if another worker already advanced the record, failing is
// a duplicate no-op.
func (s *Service) markFailed(ctx context.Context, videoID string, from moderation.Status, eventType, reason string) error {
	failed := moderation.StatusFailed
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		applied, err := s.repo.ConditionalUpdate(ctx, videoID, from, ports.RecordUpdate{
			Status:        &failed,
			FailureReason: &reason,
		})
		if err != nil {
			return errs.Wrap(err, "mark record failed")
		}
		if !applied {
			logging.Info(ctx, "record already advanced, skipping failure mark",
				slog.String("video_id", videoID))
			return nil
		}
		recordsFailedTotal.WithLabelValues(eventType).Inc()
		return s.appendEvent(ctx, videoID, eventType, map[string]any{
			"reason": reason,
		})
	})
}
