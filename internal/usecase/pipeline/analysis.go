package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// ProcessAnalysis handles one escalation-queue message: resample at full
// rate, run the specialized and general classifiers for each sub-score, and
// decide. Same consumption contract as screening: nil consumes, transient
// errors redeliver.
func (s *Service) ProcessAnalysis(ctx context.Context, body []byte) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	var msg AnalysisMessage
	if err := decodeMessage(body, &msg); err != nil {
		return err
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "pipeline.analysis"),
		slog.String("video_id", msg.VideoID))

	record, err := s.repo.GetRecord(ctx, msg.VideoID)
	if err != nil {
		if errors.Is(err, moderation.ErrRecordNotFound) {
			logging.Warn(ctx, "analysis message for unknown record, dropping")
			return nil
		}
		return errs.Transient(errs.Wrap(err, "load record"))
	}
	if record.Status == moderation.StatusAnalyzed {
		// Analysis committed but the decision may not have. Re-decide; the
		// decision write is conditional on analyzed.
		return s.decideRecord(ctx, msg.VideoID, moderation.StatusAnalyzed, record.Scores())
	}
	if record.Status != moderation.StatusScreened {
		logging.Info(ctx, "record already analyzed, acknowledging duplicate",
			slog.String("status", string(record.Status)))
		return nil
	}

	frames, err := s.fetchFrames(ctx, record, s.settings.AnalysisSampleRate)
	if err != nil {
		if errs.IsTransient(err) {
			return err
		}
		return s.markFailed(ctx, msg.VideoID, moderation.StatusScreened,
			moderation.EventAnalysisFailed, err.Error())
	}

	nsfw, err := s.blendScore(ctx, s.nsfwScorers, frames)
	if err != nil {
		return s.analysisScoreFailure(ctx, msg.VideoID, err)
	}
	violence, err := s.blendScore(ctx, s.violenceScorers, frames)
	if err != nil {
		return s.analysisScoreFailure(ctx, msg.VideoID, err)
	}

	analyzed := moderation.StatusAnalyzed
	analyzedAt := s.now()
	frameCount := len(frames)
	var applied bool
	err = s.uow.WithTx(ctx, func(ctx context.Context) error {
		applied, err = s.repo.ConditionalUpdate(ctx, msg.VideoID, moderation.StatusScreened, ports.RecordUpdate{
			Status:         &analyzed,
			NSFWScore:      &nsfw,
			ViolenceScore:  &violence,
			FramesAnalyzed: &frameCount,
			AnalyzedAt:     &analyzedAt,
		})
		if err != nil {
			return errs.Transient(errs.Wrap(err, "record analysis result"))
		}
		if !applied {
			return nil
		}
		return s.appendEvent(ctx, msg.VideoID, moderation.EventAnalyzed, map[string]any{
			"nsfw_score":      nsfw,
			"violence_score":  violence,
			"frames_analyzed": frameCount,
		})
	})
	if err != nil {
		return err
	}
	if !applied {
		logging.Info(ctx, "concurrent worker won the analysis write, acknowledging duplicate")
		return nil
	}

	scores := record.Scores()
	scores.NSFW = &nsfw
	scores.Violence = &violence
	return s.decideRecord(ctx, msg.VideoID, moderation.StatusAnalyzed, scores)
}

func (s *Service) analysisScoreFailure(ctx context.Context, videoID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Transient(err)
	}
	return s.markFailed(ctx, videoID, moderation.StatusScreened,
		moderation.EventAnalysisFailed, err.Error())
}
