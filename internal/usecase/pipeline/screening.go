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

// ProcessScreening handles one primary-queue message: sample cheaply, score
// risk, and either decide immediately or escalate to deep analysis.
//
// A nil return means the message is consumed, which covers both first
// processing and duplicate deliveries. Transient errors bubble up so the
// worker nacks and the lease returns the message.
func (s *Service) ProcessScreening(ctx context.Context, body []byte) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	var msg ScreeningMessage
	if err := decodeMessage(body, &msg); err != nil {
		return err
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "pipeline.screening"),
		slog.String("video_id", msg.VideoID))

	record, err := s.repo.GetRecord(ctx, msg.VideoID)
	if err != nil {
		if errors.Is(err, moderation.ErrRecordNotFound) {
			logging.Warn(ctx, "screening message for unknown record, dropping")
			return nil
		}
		return errs.Transient(errs.Wrap(err, "load record"))
	}
	if record.Status == moderation.StatusScreened && record.RiskScore != nil {
		// A previous delivery committed the screening write but may have
		// died before routing. Both routes are idempotent: the escalation
		// marker keeps a redelivery from publishing twice, and the decide
		// path is a CAS.
		return s.routeScreened(ctx, msg.VideoID, *record.RiskScore)
	}
	if record.Status != moderation.StatusUploaded {
		logging.Info(ctx, "record already screened, acknowledging duplicate",
			slog.String("status", string(record.Status)))
		return nil
	}

	frames, err := s.fetchFrames(ctx, record, s.settings.ScreeningSampleRate)
	if err != nil {
		if errs.IsTransient(err) {
			return err
		}
		return s.markFailed(ctx, msg.VideoID, moderation.StatusUploaded,
			moderation.EventScreeningFailed, err.Error())
	}

	risk, err := s.scoreWithRetries(ctx, s.screeningScorer, frames, s.settings.ScreeningScorerRetries)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errs.Transient(err)
		}
		return s.markFailed(ctx, msg.VideoID, moderation.StatusUploaded,
			moderation.EventScreeningFailed, err.Error())
	}
	risk = moderation.Clamp01(risk)

	screened := moderation.StatusScreened
	screenedAt := s.now()
	frameCount := len(frames)
	var applied bool
	err = s.uow.WithTx(ctx, func(ctx context.Context) error {
		applied, err = s.repo.ConditionalUpdate(ctx, msg.VideoID, moderation.StatusUploaded, ports.RecordUpdate{
			Status:         &screened,
			RiskScore:      &risk,
			FramesAnalyzed: &frameCount,
			ScreenedAt:     &screenedAt,
		})
		if err != nil {
			return errs.Transient(errs.Wrap(err, "record screening result"))
		}
		if !applied {
			return nil
		}
		return s.appendEvent(ctx, msg.VideoID, moderation.EventScreened, map[string]any{
			"risk_score":      risk,
			"frames_analyzed": frameCount,
		})
	})
	if err != nil {
		return err
	}
	if !applied {
		logging.Info(ctx, "concurrent worker won the screening write, acknowledging duplicate")
		return nil
	}

	return s.routeScreened(ctx, msg.VideoID, risk)
}

// routeScreened sends a screened record down its branch: escalate when the
// risk exceeds the gate, decide from the risk score alone otherwise.
func (s *Service) routeScreened(ctx context.Context, videoID string, risk float64) error {
	if risk > s.settings.EscalationThreshold {
		return s.escalate(ctx, videoID, risk)
	}
	return s.decideRecord(ctx, videoID, moderation.StatusScreened, moderation.ScoreSet{Risk: &risk})
}

func escalationKey(videoID string) string {
	return "escalation:" + videoID
}

// escalate publishes the record to the deep-analysis queue at most once per
// record. Publish failures are transient: the screening transition already
// committed, the nacked primary message redelivers, and routeScreened retries
// here. The marker written after a successful publish stops a later
// redelivery from publishing again; a crash between publish and marker is
// absorbed by the analysis handler's status precondition.
func (s *Service) escalate(ctx context.Context, videoID string, risk float64) error {
	key := escalationKey(videoID)
	if s.cache != nil {
		if _, found, err := s.cache.Get(ctx, key); err != nil {
			logging.Warn(ctx, "escalation marker lookup failed, publishing anyway",
				slog.Any("err", errs.Loggable(err)))
		} else if found {
			logging.Info(ctx, "escalation already published, acknowledging duplicate")
			return nil
		}
	}

	priority := PriorityNormal
	if risk > s.settings.HighPriorityThreshold {
		priority = PriorityHigh
	}

	body, err := encodeMessage(AnalysisMessage{VideoID: videoID, RiskScore: risk, Priority: priority})
	if err != nil {
		return err
	}
	if err := s.queue.Publish(ctx, ports.QueueEscalation, body); err != nil {
		return errs.Transient(errs.Wrap(err, "publish analysis message"))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, "sent", 0); err != nil {
			logging.Warn(ctx, "escalation marker record failed",
				slog.Any("err", errs.Loggable(err)))
		}
	}

	escalationsTotal.WithLabelValues(priority).Inc()
	logging.Info(ctx, "record escalated to deep analysis",
		slog.Float64("risk_score", risk),
		slog.String("priority", priority))
	return nil
}
