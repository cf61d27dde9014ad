package pipeline

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
)

func dispatchKey(videoID string, decision moderation.Decision) string {
	return "dispatch:" + videoID + ":" + string(decision)
}

// dispatchOutcome delivers a terminal decision downstream. Delivery is
// best-effort with bounded retries: the record is already terminal, so an
// exhausted dispatch is logged and audited, never unwound. The idempotency
// key makes redeliveries and re-decisions send at most once per
// (video, decision).
func (s *Service) dispatchOutcome(ctx context.Context, videoID string, decision moderation.Decision) {
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "pipeline.dispatch"),
		slog.String("video_id", videoID),
		slog.String("decision", string(decision)))

	if s.sender == nil {
		return
	}

	key := dispatchKey(videoID, decision)
	if s.cache != nil {
		if _, found, err := s.cache.Get(ctx, key); err != nil {
			logging.Warn(ctx, "idempotency lookup failed, sending anyway",
				slog.Any("err", errs.Loggable(err)))
		} else if found {
			logging.Info(ctx, "outcome already dispatched, skipping")
			return
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.settings.DispatchInitialBackoff

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		dispatchAttemptsTotal.Inc()
		err := s.sender.Send(ctx, videoID, decision)
		if err != nil && !errs.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.settings.DispatchMaxAttempts)),
	)

	delivered := err == nil
	if delivered {
		if s.cache != nil {
			if cerr := s.cache.Set(ctx, key, "sent", 0); cerr != nil {
				logging.Warn(ctx, "idempotency record failed",
					slog.Any("err", errs.Loggable(cerr)))
			}
		}
		logging.Info(ctx, "outcome dispatched", slog.Int("attempts", attempts))
	} else {
		dispatchFailuresTotal.Inc()
		logging.Error(ctx, "outcome dispatch exhausted retries",
			slog.Int("attempts", attempts),
			slog.Any("err", errs.Loggable(err)))
	}

	if aerr := s.appendEvent(ctx, videoID, moderation.EventNotified, map[string]any{
		"decision":  string(decision),
		"delivered": delivered,
		"attempts":  attempts,
	}); aerr != nil {
		logging.Warn(ctx, "audit append for dispatch failed",
			slog.Any("err", errs.Loggable(aerr)))
	}
}
