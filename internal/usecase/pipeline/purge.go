package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
)

// PurgeExpiredEvents removes audit rows past their TTL once.
func (s *Service) PurgeExpiredEvents(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	removed, err := s.repo.PurgeExpiredEvents(ctx, s.now())
	if err != nil {
		return 0, errs.Wrap(err, "purge expired events")
	}
	if removed > 0 {
		eventsPurgedTotal.Add(float64(removed))
		logging.Info(ctx, "expired audit events purged",
			slog.Int64("removed", removed))
	}
	return removed, nil
}

// RunEventPurge purges on an interval until the context is canceled.
func (s *Service) RunEventPurge(ctx context.Context, interval time.Duration) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "pipeline.purge"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.PurgeExpiredEvents(ctx); err != nil {
				logging.Warn(ctx, "purge failed",
					slog.Any("err", errs.Loggable(err)))
			}
		}
	}
}
