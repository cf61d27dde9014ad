package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// Handler processes one queue message body. A nil return consumes the
// message (first processing or harmless duplicate), a transient error
// releases it for redelivery, any other error consumes it as a poison
// message after logging.
type Handler func(ctx context.Context, body []byte) error

// RunWorker pulls from one queue until the context is canceled. Receive
// returns within the adapter's poll window, so cancellation latency is
// bounded.
func (s *Service) RunWorker(ctx context.Context, queue string, handle Handler) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	ctx = logging.WithAttrs(ctx, slog.String("queue", queue))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delivery, err := s.queue.Receive(ctx, queue)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn(ctx, "receive failed, backing off",
				slog.Any("err", errs.Loggable(err)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if delivery == nil {
			continue
		}

		s.handleDelivery(ctx, delivery, handle)
	}
}

func (s *Service) handleDelivery(ctx context.Context, delivery ports.Delivery, handle Handler) {
	err := handle(ctx, delivery.Body())

	// Settlement uses a fresh context so a canceled worker still settles
	// the message it already processed.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	switch {
	case err == nil:
		if ackErr := delivery.Ack(settleCtx); ackErr != nil {
			logging.Warn(ctx, "ack failed, message will redeliver",
				slog.Any("err", errs.Loggable(ackErr)))
		}
	case errs.IsTransient(err):
		logging.Warn(ctx, "transient handler failure, releasing message",
			slog.Any("err", errs.Loggable(err)))
		if nackErr := delivery.Nack(settleCtx); nackErr != nil {
			logging.Warn(ctx, "nack failed, lease expiry will redeliver",
				slog.Any("err", errs.Loggable(nackErr)))
		}
	default:
		logging.Error(ctx, "permanent handler failure, dropping message",
			slog.Any("err", errs.Loggable(err)))
		if ackErr := delivery.Ack(settleCtx); ackErr != nil {
			logging.Warn(ctx, "ack of poison message failed",
				slog.Any("err", errs.Loggable(ackErr)))
		}
	}
}
