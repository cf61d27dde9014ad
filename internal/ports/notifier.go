package ports

import (
	"context"

	"guardian/internal/domain/moderation"
)

// OutcomeSender delivers a terminal decision to the downstream notification
// collaborator. Transport details are the adapter's concern; the dispatcher
// owns retry and idempotency.
type OutcomeSender interface {
	Send(ctx context.Context, videoID string, decision moderation.Decision) error
}
