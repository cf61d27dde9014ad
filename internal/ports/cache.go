package ports

import (
	"context"
	"time"
)

// Cache defines a generic key-value capability. The outcome dispatcher and
// the escalation gate use it as their idempotency store; adapters may be
// backed by SQLite or an external store.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
