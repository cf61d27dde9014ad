package ports

import (
	"context"
	"io"
)

// ArtifactStore is durable binary storage keyed by storage key. The pipeline
// only ever reads artifacts; ingestion wrote them before the record existed.
type ArtifactStore interface {
	Get(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
