package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// FSStore is a filesystem-backed ports.ArtifactStore. Storage keys are
// slash-separated paths below the root directory; ingestion wrote them,
// this core only reads.
type FSStore struct {
	root string
}

var _ ports.ArtifactStore = (*FSStore)(nil)

func NewFSStore(root string) (*FSStore, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, errors.New("artifact root directory is required")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, errs.Wrapf(err, "create artifact directory %q", trimmed)
	}
	return &FSStore{root: trimmed}, nil
}

func (s *FSStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	cleaned := filepath.Clean(filepath.FromSlash(storageKey))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("invalid storage key %q", storageKey)
	}

	file, err := os.Open(filepath.Join(s.root, cleaned))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: artifact %s", moderation.ErrRecordNotFound, storageKey)
		}
		return nil, errs.Transient(errs.Wrapf(err, "open artifact %q", storageKey))
	}
	return file, nil
}

// Put writes an artifact below the root. Only the ingest tooling uses it;
// the pipeline itself never mutates the store.
func (s *FSStore) Put(ctx context.Context, storageKey string, content io.Reader) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	cleaned := filepath.Clean(filepath.FromSlash(storageKey))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("invalid storage key %q", storageKey)
	}

	path := filepath.Join(s.root, cleaned)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrapf(err, "create artifact subdirectory for %q", storageKey)
	}

	file, err := os.Create(path)
	if err != nil {
		return errs.Wrapf(err, "create artifact %q", storageKey)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return errs.Wrapf(err, "write artifact %q", storageKey)
	}
	return nil
}
