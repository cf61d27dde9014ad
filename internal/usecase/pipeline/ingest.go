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

type IngestInput struct {
	// VideoID is generated when empty.
	VideoID    string
	StorageKey string
	SizeBytes  int64
}

// IngestVideo registers an uploaded artifact and enqueues it for screening.
// The artifact must already exist under StorageKey; ingestion never touches
// content.
func (s *Service) IngestVideo(ctx context.Context, in IngestInput) (ports.VideoRecord, error) {
	if ctx == nil {
		return ports.VideoRecord{}, errors.New("context is required")
	}
	if in.StorageKey == "" {
		return ports.VideoRecord{}, errors.New("storage key is required")
	}
	if in.VideoID == "" {
		in.VideoID = s.newID()
	}

	record := ports.VideoRecord{
		VideoID:    in.VideoID,
		StorageKey: in.StorageKey,
		SizeBytes:  in.SizeBytes,
		Status:     moderation.StatusUploaded,
		Decision:   moderation.DecisionPending,
		UploadedAt: s.now(),
	}

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateRecord(ctx, record); err != nil {
			return errs.Wrap(err, "create video record")
		}
		return s.appendEvent(ctx, record.VideoID, moderation.EventUploaded, map[string]any{
			"storage_key": in.StorageKey,
			"size_bytes":  in.SizeBytes,
		})
	})
	if err != nil {
		return ports.VideoRecord{}, err
	}

	body, err := encodeMessage(ScreeningMessage{VideoID: record.VideoID})
	if err != nil {
		return ports.VideoRecord{}, err
	}
	if err := s.queue.Publish(ctx, ports.QueuePrimary, body); err != nil {
		return ports.VideoRecord{}, errs.Wrap(err, "publish screening message")
	}

	logging.Info(ctx, "video ingested",
		slog.String("video_id", record.VideoID),
		slog.String("storage_key", in.StorageKey))
	return record, nil
}
