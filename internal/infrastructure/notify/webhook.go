package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// WebhookSender posts final moderation outcomes to a configured endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
}

var _ ports.OutcomeSender = (*WebhookSender)(nil)

func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{url: url, client: &http.Client{Timeout: timeout}}
}

type outcomePayload struct {
	VideoID  string `json:"video_id"`
	Decision string `json:"decision"`
}

func (s *WebhookSender) Send(ctx context.Context, videoID string, decision moderation.Decision) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	body, err := json.Marshal(outcomePayload{VideoID: videoID, Decision: string(decision)})
	if err != nil {
		return errs.Wrap(err, "encode outcome payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "build outcome request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.Transient(errs.Wrap(err, "post outcome webhook"))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errs.Transient(fmt.Errorf("outcome webhook returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("outcome webhook returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender is used when no webhook URL is configured. Outcomes are logged
// and treated as delivered.
type NoopSender struct{}

var _ ports.OutcomeSender = (*NoopSender)(nil)

func (NoopSender) Send(ctx context.Context, videoID string, decision moderation.Decision) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logging.Info(ctx, "outcome webhook not configured, skipping notification",
		slog.String("video_id", videoID),
		slog.String("decision", string(decision)))
	return nil
}

// NewSender returns the webhook sender when a URL is configured and the
// noop sender otherwise.
func NewSender(url string, timeout time.Duration) ports.OutcomeSender {
	if url == "" {
		return NoopSender{}
	}
	return NewWebhookSender(url, timeout)
}
