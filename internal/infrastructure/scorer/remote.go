package scorer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// RemoteScorer calls an external model endpoint for a sub-score. Network and
// 5xx failures are marked transient so callers can retry; 4xx responses are
// permanent scorer failures.
type RemoteScorer struct {
	name     string
	endpoint string
	token    string
	client   *http.Client
}

var _ ports.Scorer = (*RemoteScorer)(nil)

func NewRemoteScorer(name, endpoint, token string, timeout time.Duration) *RemoteScorer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteScorer{
		name:     name,
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *RemoteScorer) Name() string { return s.name }

type scoreRequest struct {
	Frames []string `json:"frames"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

func (s *RemoteScorer) Score(ctx context.Context, frames []ports.Frame) (float64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if len(frames) == 0 {
		return 0, moderation.ErrNoFrames
	}

	payload := scoreRequest{Frames: make([]string, 0, len(frames))}
	for _, frame := range frames {
		payload.Frames = append(payload.Frames, base64.StdEncoding.EncodeToString(frame))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, errs.Wrap(err, "encode score request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, errs.Wrap(err, "build score request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, errs.Transient(errs.Wrapf(err, "call %s endpoint", s.name))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, errs.Transient(fmt.Errorf("%s endpoint returned %d: %w", s.name, resp.StatusCode, moderation.ErrScorerFailure))
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s endpoint returned %d: %w", s.name, resp.StatusCode, moderation.ErrScorerFailure)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, errs.Transient(errs.Wrapf(err, "read %s response", s.name))
	}
	var out scoreResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("decode %s response: %w", s.name, moderation.ErrScorerFailure)
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("%s returned score %v outside [0,1]: %w", s.name, out.Score, moderation.ErrScorerFailure)
	}
	return out.Score, nil
}
