package pipeline

import (
	"encoding/json"

	"guardian/internal/errs"
)

// Escalation message priorities.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// ScreeningMessage is the payload on the primary queue, published once per
// upload. Redeliveries are expected and harmless.
type ScreeningMessage struct {
	VideoID string `json:"video_id"`
}

// AnalysisMessage is the payload on the escalation queue. RiskScore and
// Priority are advisory copies for consumers and dashboards; the record
// store stays the source of truth.
type AnalysisMessage struct {
	VideoID   string  `json:"video_id"`
	RiskScore float64 `json:"risk_score"`
	Priority  string  `json:"priority"`
}

func encodeMessage(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(err, "encode queue message")
	}
	return body, nil
}

func decodeMessage(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errs.Wrap(err, "decode queue message")
	}
	return nil
}
