package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// WeightedScorer pairs a scorer with its blend weight inside one sub-score.
type WeightedScorer struct {
	Scorer ports.Scorer
	Weight float64
}

// Settings are the tunables of the pipeline. Zero values fall back to the
// calibrated defaults.
type Settings struct {
	ScreeningSampleRate    float64
	AnalysisSampleRate     float64
	ScreeningScorerRetries int
	AnalysisScorerRetries  int
	EscalationThreshold    float64
	HighPriorityThreshold  float64

	FinalWeights moderation.FinalScoreWeights
	Thresholds   moderation.Thresholds

	ReviewSLA time.Duration

	DispatchMaxAttempts    int
	DispatchInitialBackoff time.Duration

	EventTTL time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.ScreeningSampleRate <= 0 {
		s.ScreeningSampleRate = 0.5
	}
	if s.AnalysisSampleRate <= 0 {
		s.AnalysisSampleRate = 1.0
	}
	if s.ScreeningScorerRetries <= 0 {
		s.ScreeningScorerRetries = 3
	}
	if s.AnalysisScorerRetries <= 0 {
		s.AnalysisScorerRetries = 3
	}
	if s.EscalationThreshold <= 0 {
		s.EscalationThreshold = 0.3
	}
	if s.HighPriorityThreshold <= 0 {
		s.HighPriorityThreshold = 0.7
	}
	zero := moderation.FinalScoreWeights{}
	if s.FinalWeights == zero {
		s.FinalWeights = moderation.DefaultFinalScoreWeights()
	}
	if s.Thresholds == (moderation.Thresholds{}) {
		s.Thresholds = moderation.DefaultThresholds()
	}
	if s.ReviewSLA <= 0 {
		s.ReviewSLA = 4 * time.Hour
	}
	if s.DispatchMaxAttempts <= 0 {
		s.DispatchMaxAttempts = 5
	}
	if s.DispatchInitialBackoff <= 0 {
		s.DispatchInitialBackoff = time.Second
	}
	if s.EventTTL <= 0 {
		s.EventTTL = 90 * 24 * time.Hour
	}
	return s
}

// Params collects the collaborators of the pipeline service.
type Params struct {
	Repo      ports.RecordRepository
	UoW       ports.UnitOfWork
	Cache     ports.Cache
	Queue     ports.WorkQueue
	Artifacts ports.ArtifactStore
	Sampler   ports.FrameSampler

	// ScreeningScorer produces the cheap risk score; the two scorer slices
	// blend into the deep-analysis sub-scores.
	ScreeningScorer ports.Scorer
	NSFWScorers     []WeightedScorer
	ViolenceScorers []WeightedScorer

	Sender   ports.OutcomeSender
	Settings Settings
}

// Service owns every pipeline operation: ingestion, fast screening, deep
// analysis, decisions, human review, and outcome dispatch. All record
// mutations go through conditional updates keyed on the expected status,
// which is what makes every handler safe under at-least-once delivery.
type Service struct {
	repo      ports.RecordRepository
	uow       ports.UnitOfWork
	cache     ports.Cache
	queue     ports.WorkQueue
	artifacts ports.ArtifactStore
	sampler   ports.FrameSampler

	screeningScorer ports.Scorer
	nsfwScorers     []WeightedScorer
	violenceScorers []WeightedScorer

	sender   ports.OutcomeSender
	settings Settings

	now   func() time.Time
	newID func() string
}

func NewService(p Params) (*Service, error) {
	if p.Repo == nil {
		return nil, errors.New("record repository is required")
	}
	if p.UoW == nil {
		return nil, errors.New("unit of work is required")
	}
	if p.Queue == nil {
		return nil, errors.New("work queue is required")
	}
	if p.Artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	if p.Sampler == nil {
		return nil, errors.New("frame sampler is required")
	}
	if p.ScreeningScorer == nil {
		return nil, errors.New("screening scorer is required")
	}

	return &Service{
		repo:            p.Repo,
		uow:             p.UoW,
		cache:           p.Cache,
		queue:           p.Queue,
		artifacts:       p.Artifacts,
		sampler:         p.Sampler,
		screeningScorer: p.ScreeningScorer,
		nsfwScorers:     p.NSFWScorers,
		violenceScorers: p.ViolenceScorers,
		sender:          p.Sender,
		settings:        p.Settings.withDefaults(),
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}, nil
}

// appendEvent writes one audit row. Audit failures are surfaced so the
// transition and its event commit or retry together when inside a
// transaction; outside one the caller decides.
func (s *Service) appendEvent(ctx context.Context, videoID, eventType string, payload map[string]any) error {
	now := s.now()
	entry := ports.EventEntry{
		EventID:   s.newID(),
		VideoID:   videoID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.settings.EventTTL),
	}
	if err := s.repo.AppendEvent(ctx, entry); err != nil {
		return errs.Wrapf(err, "append %s event", eventType)
	}
	return nil
}

// History returns the audit trail of a record, oldest first.
func (s *Service) History(ctx context.Context, videoID string) ([]ports.EventEntry, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if _, err := s.repo.GetRecord(ctx, videoID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, videoID)
}

// Record returns the current store view of one video.
func (s *Service) Record(ctx context.Context, videoID string) (ports.VideoRecord, error) {
	if ctx == nil {
		return ports.VideoRecord{}, errors.New("context is required")
	}
	return s.repo.GetRecord(ctx, videoID)
}
