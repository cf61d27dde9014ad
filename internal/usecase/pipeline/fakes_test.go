package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// fakeRepo mirrors the SQLite repository's contract: conditional updates
// validate the transition and report false on a precondition miss.
type fakeRepo struct {
	mu      sync.Mutex
	records map[string]ports.VideoRecord
	events  []ports.EventEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]ports.VideoRecord)}
}

func (r *fakeRepo) CreateRecord(_ context.Context, record ports.VideoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.VideoID]; ok {
		return fmt.Errorf("record %s already exists", record.VideoID)
	}
	r.records[record.VideoID] = record
	return nil
}

func (r *fakeRepo) GetRecord(_ context.Context, videoID string) (ports.VideoRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[videoID]
	if !ok {
		return ports.VideoRecord{}, moderation.ErrRecordNotFound
	}
	return record, nil
}

func (r *fakeRepo) ConditionalUpdate(_ context.Context, videoID string, expected moderation.Status, update ports.RecordUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[videoID]
	if !ok {
		return false, moderation.ErrRecordNotFound
	}
	if update.Status != nil && !moderation.CanTransition(expected, *update.Status) {
		return false, fmt.Errorf("transition %s -> %s not allowed", expected, *update.Status)
	}
	if record.Status != expected {
		return false, nil
	}

	if update.Status != nil {
		record.Status = *update.Status
	}
	if update.Decision != nil {
		record.Decision = *update.Decision
	}
	if update.RiskScore != nil {
		record.RiskScore = update.RiskScore
	}
	if update.NSFWScore != nil {
		record.NSFWScore = update.NSFWScore
	}
	if update.ViolenceScore != nil {
		record.ViolenceScore = update.ViolenceScore
	}
	if update.FinalScore != nil {
		record.FinalScore = update.FinalScore
	}
	if update.FramesAnalyzed != nil {
		record.FramesAnalyzed = *update.FramesAnalyzed
	}
	if update.HumanReviewed != nil {
		record.HumanReviewed = *update.HumanReviewed
	}
	if update.ReviewerNotes != nil {
		record.ReviewerNotes = *update.ReviewerNotes
	}
	if update.FailureReason != nil {
		record.FailureReason = *update.FailureReason
	}
	if update.ScreenedAt != nil {
		record.ScreenedAt = update.ScreenedAt
	}
	if update.AnalyzedAt != nil {
		record.AnalyzedAt = update.AnalyzedAt
	}
	if update.DecidedAt != nil {
		record.DecidedAt = update.DecidedAt
	}
	if update.ReviewedAt != nil {
		record.ReviewedAt = update.ReviewedAt
	}

	r.records[videoID] = record
	return true, nil
}

func (r *fakeRepo) QueryByStatus(_ context.Context, status moderation.Status) ([]ports.VideoRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.VideoRecord
	for _, record := range r.records {
		if record.Status == status {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeRepo) AppendEvent(_ context.Context, entry ports.EventEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, entry)
	return nil
}

func (r *fakeRepo) ListEvents(_ context.Context, videoID string) ([]ports.EventEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.EventEntry
	for _, e := range r.events {
		if e.VideoID == videoID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) PurgeExpiredEvents(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var removed int64
	for _, e := range r.events {
		if e.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return removed, nil
}

func (r *fakeRepo) eventTypes(videoID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.VideoID == videoID {
			out = append(out, e.EventType)
		}
	}
	return out
}

type fakeUoW struct{}

func (fakeUoW) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{values: make(map[string]string)} }

func (c *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

type fakeArtifacts struct {
	mu      sync.Mutex
	content map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{content: make(map[string][]byte)}
}

func (a *fakeArtifacts) put(key string, content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content[key] = content
}

func (a *fakeArtifacts) Get(_ context.Context, storageKey string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	content, ok := a.content[storageKey]
	if !ok {
		return nil, moderation.ErrRecordNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// fakeSampler returns the whole artifact as one frame.
type fakeSampler struct{}

func (fakeSampler) SampleFrames(_ context.Context, artifact io.Reader, _ float64) ([]ports.Frame, error) {
	content, err := io.ReadAll(artifact)
	if err != nil {
		return nil, err
	}
	return []ports.Frame{content}, nil
}

// stubScorer returns a fixed score, optionally failing the first failN
// calls with a transient error.
type stubScorer struct {
	name  string
	score float64
	failN int

	mu    sync.Mutex
	calls int
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(context.Context, []ports.Frame) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failN {
		return 0, errs.Transient(fmt.Errorf("%s unavailable", s.name))
	}
	return s.score, nil
}

type sentOutcome struct {
	videoID  string
	decision moderation.Decision
}

// fakeSender records deliveries, optionally failing the first failN calls
// with a transient error.
type fakeSender struct {
	mu    sync.Mutex
	sent  []sentOutcome
	failN int
	calls int
}

func (f *fakeSender) Send(_ context.Context, videoID string, decision moderation.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return errs.Transient(fmt.Errorf("webhook unavailable"))
	}
	f.sent = append(f.sent, sentOutcome{videoID: videoID, decision: decision})
	return nil
}

func (f *fakeSender) outcomes() []sentOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentOutcome(nil), f.sent...)
}
