package scorer

import (
	"context"
	"errors"
	"testing"

	"guardian/internal/domain/moderation"
	"guardian/internal/ports"
)

func TestHeuristicScorerNoFrames(t *testing.T) {
	s := NewHeuristicScorer(FeatureWeights{})

	if _, err := s.Score(context.Background(), nil); !errors.Is(err, moderation.ErrNoFrames) {
		t.Fatalf("Score() error = %v, want %v", err, moderation.ErrNoFrames)
	}
	if _, err := s.Score(context.Background(), []ports.Frame{{}}); !errors.Is(err, moderation.ErrNoFrames) {
		t.Fatalf("Score() on empty frames error = %v, want %v", err, moderation.ErrNoFrames)
	}
}

func TestHeuristicScorerRange(t *testing.T) {
	s := NewHeuristicScorer(FeatureWeights{Motion: 0.35, Skin: 0.35, Color: 0.30})

	frames := []ports.Frame{
		make(ports.Frame, 4096),
		make(ports.Frame, 4096),
	}
	for i := range frames[1] {
		frames[1][i] = byte(i * 37)
	}

	score, err := s.Score(context.Background(), frames)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score < 0 || score > 1 {
		t.Fatalf("Score() = %v, want within [0,1]", score)
	}
}

func TestHeuristicScorerUniformFrameScoresLow(t *testing.T) {
	s := NewHeuristicScorer(FeatureWeights{})

	flat := make(ports.Frame, 4096)
	noisy := make(ports.Frame, 4096)
	for i := range noisy {
		if i%2 == 0 {
			noisy[i] = 0x00
		} else {
			noisy[i] = 0xff
		}
	}

	low, err := s.Score(context.Background(), []ports.Frame{flat})
	if err != nil {
		t.Fatalf("Score(flat) error = %v", err)
	}
	high, err := s.Score(context.Background(), []ports.Frame{noisy})
	if err != nil {
		t.Fatalf("Score(noisy) error = %v", err)
	}
	if low >= high {
		t.Fatalf("flat score %v should be below noisy score %v", low, high)
	}
}

func TestProfileScorerBand(t *testing.T) {
	s := NewProfileScorer("nsfw-profile", 0x40, 0x7f)
	if s.Name() != "nsfw-profile" {
		t.Fatalf("Name() = %q, want %q", s.Name(), "nsfw-profile")
	}

	inBand := make(ports.Frame, 1024)
	for i := range inBand {
		inBand[i] = 0x50
	}
	outBand := make(ports.Frame, 1024)
	for i := range outBand {
		outBand[i] = 0xf0
	}

	hit, err := s.Score(context.Background(), []ports.Frame{inBand})
	if err != nil {
		t.Fatalf("Score(inBand) error = %v", err)
	}
	if hit != 1 {
		t.Fatalf("Score(inBand) = %v, want 1", hit)
	}

	miss, err := s.Score(context.Background(), []ports.Frame{outBand})
	if err != nil {
		t.Fatalf("Score(outBand) error = %v", err)
	}
	if miss != 0 {
		t.Fatalf("Score(outBand) = %v, want 0", miss)
	}
}

func TestProfileScorerCanceledContext(t *testing.T) {
	s := NewProfileScorer("violence-profile", 0x00, 0x10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Score(ctx, []ports.Frame{make(ports.Frame, 16)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Score() error = %v, want context.Canceled", err)
	}
}
