package scorer

import (
	"context"
	"errors"
	"math"

	"guardian/internal/domain/moderation"
	"guardian/internal/ports"
)

// FeatureWeights tune the screening heuristic. The defaults come from the
// calibrated split of the original classifier: motion 0.35, skin 0.35,
// color 0.30.
type FeatureWeights struct {
	Motion float64
	Skin   float64
	Color  float64
}

// HeuristicScorer is the cheap, always-on screening scorer. It computes
// classical per-frame features from raw frame bytes (motion magnitude as
// adjacent-byte deltas, a skin-tone band ratio, and color variance over a
// byte histogram) and blends them into one risk score.
type HeuristicScorer struct {
	weights FeatureWeights
}

var _ ports.Scorer = (*HeuristicScorer)(nil)

func NewHeuristicScorer(weights FeatureWeights) *HeuristicScorer {
	if weights.Motion == 0 && weights.Skin == 0 && weights.Color == 0 {
		weights = FeatureWeights{Motion: 0.35, Skin: 0.35, Color: 0.30}
	}
	return &HeuristicScorer{weights: weights}
}

func (s *HeuristicScorer) Name() string { return "screening-heuristic" }

func (s *HeuristicScorer) Score(ctx context.Context, frames []ports.Frame) (float64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if len(frames) == 0 {
		return 0, moderation.ErrNoFrames
	}

	var motionSum, skinSum, colorSum float64
	scored := 0
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if len(frame) == 0 {
			continue
		}
		motionSum += motionScore(frame)
		skinSum += bandRatio(frame, skinBandLow, skinBandHigh)
		colorSum += colorVariance(frame)
		scored++
	}
	if scored == 0 {
		return 0, moderation.ErrNoFrames
	}

	n := float64(scored)
	risk := s.weights.Motion*moderation.Clamp01(motionSum/n) +
		s.weights.Skin*moderation.Clamp01(skinSum/n) +
		s.weights.Color*moderation.Clamp01(colorSum/n)
	return moderation.Clamp01(risk), nil
}

const (
	skinBandLow  = 0x46
	skinBandHigh = 0x8c
)

// motionScore approximates motion magnitude as the mean absolute delta
// between adjacent bytes, normalized into [0,1].
func motionScore(frame ports.Frame) float64 {
	if len(frame) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(frame); i++ {
		delta := int(frame[i]) - int(frame[i-1])
		if delta < 0 {
			delta = -delta
		}
		total += float64(delta)
	}
	return total / float64(len(frame)-1) / 255.0
}

// bandRatio is the fraction of bytes inside [low, high].
func bandRatio(frame ports.Frame, low, high byte) float64 {
	count := 0
	for _, b := range frame {
		if b >= low && b <= high {
			count++
		}
	}
	return float64(count) / float64(len(frame))
}

// colorVariance is the standard deviation of the normalized byte histogram,
// scaled against a uniform distribution.
func colorVariance(frame ports.Frame) float64 {
	var hist [256]float64
	for _, b := range frame {
		hist[b]++
	}

	total := float64(len(frame))
	mean := total / 256.0
	variance := 0.0
	for _, count := range hist {
		diff := count - mean
		variance += diff * diff
	}
	variance /= 256.0

	// Empirical scale keeps typical content well inside [0,1].
	return moderation.Clamp01(math.Sqrt(variance) / total * 16.0)
}

// ProfileScorer is a deterministic, endpoint-free stand-in for a content
// classifier: it scores the fraction of frame bytes inside a byte band and
// the band's motion profile. The local single-binary deployment wires one
// per sub-score so deep analysis works without model endpoints.
type ProfileScorer struct {
	name string
	low  byte
	high byte
}

var _ ports.Scorer = (*ProfileScorer)(nil)

func NewProfileScorer(name string, low, high byte) *ProfileScorer {
	return &ProfileScorer{name: name, low: low, high: high}
}

func (s *ProfileScorer) Name() string { return s.name }

func (s *ProfileScorer) Score(ctx context.Context, frames []ports.Frame) (float64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if len(frames) == 0 {
		return 0, moderation.ErrNoFrames
	}

	total := 0.0
	scored := 0
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if len(frame) == 0 {
			continue
		}
		total += bandRatio(frame, s.low, s.high)
		scored++
	}
	if scored == 0 {
		return 0, moderation.ErrNoFrames
	}
	return moderation.Clamp01(total / float64(scored) * 2.0), nil
}
