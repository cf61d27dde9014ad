package moderation

// Clamp01 bounds a score to [0,1]. Scorers are opaque; their output is never
// trusted to stay in range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// WeightedScore is one scorer's clamped output with its blend weight.
type WeightedScore struct {
	Score  float64
	Weight float64
}

// Blend combines multiple scorer outputs for one sub-score as a normalized
// weighted average. A single entry passes through; zero entries or zero
// total weight yield 0.
func Blend(scores []WeightedScore) float64 {
	if len(scores) == 0 {
		return 0
	}

	sum := 0.0
	totalWeight := 0.0
	for _, ws := range scores {
		if ws.Weight <= 0 {
			continue
		}
		sum += ws.Weight * Clamp01(ws.Score)
		totalWeight += ws.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return Clamp01(sum / totalWeight)
}
