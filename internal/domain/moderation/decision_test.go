package moderation

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestDecideThresholds(t *testing.T) {
	thresholds := DefaultThresholds()

	cases := []struct {
		score float64
		want  Decision
	}{
		{0.0, DecisionApprove},
		{0.19, DecisionApprove},
		{0.2, DecisionReview}, // closed interval: boundary goes to review
		{0.45, DecisionReview},
		{0.8, DecisionReview}, // closed interval: boundary goes to review
		{0.81, DecisionReject},
		{1.0, DecisionReject},
	}
	for _, tc := range cases {
		if got := Decide(tc.score, thresholds); got != tc.want {
			t.Fatalf("Decide(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestFinalScoreRiskOnlyPassthrough(t *testing.T) {
	got := FinalScore(ScoreSet{Risk: floatPtr(0.10)}, DefaultFinalScoreWeights())
	if got != 0.10 {
		t.Fatalf("FinalScore(risk only) = %v, want 0.10", got)
	}
}

func TestFinalScoreWeightedCombination(t *testing.T) {
	// Scenario values from the escalated path: risk 0.65, nsfw 0.90,
	// violence 0.10 with default weights combine to 0.92.
	got := FinalScore(ScoreSet{
		Risk:     floatPtr(0.65),
		NSFW:     floatPtr(0.90),
		Violence: floatPtr(0.10),
	}, DefaultFinalScoreWeights())
	if got < 0.919 || got > 0.921 {
		t.Fatalf("FinalScore() = %v, want 0.92", got)
	}
}

func TestFinalScoreClamped(t *testing.T) {
	got := FinalScore(ScoreSet{
		Risk:     floatPtr(1.0),
		NSFW:     floatPtr(1.0),
		Violence: floatPtr(1.0),
	}, DefaultFinalScoreWeights())
	if got != 1.0 {
		t.Fatalf("FinalScore() = %v, want clamp to 1.0", got)
	}
}

func TestDecisionStatusFor(t *testing.T) {
	if got := DecisionApprove.StatusFor(); got != StatusApproved {
		t.Fatalf("StatusFor(approve) = %s", got)
	}
	if got := DecisionReject.StatusFor(); got != StatusRejected {
		t.Fatalf("StatusFor(reject) = %s", got)
	}
	if got := DecisionReview.StatusFor(); got != StatusReview {
		t.Fatalf("StatusFor(review) = %s", got)
	}
}
