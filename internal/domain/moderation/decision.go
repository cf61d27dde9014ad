package moderation

// Decision is the moderation outcome attached to a Video Record. It mirrors
// the terminal statuses but persists across human review: a record routed to
// review carries decision "review" until a verdict resolves it.
type Decision string

const (
	DecisionPending Decision = "pending"
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionReview  Decision = "review"
)

// Thresholds split the final score into three bands: scores strictly below
// Approve auto-approve, strictly above Reject auto-reject, and the closed
// interval in between goes to human review.
type Thresholds struct {
	Approve float64
	Reject  float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Approve: 0.2, Reject: 0.8}
}

// FinalScoreWeights combine the stage scores into the final score. They are
// configuration, not constants; only the decision thresholds are fixed
// policy.
type FinalScoreWeights struct {
	Risk     float64
	NSFW     float64
	Violence float64
}

func DefaultFinalScoreWeights() FinalScoreWeights {
	return FinalScoreWeights{Risk: 0.4, NSFW: 0.7, Violence: 0.3}
}

// ScoreSet holds whichever stage scores exist for a record. Nil means the
// producing stage has not run.
type ScoreSet struct {
	Risk     *float64
	NSFW     *float64
	Violence *float64
}

// FinalScore combines the available scores. The low-risk path carries only a
// risk score and passes it through unchanged; once deep analysis has run the
// weighted sum is clamped back into [0,1].
func FinalScore(scores ScoreSet, weights FinalScoreWeights) float64 {
	if scores.Risk != nil && scores.NSFW == nil && scores.Violence == nil {
		return Clamp01(*scores.Risk)
	}

	total := 0.0
	if scores.Risk != nil {
		total += weights.Risk * *scores.Risk
	}
	if scores.NSFW != nil {
		total += weights.NSFW * *scores.NSFW
	}
	if scores.Violence != nil {
		total += weights.Violence * *scores.Violence
	}
	return Clamp01(total)
}

// Decide applies the fixed thresholds. Both boundary values route to review:
// the auto bands are open intervals.
func Decide(finalScore float64, t Thresholds) Decision {
	switch {
	case finalScore < t.Approve:
		return DecisionApprove
	case finalScore > t.Reject:
		return DecisionReject
	default:
		return DecisionReview
	}
}

// StatusFor maps a decision to the record status it implies.
func (d Decision) StatusFor() Status {
	switch d {
	case DecisionApprove:
		return StatusApproved
	case DecisionReject:
		return StatusRejected
	default:
		return StatusReview
	}
}
