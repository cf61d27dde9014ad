package moderation

import "fmt"

// Status is the Video Record lifecycle state. Transitions form a DAG: a
// record never revisits a state once it has left it, and the store enforces
// the table below through conditional updates keyed on the expected prior
// status.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusScreened Status = "screened"
	StatusAnalyzed Status = "analyzed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusReview   Status = "review"
	StatusFailed   Status = "failed"
)

var allowedTransitions = map[Status][]Status{
	StatusUploaded: {StatusScreened, StatusFailed},
	StatusScreened: {StatusAnalyzed, StatusApproved, StatusRejected, StatusReview, StatusFailed},
	StatusAnalyzed: {StatusApproved, StatusRejected, StatusReview, StatusFailed},
	StatusReview:   {StatusApproved, StatusRejected, StatusFailed},
}

func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	switch status {
	case StatusUploaded, StatusScreened, StatusAnalyzed, StatusApproved, StatusRejected, StatusReview, StatusFailed:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// IsTerminal reports whether no further pipeline transition can occur.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusFailed
}

// CanTransition reports whether moving from one status to the next is legal.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
