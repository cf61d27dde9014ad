package moderation

import "errors"

var (
	ErrRecordNotFound = errors.New("video record not found")
	ErrUnknownStatus  = errors.New("unknown video status")

	// ErrInvalidState signals a precondition mismatch on a conditional
	// update. With at-least-once delivery this is a successful duplicate,
	// not a failure; callers acknowledge and move on.
	ErrInvalidState = errors.New("record is not in the expected state")

	ErrScorerFailure = errors.New("scorer failed")
	ErrNoFrames      = errors.New("no frames sampled from artifact")

	ErrNotesTooLong = errors.New("reviewer notes exceed the allowed length")
)
