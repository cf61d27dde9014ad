package moderation

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("screened")
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if got != StatusScreened {
		t.Fatalf("ParseStatus() = %q", got)
	}

	_, err = ParseStatus("gpu_queued")
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("ParseStatus() error = %v, want ErrUnknownStatus", err)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusUploaded, StatusScreened},
		{StatusScreened, StatusAnalyzed},
		{StatusScreened, StatusApproved},
		{StatusScreened, StatusReview},
		{StatusAnalyzed, StatusRejected},
		{StatusAnalyzed, StatusReview},
		{StatusReview, StatusApproved},
		{StatusReview, StatusRejected},
		{StatusUploaded, StatusFailed},
		{StatusAnalyzed, StatusFailed},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("CanTransition(%s, %s) = false, want true", pair[0], pair[1])
		}
	}

	denied := [][2]Status{
		{StatusUploaded, StatusAnalyzed},
		{StatusScreened, StatusUploaded},
		{StatusAnalyzed, StatusScreened},
		{StatusApproved, StatusRejected},
		{StatusRejected, StatusReview},
		{StatusFailed, StatusScreened},
		{StatusReview, StatusAnalyzed},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("CanTransition(%s, %s) = true, want false", pair[0], pair[1])
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []Status{StatusApproved, StatusRejected, StatusFailed} {
		if !status.IsTerminal() {
			t.Fatalf("IsTerminal(%s) = false", status)
		}
	}
	for _, status := range []Status{StatusUploaded, StatusScreened, StatusAnalyzed, StatusReview} {
		if status.IsTerminal() {
			t.Fatalf("IsTerminal(%s) = true", status)
		}
	}
}
