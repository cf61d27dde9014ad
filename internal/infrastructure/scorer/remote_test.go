package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

func TestRemoteScorerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", r.Header.Get("Authorization"))
		}
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Frames) != 2 {
			t.Errorf("frames = %d, want 2", len(req.Frames))
		}
		json.NewEncoder(w).Encode(scoreResponse{Score: 0.9})
	}))
	defer srv.Close()

	s := NewRemoteScorer("nsfw", srv.URL, "secret", time.Second)
	got, err := s.Score(context.Background(), []ports.Frame{{0x01}, {0x02}})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got != 0.9 {
		t.Fatalf("Score() = %v, want 0.9", got)
	}
}

func TestRemoteScorerServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewRemoteScorer("nsfw", srv.URL, "", time.Second)
	_, err := s.Score(context.Background(), []ports.Frame{{0x01}})
	if !errs.IsTransient(err) {
		t.Fatalf("Score() error = %v, want transient", err)
	}
}

func TestRemoteScorerClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewRemoteScorer("violence", srv.URL, "", time.Second)
	_, err := s.Score(context.Background(), []ports.Frame{{0x01}})
	if !errors.Is(err, moderation.ErrScorerFailure) {
		t.Fatalf("Score() error = %v, want %v", err, moderation.ErrScorerFailure)
	}
	if errs.IsTransient(err) {
		t.Fatalf("4xx responses must not be transient: %v", err)
	}
}

func TestRemoteScorerRejectsOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{Score: 1.7})
	}))
	defer srv.Close()

	s := NewRemoteScorer("nsfw", srv.URL, "", time.Second)
	if _, err := s.Score(context.Background(), []ports.Frame{{0x01}}); !errors.Is(err, moderation.ErrScorerFailure) {
		t.Fatalf("Score() error = %v, want %v", err, moderation.ErrScorerFailure)
	}
}
