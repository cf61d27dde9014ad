package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/errs"
	"guardian/internal/ports"
	"guardian/internal/usecase/pipeline"
)

// Server exposes the human-review API plus health and metrics endpoints.
type Server struct {
	service *pipeline.Service
	http    *http.Server
}

func New(addr string, service *pipeline.Service) *Server {
	s := &Server{service: service}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1/review", func(r chi.Router) {
		r.Get("/queue", s.handleReviewQueue)
		r.Post("/{videoID}", s.handleSubmitVerdict)
	})
	r.Get("/api/v1/videos/{videoID}", s.handleGetVideo)
	r.Get("/api/v1/videos/{videoID}/events", s.handleGetEvents)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Start(ctx context.Context) error {
	logging.Info(ctx, "review api listening", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errs.Wrap(err, "serve review api")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type reviewItemResponse struct {
	VideoID       string   `json:"video_id"`
	RiskScore     *float64 `json:"risk_score,omitempty"`
	NSFWScore     *float64 `json:"nsfw_score,omitempty"`
	ViolenceScore *float64 `json:"violence_score,omitempty"`
	FinalScore    *float64 `json:"final_score,omitempty"`
	EnteredAt     string   `json:"entered_at"`
	Deadline      string   `json:"deadline"`
	WaitingSecs   float64  `json:"waiting_seconds"`
	Overdue       bool     `json:"overdue"`
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListPendingReviews(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]reviewItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, reviewItemResponse{
			VideoID:       item.VideoID,
			RiskScore:     item.RiskScore,
			NSFWScore:     item.NSFWScore,
			ViolenceScore: item.ViolenceScore,
			FinalScore:    item.FinalScore,
			EnteredAt:     item.EnteredAt.Format(time.RFC3339),
			Deadline:      item.Deadline.Format(time.RFC3339),
			WaitingSecs:   item.Waiting.Seconds(),
			Overdue:       item.Overdue,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

type verdictRequest struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

type recordResponse struct {
	VideoID       string   `json:"video_id"`
	Status        string   `json:"status"`
	Decision      string   `json:"decision"`
	RiskScore     *float64 `json:"risk_score,omitempty"`
	NSFWScore     *float64 `json:"nsfw_score,omitempty"`
	ViolenceScore *float64 `json:"violence_score,omitempty"`
	FinalScore    *float64 `json:"final_score,omitempty"`
	HumanReviewed bool     `json:"human_reviewed"`
	ReviewerNotes string   `json:"reviewer_notes,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
	UploadedAt    string   `json:"uploaded_at"`
}

func (s *Server) handleSubmitVerdict(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	var req verdictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	record, err := s.service.SubmitVerdict(r.Context(), pipeline.VerdictInput{
		VideoID:  videoID,
		Approved: req.Approved,
		Reviewer: req.Reviewer,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.Record(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.History(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	type eventResponse struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Payload   map[string]any `json:"payload,omitempty"`
		CreatedAt string         `json:"created_at"`
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			EventID:   e.EventID,
			EventType: e.EventType,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListPendingReviews(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"review_queue": len(items),
	})
}

func toRecordResponse(record ports.VideoRecord) recordResponse {
	return recordResponse{
		VideoID:       record.VideoID,
		Status:        string(record.Status),
		Decision:      string(record.Decision),
		RiskScore:     record.RiskScore,
		NSFWScore:     record.NSFWScore,
		ViolenceScore: record.ViolenceScore,
		FinalScore:    record.FinalScore,
		HumanReviewed: record.HumanReviewed,
		ReviewerNotes: record.ReviewerNotes,
		FailureReason: record.FailureReason,
		UploadedAt:    record.UploadedAt.Format(time.RFC3339),
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, moderation.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, moderation.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, moderation.ErrNotesTooLong):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
