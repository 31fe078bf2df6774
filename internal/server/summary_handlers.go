package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yourbody/internal/core"
	"yourbody/internal/period"
)

// SummaryResponse is the daily summary envelope.
type SummaryResponse struct {
	Date         string          `json:"date"`
	Summary      json.RawMessage `json:"summary"`
	Status       string          `json:"status"`
	Cached       bool            `json:"cached"`
	Message      string          `json:"message,omitempty"`
	Recalculated bool            `json:"recalculated,omitempty"`
}

// WeeklyResponse is the weekly summary envelope.
type WeeklyResponse struct {
	WeekStart string          `json:"week_start"`
	Summary   json.RawMessage `json:"summary"`
	Status    string          `json:"status"`
	Cached    bool            `json:"cached"`
	Message   string          `json:"message,omitempty"`
}

func (s *Server) handleSummaryToday(w http.ResponseWriter, r *http.Request) {
	s.serveDaily(w, r, "", false)
}

func (s *Server) handleSummaryByDate(w http.ResponseWriter, r *http.Request) {
	s.serveDaily(w, r, chi.URLParam(r, "date"), false)
}

func (s *Server) handleSummaryRecalculate(w http.ResponseWriter, r *http.Request) {
	s.serveDaily(w, r, "", true)
}

func (s *Server) serveDaily(w http.ResponseWriter, r *http.Request, refDate string, force bool) {
	userID := UserID(r.Context())
	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	res, err := s.summaries.GetSummary(r.Context(), userID, core.PeriodDay, refDate, profile.TZOffsetMinutes, force)
	if err != nil {
		var invalid *period.InvalidPeriodError
		if errors.As(err, &invalid) {
			s.respondError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		s.log.Error("failed to get daily summary", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to get summary")
		return
	}

	s.respondJSON(w, http.StatusOK, SummaryResponse{
		Date:         res.Artifact.Key.Start,
		Summary:      res.Artifact.Payload,
		Status:       string(res.Artifact.Status),
		Cached:       res.Cached,
		Message:      res.Message,
		Recalculated: force,
	})
}

func (s *Server) handleWeeklyCurrent(w http.ResponseWriter, r *http.Request) {
	s.serveWeekly(w, r, "")
}

func (s *Server) handleWeeklyByStart(w http.ResponseWriter, r *http.Request) {
	s.serveWeekly(w, r, chi.URLParam(r, "week_start"))
}

func (s *Server) serveWeekly(w http.ResponseWriter, r *http.Request, refDate string) {
	userID := UserID(r.Context())
	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	res, err := s.summaries.GetSummary(r.Context(), userID, core.PeriodWeek, refDate, profile.TZOffsetMinutes, false)
	if err != nil {
		var invalid *period.InvalidPeriodError
		if errors.As(err, &invalid) {
			s.respondError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		s.log.Error("failed to get weekly summary", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to get summary")
		return
	}

	s.respondJSON(w, http.StatusOK, WeeklyResponse{
		WeekStart: res.Artifact.Key.Start,
		Summary:   res.Artifact.Payload,
		Status:    string(res.Artifact.Status),
		Cached:    res.Cached,
		Message:   res.Message,
	})
}
