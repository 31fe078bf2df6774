package server

import (
	"encoding/json"
	"net/http"
	"time"

	"yourbody/internal/core"
	"yourbody/internal/period"
)

// SleepRequest records the nightly 1-5 score for a date.
type SleepRequest struct {
	Date  string `json:"date,omitempty"` // defaults to user-local today
	Score int    `json:"score"`
}

func (s *Server) handleSleepToday(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	date := s.localToday(r, userID)

	entry, err := s.events.SleepByDate(r.Context(), userID, date)
	if err != nil {
		s.log.Error("failed to load sleep entry", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load sleep entry")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"entry": entry,
	})
}

func (s *Server) handleSleepSave(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req SleepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Score < 1 || req.Score > 5 {
		s.respondError(w, http.StatusBadRequest, "score must be between 1 and 5")
		return
	}
	date := req.Date
	if date == "" {
		date = s.localToday(r, userID)
	} else if _, err := time.Parse(period.DateLayout, date); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry := core.SleepEntry{UserID: userID, EntryDate: date, Score: req.Score}
	if err := s.events.UpsertSleep(r.Context(), &entry); err != nil {
		s.log.Error("failed to save sleep entry", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to save sleep entry")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"entry": entry})
}
