package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"yourbody/internal/core"
	"yourbody/internal/events"
	"yourbody/internal/period"
)

// FoodTextRequest is a meal logged as free text, optionally with an explicit
// time of day.
type FoodTextRequest struct {
	Text string `json:"text"`
	Date string `json:"date,omitempty"` // defaults to user-local today
	Time string `json:"time,omitempty"` // 'HH:MM', defaults to user-local now
}

// FeelingsRequest carries the 1-5 hunger/fullness scores.
type FeelingsRequest struct {
	HungerBefore  *int `json:"hunger_before"`
	FullnessAfter *int `json:"fullness_after"`
}

func (s *Server) handleFoodToday(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	s.serveFoodList(w, r, userID, s.localToday(r, userID))
}

func (s *Server) handleFoodByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(period.DateLayout, date); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	s.serveFoodList(w, r, UserID(r.Context()), date)
}

func (s *Server) serveFoodList(w http.ResponseWriter, r *http.Request, userID int64, date string) {
	entries, err := s.events.FoodByDate(r.Context(), userID, date)
	if err != nil {
		s.log.Error("failed to list food entries", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to list food entries")
		return
	}
	if entries == nil {
		entries = []core.FoodEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"entries": entries,
	})
}

func (s *Server) handleFoodText(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req FoodTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	loc := time.FixedZone("", profile.TZOffsetMinutes*60)
	localNow := time.Now().In(loc)

	date := req.Date
	if date == "" {
		date = localNow.Format(period.DateLayout)
	} else if _, err := time.Parse(period.DateLayout, date); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	clock := req.Time
	if clock == "" {
		clock = localNow.Format("15:04")
	} else if _, err := time.Parse("15:04", clock); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid time, expected HH:MM")
		return
	}

	// A failed classification still records the meal with the raw text.
	result, analysisErr := s.analyzer.AnalyzeFoodText(r.Context(), req.Text)
	if analysisErr != nil {
		s.log.Warn("food text analysis degraded", "error", analysisErr.Error(), "user_id", userID)
	}

	entry := core.FoodEntry{
		UserID:      userID,
		EntryDate:   date,
		EntryTime:   clock,
		Description: result.Description,
		RawInput:    req.Text,
		Source:      "webapp",
	}
	if analysisErr == nil {
		entry.Categories = &result.Categories
	}
	if err := s.events.AddFood(r.Context(), &entry); err != nil {
		s.log.Error("failed to save food entry", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to save food entry")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"entry":    entry,
		"products": result.Products,
		"analyzed": analysisErr == nil,
	})
}

func (s *Server) handleFoodDelete(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	if err := s.events.DeleteFood(r.Context(), userID, id); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.log.Error("failed to delete food entry", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to delete food entry")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleFoodFeelings(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	var req FeelingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, score := range []*int{req.HungerBefore, req.FullnessAfter} {
		if score != nil && (*score < 1 || *score > 5) {
			s.respondError(w, http.StatusBadRequest, "scores must be between 1 and 5")
			return
		}
	}

	if err := s.events.UpdateFoodFeelings(r.Context(), userID, id, req.HungerBefore, req.FullnessAfter); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.log.Error("failed to update feelings", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to update feelings")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleFoodCalendar(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		s.respondError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		s.respondError(w, http.StatusBadRequest, "invalid month")
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	dates, err := s.events.FoodDatesBetween(r.Context(), userID,
		first.Format(period.DateLayout), last.Format(period.DateLayout))
	if err != nil {
		s.log.Error("failed to load food calendar", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load calendar")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"month": fmt.Sprintf("%04d-%02d", year, month),
		"days":  dates,
	})
}

// localToday resolves the user's current local date from their stored
// timezone offset.
func (s *Server) localToday(r *http.Request, userID int64) string {
	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		return time.Now().UTC().Format(period.DateLayout)
	}
	loc := time.FixedZone("", profile.TZOffsetMinutes*60)
	return time.Now().In(loc).Format(period.DateLayout)
}
