package server

import (
	"encoding/json"
	"net/http"
	"time"

	"yourbody/internal/core"
)

// OnboardingRequest is the full set of choices from the onboarding flow.
type OnboardingRequest struct {
	Goal                string `json:"goal"`
	TrainingType        string `json:"training_type"`
	ActivityLevel       string `json:"activity_level"`
	FoodTrackerEnabled  bool   `json:"food_tracker_enabled"`
	SleepTrackerEnabled bool   `json:"sleep_tracker_enabled"`
	WeeklyReviewEnabled bool   `json:"weekly_review_enabled"`
	EveningSummaryTime  string `json:"evening_summary_time,omitempty"`
	MorningQuestionTime string `json:"morning_question_time,omitempty"`
	TZOffsetMinutes     *int   `json:"timezone_offset,omitempty"`
}

// SettingsPatch carries the subset of settings a PATCH may change. Nil means
// leave unchanged.
type SettingsPatch struct {
	Goal                *string `json:"goal,omitempty"`
	FoodTrackerEnabled  *bool   `json:"food_tracker_enabled,omitempty"`
	SleepTrackerEnabled *bool   `json:"sleep_tracker_enabled,omitempty"`
	WeeklyReviewEnabled *bool   `json:"weekly_review_enabled,omitempty"`
	EveningSummaryTime  *string `json:"evening_summary_time,omitempty"`
	MorningQuestionTime *string `json:"morning_question_time,omitempty"`
	TZOffsetMinutes     *int    `json:"timezone_offset,omitempty"`
}

var validGoals = map[string]bool{"maintain": true, "lose": true, "gain": true}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	profile, found, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"profile":    profile,
		"registered": found,
	})
}

func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"completed": profile.OnboardingCompleted,
		"profile":   profile,
	})
}

func (s *Server) handleSaveOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validGoals[req.Goal] {
		s.respondError(w, http.StatusBadRequest, "goal must be one of maintain, lose, gain")
		return
	}

	profile := core.DefaultProfile(userID)
	profile.Goal = req.Goal
	profile.TrainingType = req.TrainingType
	profile.ActivityLevel = req.ActivityLevel
	profile.FoodTrackerEnabled = req.FoodTrackerEnabled
	profile.SleepTrackerEnabled = req.SleepTrackerEnabled
	profile.WeeklyReviewEnabled = req.WeeklyReviewEnabled
	profile.OnboardingCompleted = true
	if req.EveningSummaryTime != "" {
		if !validClock(req.EveningSummaryTime) {
			s.respondError(w, http.StatusBadRequest, "invalid evening_summary_time, expected HH:MM")
			return
		}
		profile.EveningSummaryTime = req.EveningSummaryTime
	}
	if req.MorningQuestionTime != "" {
		if !validClock(req.MorningQuestionTime) {
			s.respondError(w, http.StatusBadRequest, "invalid morning_question_time, expected HH:MM")
			return
		}
		profile.MorningQuestionTime = req.MorningQuestionTime
	}
	if req.TZOffsetMinutes != nil {
		profile.TZOffsetMinutes = *req.TZOffsetMinutes
	}

	if err := s.profiles.Save(r.Context(), &profile); err != nil {
		s.log.Error("failed to save profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var patch SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	if patch.Goal != nil {
		if !validGoals[*patch.Goal] {
			s.respondError(w, http.StatusBadRequest, "goal must be one of maintain, lose, gain")
			return
		}
		profile.Goal = *patch.Goal
	}
	if patch.FoodTrackerEnabled != nil {
		profile.FoodTrackerEnabled = *patch.FoodTrackerEnabled
	}
	if patch.SleepTrackerEnabled != nil {
		profile.SleepTrackerEnabled = *patch.SleepTrackerEnabled
	}
	if patch.WeeklyReviewEnabled != nil {
		profile.WeeklyReviewEnabled = *patch.WeeklyReviewEnabled
	}
	if patch.EveningSummaryTime != nil {
		if !validClock(*patch.EveningSummaryTime) {
			s.respondError(w, http.StatusBadRequest, "invalid evening_summary_time, expected HH:MM")
			return
		}
		profile.EveningSummaryTime = *patch.EveningSummaryTime
	}
	if patch.MorningQuestionTime != nil {
		if !validClock(*patch.MorningQuestionTime) {
			s.respondError(w, http.StatusBadRequest, "invalid morning_question_time, expected HH:MM")
			return
		}
		profile.MorningQuestionTime = *patch.MorningQuestionTime
	}
	if patch.TZOffsetMinutes != nil {
		profile.TZOffsetMinutes = *patch.TZOffsetMinutes
	}

	if err := s.profiles.Save(r.Context(), &profile); err != nil {
		s.log.Error("failed to save settings", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func validClock(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}
