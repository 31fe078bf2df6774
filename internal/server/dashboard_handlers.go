package server

import (
	"net/http"
)

// handleDashboard aggregates the mini-app home screen in one call: today's
// meals, tonight's sleep score and whether a workout was logged.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	date := s.localToday(r, userID)

	profile, _, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to load profile", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	foods, err := s.events.FoodByDate(r.Context(), userID, date)
	if err != nil {
		s.log.Error("failed to load food entries", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	sleep, err := s.events.SleepByDate(r.Context(), userID, date)
	if err != nil {
		s.log.Error("failed to load sleep entry", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	hasWorkout, err := s.events.HasWorkout(r.Context(), userID, date)
	if err != nil {
		s.log.Error("failed to check workouts", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	var sleepScore *int
	if sleep != nil {
		sleepScore = &sleep.Score
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"date":                 date,
		"food_count":           len(foods),
		"sleep_score":          sleepScore,
		"has_workout":          hasWorkout,
		"goal":                 profile.Goal,
		"onboarding_completed": profile.OnboardingCompleted,
	})
}
