package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// PeriodType identifies the calendar granularity of a summary period.
type PeriodType string

const (
	PeriodDay  PeriodType = "day"
	PeriodWeek PeriodType = "week"
)

// PeriodKey identifies one summary period for one user. It is immutable once
// constructed; two keys are equal iff all fields match.
type PeriodKey struct {
	UserID          int64      `json:"user_id"`
	Type            PeriodType `json:"period_type"`
	Start           string     `json:"period_start"` // local calendar date, '2006-01-02'
	TZOffsetMinutes int        `json:"timezone_offset_minutes"`
}

// String renders the key in a stable form usable as a cache/lock key.
func (k PeriodKey) String() string {
	return fmt.Sprintf("%s:%d:%s:%d", k.Type, k.UserID, k.Start, k.TZOffsetMinutes)
}

// Location returns the fixed user-local zone the key was resolved in.
func (k PeriodKey) Location() *time.Location {
	return time.FixedZone("", k.TZOffsetMinutes*60)
}

// EventKind classifies a raw logged event.
type EventKind string

const (
	EventFood    EventKind = "food"
	EventSleep   EventKind = "sleep"
	EventWorkout EventKind = "workout"
)

// RawEvent is one logged event as read from the event store. The core treats
// events as read-only input to fingerprinting and aggregation.
type RawEvent struct {
	ID           string          `json:"id"`
	Kind         EventKind       `json:"kind"`
	OccurredAt   time.Time       `json:"occurred_at"`   // user-local time
	LastModified time.Time       `json:"last_modified"` // bumped on every edit
	Payload      json.RawMessage `json:"payload"`
}

// ArtifactStatus tags the outcome of a summary computation.
type ArtifactStatus string

const (
	StatusOK          ArtifactStatus = "ok"
	StatusPartial     ArtifactStatus = "partial"
	StatusError       ArtifactStatus = "error"
	StatusUnavailable ArtifactStatus = "unavailable"
)

// SummaryArtifact is the cached, generated result for one period. Artifacts
// are replaced on recomputation, never mutated in place.
type SummaryArtifact struct {
	ID          string          `json:"id"`
	Key         PeriodKey       `json:"period_key"`
	Fingerprint string          `json:"fingerprint"`
	GeneratedAt time.Time       `json:"generated_at"`
	Status      ArtifactStatus  `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
}

// DailySummary is the structured payload of a daily artifact.
type DailySummary struct {
	FoodsList   []string `json:"foods_list"`
	Analysis    string   `json:"analysis"`
	BalanceNote string   `json:"balance_note"`
	Suggestion  *string  `json:"suggestion"`
}

// WeeklySummary is the structured payload of a weekly artifact.
// SleepAverage is computed only over days that actually carry a sleep score;
// MissingDays lists the dates within the week that had no data at all.
type WeeklySummary struct {
	FoodDiversityByDay  map[string]string `json:"food_diversity_by_day"`
	SleepAverage        *float64          `json:"sleep_average"`
	Patterns            []string          `json:"patterns"`
	FoodSleepConnection *string           `json:"food_sleep_connection"`
	MissingDays         []string          `json:"missing_days"`
}

// FoodCategories buckets recognized products the way the nutrition prompts
// expect them.
type FoodCategories struct {
	ProteinsAnimal []string `json:"proteins_animal"`
	ProteinsPlant  []string `json:"proteins_plant"`
	Fats           []string `json:"fats"`
	CarbsSlow      []string `json:"carbs_slow"`
	CarbsFast      []string `json:"carbs_fast"`
	Vegetables     []string `json:"vegetables"`
}

// FoodAnalysis is the provider's interpretation of one food description.
type FoodAnalysis struct {
	Description string         `json:"description"`
	Products    []string       `json:"products"`
	Categories  FoodCategories `json:"categories"`
}

// FoodEntry is one logged meal.
type FoodEntry struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	EntryDate     string          `json:"entry_date"` // '2006-01-02'
	EntryTime     string          `json:"entry_time"` // 'HH:MM'
	Description   string          `json:"description"`
	Categories    *FoodCategories `json:"categories,omitempty"`
	RawInput      string          `json:"raw_input,omitempty"`
	Source        string          `json:"source"` // 'webapp' | 'telegram'
	HungerBefore  *int            `json:"hunger_before,omitempty"`  // 1-5
	FullnessAfter *int            `json:"fullness_after,omitempty"` // 1-5
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SleepEntry is the single nightly sleep score for a date. Scores range 1-5.
type SleepEntry struct {
	UserID    int64     `json:"user_id"`
	EntryDate string    `json:"entry_date"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkoutEntry is one logged training session.
type WorkoutEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	EntryDate   string    `json:"entry_date"`
	Kind        string    `json:"kind"` // e.g. 'run', 'strength', 'other'
	DurationMin int       `json:"duration_min"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserProfile holds onboarding choices and the notification/trigger settings
// the summary pipeline reads.
type UserProfile struct {
	UserID              int64     `json:"user_id"`
	Goal                string    `json:"goal"`           // 'maintain' | 'lose' | 'gain'
	TrainingType        string    `json:"training_type"`  // 'marathon' | 'own' | 'mixed'
	ActivityLevel       string    `json:"activity_level"` // 'active' | 'medium' | 'calm'
	FoodTrackerEnabled  bool      `json:"food_tracker_enabled"`
	SleepTrackerEnabled bool      `json:"sleep_tracker_enabled"`
	WeeklyReviewEnabled bool      `json:"weekly_review_enabled"`
	EveningSummaryTime  string    `json:"evening_summary_time"` // 'HH:MM', daily generation trigger
	MorningQuestionTime string    `json:"morning_question_time"`
	TZOffsetMinutes     int       `json:"timezone_offset"` // minutes east of UTC
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultProfile returns the settings a user has before onboarding.
func DefaultProfile(userID int64) UserProfile {
	return UserProfile{
		UserID:              userID,
		Goal:                "maintain",
		EveningSummaryTime:  "21:00",
		MorningQuestionTime: "08:00",
		TZOffsetMinutes:     180, // MSK, the bot's historical default
	}
}
