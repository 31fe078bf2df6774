// Package profile persists per-user onboarding choices and notification
// settings.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"yourbody/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id               INTEGER PRIMARY KEY,
	goal                  TEXT    NOT NULL DEFAULT 'maintain',
	training_type         TEXT    NOT NULL DEFAULT '',
	activity_level        TEXT    NOT NULL DEFAULT '',
	food_tracker_enabled  INTEGER NOT NULL DEFAULT 0,
	sleep_tracker_enabled INTEGER NOT NULL DEFAULT 0,
	weekly_review_enabled INTEGER NOT NULL DEFAULT 0,
	evening_summary_time  TEXT    NOT NULL DEFAULT '21:00',
	morning_question_time TEXT    NOT NULL DEFAULT '08:00',
	tz_offset_minutes     INTEGER NOT NULL DEFAULT 180,
	onboarding_completed  INTEGER NOT NULL DEFAULT 0,
	created_at            INTEGER NOT NULL,
	updated_at            INTEGER NOT NULL
);
`

// Store reads and writes user profiles in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates the profile table if needed and returns a store over db.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create profile table: %w", err)
	}
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get returns the user's profile. When the user has never saved one, the
// defaults are returned and found is false.
func (s *Store) Get(ctx context.Context, userID int64) (profile core.UserProfile, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, goal, training_type, activity_level,
			food_tracker_enabled, sleep_tracker_enabled, weekly_review_enabled,
			evening_summary_time, morning_question_time, tz_offset_minutes,
			onboarding_completed, created_at, updated_at
		FROM user_profiles WHERE user_id = ?`, userID)

	var created, updated int64
	err = row.Scan(&profile.UserID, &profile.Goal, &profile.TrainingType, &profile.ActivityLevel,
		&profile.FoodTrackerEnabled, &profile.SleepTrackerEnabled, &profile.WeeklyReviewEnabled,
		&profile.EveningSummaryTime, &profile.MorningQuestionTime, &profile.TZOffsetMinutes,
		&profile.OnboardingCompleted, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultProfile(userID), false, nil
	}
	if err != nil {
		return core.UserProfile{}, false, fmt.Errorf("failed to query profile: %w", err)
	}
	profile.CreatedAt = time.UnixMicro(created).UTC()
	profile.UpdatedAt = time.UnixMicro(updated).UTC()
	return profile, true, nil
}

// Save upserts the whole profile row. The first save sets created_at; later
// saves only move updated_at.
func (s *Store) Save(ctx context.Context, profile *core.UserProfile) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles
			(user_id, goal, training_type, activity_level,
			 food_tracker_enabled, sleep_tracker_enabled, weekly_review_enabled,
			 evening_summary_time, morning_question_time, tz_offset_minutes,
			 onboarding_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			goal = excluded.goal,
			training_type = excluded.training_type,
			activity_level = excluded.activity_level,
			food_tracker_enabled = excluded.food_tracker_enabled,
			sleep_tracker_enabled = excluded.sleep_tracker_enabled,
			weekly_review_enabled = excluded.weekly_review_enabled,
			evening_summary_time = excluded.evening_summary_time,
			morning_question_time = excluded.morning_question_time,
			tz_offset_minutes = excluded.tz_offset_minutes,
			onboarding_completed = excluded.onboarding_completed,
			updated_at = excluded.updated_at`,
		profile.UserID, profile.Goal, profile.TrainingType, profile.ActivityLevel,
		profile.FoodTrackerEnabled, profile.SleepTrackerEnabled, profile.WeeklyReviewEnabled,
		profile.EveningSummaryTime, profile.MorningQuestionTime, profile.TZOffsetMinutes,
		profile.OnboardingCompleted, now.UnixMicro(), now.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	profile.UpdatedAt = now
	return nil
}
