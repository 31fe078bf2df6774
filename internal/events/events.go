// Package events persists the raw food, sleep and workout log and exposes it
// both as typed entries for the API surface and as a flat event stream for
// fingerprinting and aggregation.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"yourbody/internal/core"
)

// ErrNotFound is returned when an entry does not exist or belongs to another
// user.
var ErrNotFound = errors.New("entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS food_entries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        INTEGER NOT NULL,
	entry_date     TEXT    NOT NULL,
	entry_time     TEXT    NOT NULL,
	description    TEXT    NOT NULL,
	categories     TEXT,
	raw_input      TEXT    NOT NULL DEFAULT '',
	source         TEXT    NOT NULL DEFAULT 'webapp',
	hunger_before  INTEGER,
	fullness_after INTEGER,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_food_user_date ON food_entries(user_id, entry_date);

CREATE TABLE IF NOT EXISTS sleep_entries (
	user_id    INTEGER NOT NULL,
	entry_date TEXT    NOT NULL,
	score      INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, entry_date)
);

CREATE TABLE IF NOT EXISTS workout_entries (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	entry_date   TEXT    NOT NULL,
	kind         TEXT    NOT NULL DEFAULT 'other',
	duration_min INTEGER NOT NULL DEFAULT 0,
	notes        TEXT    NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workout_user_date ON workout_entries(user_id, entry_date);
`

// Store reads and writes logged entries in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates the log tables if needed and returns a store over db.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create event tables: %w", err)
	}
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// AddFood inserts a meal and fills in the entry's ID and timestamps.
func (s *Store) AddFood(ctx context.Context, entry *core.FoodEntry) error {
	now := s.now()
	var categories any
	if entry.Categories != nil {
		raw, err := json.Marshal(entry.Categories)
		if err != nil {
			return fmt.Errorf("failed to encode categories: %w", err)
		}
		categories = string(raw)
	}
	if entry.Source == "" {
		entry.Source = "webapp"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO food_entries
			(user_id, entry_date, entry_time, description, categories, raw_input, source, hunger_before, fullness_after, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.EntryDate, entry.EntryTime, entry.Description, categories,
		entry.RawInput, entry.Source, entry.HungerBefore, entry.FullnessAfter,
		now.UnixMicro(), now.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to insert food entry: %w", err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read food entry id: %w", err)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// UpdateFoodFeelings sets the hunger/fullness scores on an existing meal and
// bumps its modification time.
func (s *Store) UpdateFoodFeelings(ctx context.Context, userID, id int64, hungerBefore, fullnessAfter *int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE food_entries
		SET hunger_before = ?, fullness_after = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		hungerBefore, fullnessAfter, s.now().UnixMicro(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update food entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check food update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFood removes a meal owned by userID.
func (s *Store) DeleteFood(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM food_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete food entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check food delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FoodByDate lists a user's meals for one local date, earliest first.
func (s *Store) FoodByDate(ctx context.Context, userID int64, date string) ([]core.FoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, entry_date, entry_time, description, categories, raw_input, source, hunger_before, fullness_after, created_at, updated_at
		FROM food_entries
		WHERE user_id = ? AND entry_date = ?
		ORDER BY entry_time, id`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query food entries: %w", err)
	}
	defer rows.Close()

	var entries []core.FoodEntry
	for rows.Next() {
		entry, err := scanFood(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FoodDatesBetween lists the distinct dates in [start, end] that have at
// least one meal logged, for the calendar view.
func (s *Store) FoodDatesBetween(ctx context.Context, userID int64, start, end string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT entry_date FROM food_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query food dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan food date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// UpsertSleep records the nightly score for a date, replacing any previous
// score for the same night.
func (s *Store) UpsertSleep(ctx context.Context, entry *core.SleepEntry) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sleep_entries (user_id, entry_date, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, entry_date) DO UPDATE SET
			score = excluded.score,
			updated_at = excluded.updated_at`,
		entry.UserID, entry.EntryDate, entry.Score, now.UnixMicro(), now.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to upsert sleep entry: %w", err)
	}
	entry.UpdatedAt = now
	return nil
}

// SleepByDate returns the sleep entry for one date, or nil when none was
// logged.
func (s *Store) SleepByDate(ctx context.Context, userID int64, date string) (*core.SleepEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, entry_date, score, created_at, updated_at
		FROM sleep_entries WHERE user_id = ? AND entry_date = ?`, userID, date)

	var entry core.SleepEntry
	var created, updated int64
	err := row.Scan(&entry.UserID, &entry.EntryDate, &entry.Score, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sleep entry: %w", err)
	}
	entry.CreatedAt = time.UnixMicro(created).UTC()
	entry.UpdatedAt = time.UnixMicro(updated).UTC()
	return &entry, nil
}

// AddWorkout inserts a training session and fills in its ID and timestamps.
func (s *Store) AddWorkout(ctx context.Context, entry *core.WorkoutEntry) error {
	now := s.now()
	if entry.Kind == "" {
		entry.Kind = "other"
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO workout_entries (user_id, entry_date, kind, duration_min, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.EntryDate, entry.Kind, entry.DurationMin, entry.Notes,
		now.UnixMicro(), now.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to insert workout: %w", err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read workout id: %w", err)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// HasWorkout reports whether the user logged any training on a date.
func (s *Store) HasWorkout(ctx context.Context, userID int64, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workout_entries WHERE user_id = ? AND entry_date = ?`,
		userID, date).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count workouts: %w", err)
	}
	return n > 0, nil
}

// ListEvents flattens every logged entry with a date in [start, end] into the
// read-only event stream, ordered by occurrence time. Event IDs are stable
// across reads so fingerprints only move when the underlying rows do.
func (s *Store) ListEvents(ctx context.Context, userID int64, loc *time.Location, start, end string) ([]core.RawEvent, error) {
	var events []core.RawEvent

	foods, err := s.foodBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, entry := range foods {
		ev, err := foodEvent(entry, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	sleeps, err := s.sleepBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, entry := range sleeps {
		ev, err := sleepEvent(entry, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	workouts, err := s.workoutsBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, entry := range workouts {
		ev, err := workoutEvent(entry, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *Store) foodBetween(ctx context.Context, userID int64, start, end string) ([]core.FoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, entry_date, entry_time, description, categories, raw_input, source, hunger_before, fullness_after, created_at, updated_at
		FROM food_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, entry_time, id`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query food entries: %w", err)
	}
	defer rows.Close()

	var entries []core.FoodEntry
	for rows.Next() {
		entry, err := scanFood(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) sleepBetween(ctx context.Context, userID int64, start, end string) ([]core.SleepEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, entry_date, score, created_at, updated_at
		FROM sleep_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query sleep entries: %w", err)
	}
	defer rows.Close()

	var entries []core.SleepEntry
	for rows.Next() {
		var entry core.SleepEntry
		var created, updated int64
		if err := rows.Scan(&entry.UserID, &entry.EntryDate, &entry.Score, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan sleep entry: %w", err)
		}
		entry.CreatedAt = time.UnixMicro(created).UTC()
		entry.UpdatedAt = time.UnixMicro(updated).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) workoutsBetween(ctx context.Context, userID int64, start, end string) ([]core.WorkoutEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, entry_date, kind, duration_min, notes, created_at, updated_at
		FROM workout_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, id`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query workouts: %w", err)
	}
	defer rows.Close()

	var entries []core.WorkoutEntry
	for rows.Next() {
		var entry core.WorkoutEntry
		var created, updated int64
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.EntryDate, &entry.Kind,
			&entry.DurationMin, &entry.Notes, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		entry.CreatedAt = time.UnixMicro(created).UTC()
		entry.UpdatedAt = time.UnixMicro(updated).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanFood(rows *sql.Rows) (core.FoodEntry, error) {
	var entry core.FoodEntry
	var categories sql.NullString
	var hunger, fullness sql.NullInt64
	var created, updated int64
	err := rows.Scan(&entry.ID, &entry.UserID, &entry.EntryDate, &entry.EntryTime,
		&entry.Description, &categories, &entry.RawInput, &entry.Source,
		&hunger, &fullness, &created, &updated)
	if err != nil {
		return core.FoodEntry{}, fmt.Errorf("failed to scan food entry: %w", err)
	}
	if categories.Valid && categories.String != "" {
		var c core.FoodCategories
		if err := json.Unmarshal([]byte(categories.String), &c); err != nil {
			return core.FoodEntry{}, fmt.Errorf("failed to decode categories: %w", err)
		}
		entry.Categories = &c
	}
	if hunger.Valid {
		v := int(hunger.Int64)
		entry.HungerBefore = &v
	}
	if fullness.Valid {
		v := int(fullness.Int64)
		entry.FullnessAfter = &v
	}
	entry.CreatedAt = time.UnixMicro(created).UTC()
	entry.UpdatedAt = time.UnixMicro(updated).UTC()
	return entry, nil
}

func foodEvent(entry core.FoodEntry, loc *time.Location) (core.RawEvent, error) {
	occurred, err := time.ParseInLocation("2006-01-02 15:04", entry.EntryDate+" "+entry.EntryTime, loc)
	if err != nil {
		// Entries written before HH:MM validation may carry junk times.
		occurred, err = time.ParseInLocation("2006-01-02", entry.EntryDate, loc)
		if err != nil {
			return core.RawEvent{}, fmt.Errorf("failed to parse food entry time: %w", err)
		}
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return core.RawEvent{}, fmt.Errorf("failed to encode food event: %w", err)
	}
	return core.RawEvent{
		ID:           fmt.Sprintf("food/%d", entry.ID),
		Kind:         core.EventFood,
		OccurredAt:   occurred,
		LastModified: entry.UpdatedAt,
		Payload:      payload,
	}, nil
}

func sleepEvent(entry core.SleepEntry, loc *time.Location) (core.RawEvent, error) {
	occurred, err := time.ParseInLocation("2006-01-02", entry.EntryDate, loc)
	if err != nil {
		return core.RawEvent{}, fmt.Errorf("failed to parse sleep entry date: %w", err)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return core.RawEvent{}, fmt.Errorf("failed to encode sleep event: %w", err)
	}
	return core.RawEvent{
		ID:           fmt.Sprintf("sleep/%s", entry.EntryDate),
		Kind:         core.EventSleep,
		OccurredAt:   occurred,
		LastModified: entry.UpdatedAt,
		Payload:      payload,
	}, nil
}

func workoutEvent(entry core.WorkoutEntry, loc *time.Location) (core.RawEvent, error) {
	occurred, err := time.ParseInLocation("2006-01-02", entry.EntryDate, loc)
	if err != nil {
		return core.RawEvent{}, fmt.Errorf("failed to parse workout date: %w", err)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return core.RawEvent{}, fmt.Errorf("failed to encode workout event: %w", err)
	}
	return core.RawEvent{
		ID:           fmt.Sprintf("workout/%d", entry.ID),
		Kind:         core.EventWorkout,
		OccurredAt:   occurred,
		LastModified: entry.UpdatedAt,
		Payload:      payload,
	}, nil
}
