package profile

import (
	"context"
	"testing"

	"yourbody/internal/core"
	"yourbody/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store, err := NewStore(conn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestGetUnknownUserReturnsDefaults(t *testing.T) {
	store := newTestStore(t)

	profile, found, err := store.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("unknown user must not be found")
	}
	if profile.UserID != 99 || profile.Goal != "maintain" {
		t.Fatalf("defaults = %+v", profile)
	}
	if profile.EveningSummaryTime != "21:00" || profile.TZOffsetMinutes != 180 {
		t.Fatalf("defaults = %+v", profile)
	}
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := core.DefaultProfile(7)
	p.Goal = "lose"
	p.TrainingType = "marathon"
	p.FoodTrackerEnabled = true
	p.EveningSummaryTime = "22:30"
	p.TZOffsetMinutes = 120
	p.OnboardingCompleted = true
	if err := store.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("saved profile must be found")
	}
	if got.Goal != "lose" || got.TrainingType != "marathon" || !got.FoodTrackerEnabled {
		t.Fatalf("got %+v", got)
	}
	if got.EveningSummaryTime != "22:30" || got.TZOffsetMinutes != 120 || !got.OnboardingCompleted {
		t.Fatalf("got %+v", got)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := core.DefaultProfile(7)
	if err := store.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Goal = "gain"
	if err := store.Save(ctx, &p); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, _, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Goal != "gain" {
		t.Fatalf("goal = %q, want gain", got.Goal)
	}
}
