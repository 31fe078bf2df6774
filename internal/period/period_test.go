package period

import (
	"errors"
	"testing"
	"time"

	"yourbody/internal/core"
)

// 2025-01-18 was a Saturday.
var testNow = time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)

func TestResolveDay(t *testing.T) {
	key, err := Resolve(core.PeriodDay, "2025-01-15", 180, testNow)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if key.Start != "2025-01-15" {
		t.Errorf("Expected start 2025-01-15, got %s", key.Start)
	}
	if key.Type != core.PeriodDay {
		t.Errorf("Expected day period, got %s", key.Type)
	}
	if key.TZOffsetMinutes != 180 {
		t.Errorf("Expected offset 180, got %d", key.TZOffsetMinutes)
	}
}

func TestResolveDay_DefaultsToLocalToday(t *testing.T) {
	// 23:30 UTC on the 18th is already the 19th at UTC+3.
	now := time.Date(2025, 1, 18, 23, 30, 0, 0, time.UTC)
	key, err := Resolve(core.PeriodDay, "", 180, now)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if key.Start != "2025-01-19" {
		t.Errorf("Expected local today 2025-01-19, got %s", key.Start)
	}
}

func TestResolveWeek_MondayStart(t *testing.T) {
	cases := []struct {
		ref  string
		want string
	}{
		{"2025-01-13", "2025-01-13"}, // Monday resolves to itself
		{"2025-01-15", "2025-01-13"}, // Wednesday
		{"2025-01-12", "2025-01-06"}, // Sunday belongs to the prior Monday's week
	}
	for _, tc := range cases {
		key, err := Resolve(core.PeriodWeek, tc.ref, 0, testNow)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", tc.ref, err)
		}
		if key.Start != tc.want {
			t.Errorf("Resolve(%s): expected week start %s, got %s", tc.ref, tc.want, key.Start)
		}
	}
}

func TestResolve_FutureDateRejected(t *testing.T) {
	_, err := Resolve(core.PeriodDay, "2025-01-19", 0, testNow)
	if err == nil {
		t.Fatal("Expected error for future date")
	}
	var invalidErr *InvalidPeriodError
	if !errors.As(err, &invalidErr) {
		t.Errorf("Expected InvalidPeriodError, got %T", err)
	}
}

func TestResolve_FutureCheckUsesLocalTime(t *testing.T) {
	// At UTC+14 it is already 2025-01-19 when UTC still reads the 18th, so
	// the 19th must be accepted for that offset.
	now := time.Date(2025, 1, 18, 22, 0, 0, 0, time.UTC)
	if _, err := Resolve(core.PeriodDay, "2025-01-19", 14*60, now); err != nil {
		t.Errorf("Expected 2025-01-19 to be valid at UTC+14, got %v", err)
	}
	if _, err := Resolve(core.PeriodDay, "2025-01-19", 0, now); err == nil {
		t.Error("Expected 2025-01-19 to be rejected at UTC+0")
	}
}

func TestResolve_MalformedDate(t *testing.T) {
	_, err := Resolve(core.PeriodDay, "18.01.2025", 0, testNow)
	var invalidErr *InvalidPeriodError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("Expected InvalidPeriodError, got %v", err)
	}
}

func TestResolve_UnknownPeriodType(t *testing.T) {
	_, err := Resolve(core.PeriodType("month"), "2025-01-15", 0, testNow)
	var invalidErr *InvalidPeriodError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("Expected InvalidPeriodError, got %v", err)
	}
}

func TestBounds(t *testing.T) {
	key := core.PeriodKey{UserID: 1, Type: core.PeriodWeek, Start: "2025-01-13", TZOffsetMinutes: 180}
	start, end, err := Bounds(key)
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if got := end.Sub(start); got != 7*24*time.Hour {
		t.Errorf("Expected 7 day span, got %v", got)
	}
	if start.Format(DateLayout) != "2025-01-13" {
		t.Errorf("Expected start 2025-01-13, got %s", start.Format(DateLayout))
	}
}

func TestDays(t *testing.T) {
	key := core.PeriodKey{Type: core.PeriodWeek, Start: "2025-01-13"}
	days, err := Days(key)
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(days))
	}
	if days[0] != "2025-01-13" || days[6] != "2025-01-19" {
		t.Errorf("Unexpected day range: %v", days)
	}

	dayKey := core.PeriodKey{Type: core.PeriodDay, Start: "2025-01-15"}
	days, err = Days(dayKey)
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if len(days) != 1 || days[0] != "2025-01-15" {
		t.Errorf("Expected single day 2025-01-15, got %v", days)
	}
}

func TestIsCurrentDay(t *testing.T) {
	key := core.PeriodKey{Type: core.PeriodDay, Start: "2025-01-18", TZOffsetMinutes: 0}
	if !IsCurrentDay(key, testNow) {
		t.Error("Expected 2025-01-18 to be the current day")
	}
	past := core.PeriodKey{Type: core.PeriodDay, Start: "2025-01-17", TZOffsetMinutes: 0}
	if IsCurrentDay(past, testNow) {
		t.Error("Expected 2025-01-17 not to be the current day")
	}
	week := core.PeriodKey{Type: core.PeriodWeek, Start: "2025-01-13", TZOffsetMinutes: 0}
	if IsCurrentDay(week, testNow) {
		t.Error("Week keys are never the current day")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	a, err := Resolve(core.PeriodWeek, "2025-01-15", 180, testNow)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b, err := Resolve(core.PeriodWeek, "2025-01-15", 180, testNow)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a != b {
		t.Errorf("Resolve is not deterministic: %v vs %v", a, b)
	}
}
