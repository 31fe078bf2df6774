package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yourbody/internal/analysis"
	"yourbody/internal/cache"
	"yourbody/internal/config"
	"yourbody/internal/db"
	"yourbody/internal/events"
	"yourbody/internal/profile"
	"yourbody/internal/summary"
)

// scriptedGenerator answers each prompt family with canned JSON.
type scriptedGenerator struct{}

func (scriptedGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "Analyze a food description"):
		return `{"description":"buckwheat with chicken","products":["buckwheat","chicken"],"categories":{"proteins_animal":["chicken"],"proteins_plant":[],"fats":[],"carbs_slow":["buckwheat"],"carbs_fast":[],"vegetables":[]}}`, nil
	case strings.Contains(system, "Training day:"):
		return `{"foods_list":["buckwheat","chicken"],"analysis":"solid","balance_note":"fine","suggestion":null}`, nil
	default:
		return `{"food_diversity_by_day":{},"patterns":[],"food_sleep_connection":null}`, nil
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	conn, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	eventStore, err := events.NewStore(conn)
	if err != nil {
		t.Fatalf("event store: %v", err)
	}
	profileStore, err := profile.NewStore(conn)
	if err != nil {
		t.Fatalf("profile store: %v", err)
	}

	analyzer := analysis.NewAdapter(scriptedGenerator{}, analysis.Options{
		AttemptTimeout: time.Second,
		MaxRetries:     0,
		RetryDelay:     time.Millisecond,
	})
	summaries := summary.NewService(cache.NewMemoryStore(), eventStore, analyzer, profileStore, summary.DefaultPolicy())

	cfg := &config.Config{
		Server: config.Server{Host: "127.0.0.1", Port: 0},
		Bot:    config.Bot{Token: testBotToken, Debug: true},
	}
	return New(cfg, summaries, eventStore, profileStore, analyzer)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthNoAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIRequiresAuthWithoutDebug(t *testing.T) {
	s := newTestServer(t)
	s.debugAuth = false

	rec := doJSON(t, s, http.MethodGet, "/api/me", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestDebugAuthServesTestUser(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Profile struct {
			UserID int64 `json:"user_id"`
		} `json:"profile"`
		Registered bool `json:"registered"`
	}
	decode(t, rec, &resp)
	if resp.Profile.UserID != debugUserID {
		t.Fatalf("user id = %d, want debug user", resp.Profile.UserID)
	}
	if resp.Registered {
		t.Fatal("fresh debug user must not be registered")
	}
}

func TestFoodTextLogsAnalyzedEntry(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/food/text", FoodTextRequest{
		Text: "гречка с курицей",
		Date: "2025-01-18",
		Time: "13:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Entry struct {
			ID          int64  `json:"id"`
			Description string `json:"description"`
		} `json:"entry"`
		Products []string `json:"products"`
		Analyzed bool     `json:"analyzed"`
	}
	decode(t, rec, &resp)
	if !resp.Analyzed || resp.Entry.Description != "buckwheat with chicken" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Products) != 2 {
		t.Fatalf("products = %v", resp.Products)
	}

	list := doJSON(t, s, http.MethodGet, "/api/food/2025-01-18", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var listResp struct {
		Entries []json.RawMessage `json:"entries"`
	}
	decode(t, list, &listResp)
	if len(listResp.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(listResp.Entries))
	}
}

func TestFoodTextRejectsEmpty(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/food/text", FoodTextRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFoodDeleteNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodDelete, "/api/food/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFeelingsValidation(t *testing.T) {
	s := newTestServer(t)
	bad := 9
	rec := doJSON(t, s, http.MethodPatch, "/api/food/1/feelings", FeelingsRequest{HungerBefore: &bad})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSleepSaveAndReadBack(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/sleep/", SleepRequest{Date: "2025-01-18", Score: 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// Same night again replaces, not duplicates.
	rec = doJSON(t, s, http.MethodPost, "/api/sleep/", SleepRequest{Date: "2025-01-18", Score: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Entry struct {
			Score int `json:"score"`
		} `json:"entry"`
	}
	decode(t, rec, &resp)
	if resp.Entry.Score != 2 {
		t.Fatalf("score = %d, want 2", resp.Entry.Score)
	}
}

func TestSleepScoreValidation(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/sleep/", SleepRequest{Date: "2025-01-18", Score: 6})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOnboardingRoundTrip(t *testing.T) {
	s := newTestServer(t)

	tz := 120
	rec := doJSON(t, s, http.MethodPost, "/api/onboarding", OnboardingRequest{
		Goal:               "lose",
		TrainingType:       "marathon",
		ActivityLevel:      "active",
		FoodTrackerEnabled: true,
		TZOffsetMinutes:    &tz,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	get := doJSON(t, s, http.MethodGet, "/api/onboarding", nil)
	var resp struct {
		Completed bool `json:"completed"`
		Profile   struct {
			Goal            string `json:"goal"`
			TZOffsetMinutes int    `json:"timezone_offset"`
		} `json:"profile"`
	}
	decode(t, get, &resp)
	if !resp.Completed || resp.Profile.Goal != "lose" || resp.Profile.TZOffsetMinutes != 120 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestOnboardingRejectsUnknownGoal(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/onboarding", OnboardingRequest{Goal: "bulk"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSettingsPatchPartial(t *testing.T) {
	s := newTestServer(t)

	goal := "gain"
	rec := doJSON(t, s, http.MethodPatch, "/api/settings", SettingsPatch{Goal: &goal})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Profile struct {
			Goal               string `json:"goal"`
			EveningSummaryTime string `json:"evening_summary_time"`
		} `json:"profile"`
	}
	decode(t, rec, &resp)
	if resp.Profile.Goal != "gain" {
		t.Fatalf("goal = %q", resp.Profile.Goal)
	}
	if resp.Profile.EveningSummaryTime != "21:00" {
		t.Fatalf("untouched setting changed: %q", resp.Profile.EveningSummaryTime)
	}
}

func TestSummaryPastDate(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(t, s, http.MethodPost, "/api/food/text", FoodTextRequest{
		Text: "гречка", Date: "2025-01-18", Time: "13:00",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed food: %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/summary/2025-01-18", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp SummaryResponse
	decode(t, rec, &resp)
	if resp.Date != "2025-01-18" || resp.Status != "ok" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Cached {
		t.Fatal("first request must not be cached")
	}

	again := doJSON(t, s, http.MethodGet, "/api/summary/2025-01-18", nil)
	var second SummaryResponse
	decode(t, again, &second)
	if !second.Cached {
		t.Fatal("second request must be served from cache")
	}
}

func TestSummaryFutureDateRejected(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/summary/2125-01-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRecalculateMarksResponse(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/summary/recalculate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp SummaryResponse
	decode(t, rec, &resp)
	if !resp.Recalculated {
		t.Fatal("recalculate response must carry recalculated=true")
	}
}

func TestWeeklyCurrent(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/weekly/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp WeeklyResponse
	decode(t, rec, &resp)
	if resp.WeekStart == "" {
		t.Fatal("week_start missing")
	}
	if resp.Status != "unavailable" {
		t.Fatalf("status = %q, want unavailable for empty week", resp.Status)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(t, s, http.MethodPost, "/api/sleep/", SleepRequest{Score: 3}); rec.Code != http.StatusOK {
		t.Fatalf("seed sleep: %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Date       string `json:"date"`
		FoodCount  int    `json:"food_count"`
		SleepScore *int   `json:"sleep_score"`
	}
	decode(t, rec, &resp)
	if resp.SleepScore == nil || *resp.SleepScore != 3 {
		t.Fatalf("sleep score = %v", resp.SleepScore)
	}
}
