// Package summary decides, per period, whether to serve a cached artifact or
// recompute it. Freshness is a single decision made here from the event
// fingerprint, the current-day trigger time and the error-retry policy;
// nothing outside this package second-guesses it.
package summary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"yourbody/internal/analysis"
	"yourbody/internal/cache"
	"yourbody/internal/core"
	"yourbody/internal/fingerprint"
	"yourbody/internal/flight"
	"yourbody/internal/logger"
	"yourbody/internal/period"
)

// ErrorRetry names the policy for serving a cached error-status artifact.
type ErrorRetry string

const (
	// RetryNextRequest re-attempts the provider on the first request after
	// the error artifact's freshness window expires.
	RetryNextRequest ErrorRetry = "next_request"
	// RetryNextTrigger keeps serving the error artifact until the inputs
	// change or a recalculation is forced.
	RetryNextTrigger ErrorRetry = "next_trigger"
)

// Policy tunes how long failed computations are served from cache.
type Policy struct {
	ErrorRetry ErrorRetry
	ErrorTTL   time.Duration // freshness window for error artifacts under RetryNextRequest
}

// DefaultPolicy matches the stock configuration.
func DefaultPolicy() Policy {
	return Policy{ErrorRetry: RetryNextRequest, ErrorTTL: 10 * time.Minute}
}

// EventSource reads the raw event stream for a user-local date range.
type EventSource interface {
	ListEvents(ctx context.Context, userID int64, loc *time.Location, start, end string) ([]core.RawEvent, error)
}

// Analyzer produces artifacts from aggregated period data.
type Analyzer interface {
	AnalyzeDaily(ctx context.Context, key core.PeriodKey, input analysis.DailyInput) core.SummaryArtifact
	AnalyzeWeekly(ctx context.Context, key core.PeriodKey, input analysis.WeeklyInput) core.SummaryArtifact
}

// SettingsSource supplies the per-user trigger time, timezone and goal.
type SettingsSource interface {
	Get(ctx context.Context, userID int64) (core.UserProfile, bool, error)
}

// Result is what the API layer renders: the artifact plus whether it came
// from cache and an optional human-readable note.
type Result struct {
	Artifact core.SummaryArtifact
	Cached   bool
	Message  string
}

// Service is the summary orchestrator.
type Service struct {
	cache    cache.Store
	events   EventSource
	analyzer Analyzer
	settings SettingsSource
	group    *flight.Group
	policy   Policy
	now      func() time.Time
}

// NewService wires the orchestrator. A nil policy field falls back to the
// defaults.
func NewService(store cache.Store, events EventSource, analyzer Analyzer, settings SettingsSource, policy Policy) *Service {
	if policy.ErrorRetry == "" {
		policy.ErrorRetry = RetryNextRequest
	}
	if policy.ErrorTTL <= 0 {
		policy.ErrorTTL = DefaultPolicy().ErrorTTL
	}
	return &Service{
		cache:    store,
		events:   events,
		analyzer: analyzer,
		settings: settings,
		group:    &flight.Group{},
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetSummary returns the artifact for the requested period, recomputing it
// when the cached one no longer matches the period's events. force always
// recomputes. InvalidPeriodError propagates; provider failures do not, they
// come back as error-status artifacts.
func (s *Service) GetSummary(ctx context.Context, userID int64, ptype core.PeriodType, refDate string, tzOffsetMinutes int, force bool) (Result, error) {
	now := s.now()
	key, err := period.ResolveFor(userID, ptype, refDate, tzOffsetMinutes, now)
	if err != nil {
		return Result{}, err
	}

	profile, _, err := s.settings.Get(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	// An in-progress day has no summary before the user's trigger time.
	// This outcome depends only on the wall clock, so it is never cached.
	if !force && ptype == core.PeriodDay && period.IsCurrentDay(key, now) && s.beforeTrigger(key, profile, now) {
		return Result{
			Artifact: core.SummaryArtifact{
				ID:          uuid.NewString(),
				Key:         key,
				Fingerprint: fingerprint.Empty,
				GeneratedAt: now,
				Status:      core.StatusUnavailable,
			},
			Message: "not yet available",
		}, nil
	}

	days, err := period.Days(key)
	if err != nil {
		return Result{}, err
	}
	events, err := s.events.ListEvents(ctx, userID, key.Location(), days[0], days[len(days)-1])
	if err != nil {
		return Result{}, err
	}
	fp := fingerprint.Compute(events)

	if !force {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if ok && cached.Fingerprint == fp && s.servable(cached, now) {
			return Result{Artifact: cached, Cached: true, Message: resultMessage(cached)}, nil
		}
	}

	res := s.group.Do(key, func() core.SummaryArtifact {
		// The computation outlives the caller so the cache is warm for the
		// next request even after a client disconnect.
		return s.compute(context.WithoutCancel(ctx), key, profile, events, fp, days)
	})
	return Result{Artifact: res.Artifact, Message: resultMessage(res.Artifact)}, nil
}

// Recalculate forces a fresh computation for the period.
func (s *Service) Recalculate(ctx context.Context, userID int64, ptype core.PeriodType, refDate string, tzOffsetMinutes int) (Result, error) {
	return s.GetSummary(ctx, userID, ptype, refDate, tzOffsetMinutes, true)
}

// servable reports whether a fingerprint-fresh cached artifact may be
// returned without recomputation. Error artifacts are only fresh within the
// policy's window.
func (s *Service) servable(artifact core.SummaryArtifact, now time.Time) bool {
	switch artifact.Status {
	case core.StatusOK, core.StatusPartial, core.StatusUnavailable:
		return true
	case core.StatusError:
		if s.policy.ErrorRetry == RetryNextTrigger {
			return true
		}
		return now.Sub(artifact.GeneratedAt) < s.policy.ErrorTTL
	default:
		return false
	}
}

// beforeTrigger reports whether user-local now is earlier than the profile's
// evening summary time.
func (s *Service) beforeTrigger(key core.PeriodKey, profile core.UserProfile, now time.Time) bool {
	trigger, err := time.Parse("15:04", profile.EveningSummaryTime)
	if err != nil {
		trigger, _ = time.Parse("15:04", "21:00")
	}
	local := now.In(key.Location())
	nowMinutes := local.Hour()*60 + local.Minute()
	triggerMinutes := trigger.Hour()*60 + trigger.Minute()
	return nowMinutes < triggerMinutes
}

// compute aggregates the period's events, runs the analyzer, stamps the
// fingerprint the events hashed to, and writes the artifact through.
func (s *Service) compute(ctx context.Context, key core.PeriodKey, profile core.UserProfile, events []core.RawEvent, fp string, days []string) core.SummaryArtifact {
	var artifact core.SummaryArtifact
	if key.Type == core.PeriodWeek {
		artifact = s.analyzer.AnalyzeWeekly(ctx, key, weeklyInput(profile, events, days))
	} else {
		artifact = s.analyzer.AnalyzeDaily(ctx, key, dailyInput(profile, events))
	}
	artifact.Key = key
	artifact.Fingerprint = fp

	if err := s.cache.Put(ctx, artifact); err != nil {
		logger.Error("failed to cache summary artifact", err, "key", key.String())
	}
	return artifact
}

func resultMessage(artifact core.SummaryArtifact) string {
	switch artifact.Status {
	case core.StatusUnavailable:
		return "no data for this period"
	case core.StatusError:
		return artifact.ErrorDetail
	default:
		return ""
	}
}

// dailyInput flattens one day's events into the analyzer's shape.
func dailyInput(profile core.UserProfile, events []core.RawEvent) analysis.DailyInput {
	input := analysis.DailyInput{Goal: profile.Goal}
	for _, ev := range events {
		switch ev.Kind {
		case core.EventFood:
			var entry core.FoodEntry
			if err := json.Unmarshal(ev.Payload, &entry); err != nil {
				logger.Warn("skipping undecodable food event", "id", ev.ID, "error", err.Error())
				continue
			}
			input.Products = append(input.Products, entry.Description)
			if entry.Categories != nil {
				mergeCategories(&input.Categories, *entry.Categories)
			}
		case core.EventWorkout:
			input.HasTraining = true
		}
	}
	return input
}

// weeklyInput groups a week's events per day and computes the facts the
// provider is never trusted with: which days are missing entirely, and the
// sleep average over the days that actually carry a score.
func weeklyInput(profile core.UserProfile, events []core.RawEvent, days []string) analysis.WeeklyInput {
	perDay := make(map[string]*analysis.WeeklyDay, len(days))
	ordered := make([]*analysis.WeeklyDay, 0, len(days))
	for _, d := range days {
		day := &analysis.WeeklyDay{Date: d, Categories: map[string]int{}}
		perDay[d] = day
		ordered = append(ordered, day)
	}

	hasData := make(map[string]bool, len(days))
	for _, ev := range events {
		date := ev.OccurredAt.Format(period.DateLayout)
		day, ok := perDay[date]
		if !ok {
			continue
		}
		switch ev.Kind {
		case core.EventFood:
			var entry core.FoodEntry
			if err := json.Unmarshal(ev.Payload, &entry); err != nil {
				logger.Warn("skipping undecodable food event", "id", ev.ID, "error", err.Error())
				continue
			}
			day.ProductsCount++
			if entry.Categories != nil {
				countCategories(day.Categories, *entry.Categories)
			}
			hasData[date] = true
		case core.EventSleep:
			var entry core.SleepEntry
			if err := json.Unmarshal(ev.Payload, &entry); err != nil {
				logger.Warn("skipping undecodable sleep event", "id", ev.ID, "error", err.Error())
				continue
			}
			score := entry.Score
			day.SleepScore = &score
			hasData[date] = true
		case core.EventWorkout:
			hasData[date] = true
		}
	}

	input := analysis.WeeklyInput{Goal: profile.Goal}
	var sleepSum, sleepCount int
	for _, day := range ordered {
		input.Days = append(input.Days, *day)
		if !hasData[day.Date] {
			input.MissingDays = append(input.MissingDays, day.Date)
		}
		if day.SleepScore != nil {
			sleepSum += *day.SleepScore
			sleepCount++
		}
	}
	if sleepCount > 0 {
		avg := float64(sleepSum) / float64(sleepCount)
		input.SleepAverage = &avg
	}
	return input
}

func mergeCategories(dst *core.FoodCategories, src core.FoodCategories) {
	dst.ProteinsAnimal = append(dst.ProteinsAnimal, src.ProteinsAnimal...)
	dst.ProteinsPlant = append(dst.ProteinsPlant, src.ProteinsPlant...)
	dst.Fats = append(dst.Fats, src.Fats...)
	dst.CarbsSlow = append(dst.CarbsSlow, src.CarbsSlow...)
	dst.CarbsFast = append(dst.CarbsFast, src.CarbsFast...)
	dst.Vegetables = append(dst.Vegetables, src.Vegetables...)
}

func countCategories(dst map[string]int, src core.FoodCategories) {
	dst["proteins_animal"] += len(src.ProteinsAnimal)
	dst["proteins_plant"] += len(src.ProteinsPlant)
	dst["fats"] += len(src.Fats)
	dst["carbs_slow"] += len(src.CarbsSlow)
	dst["carbs_fast"] += len(src.CarbsFast)
	dst["vegetables"] += len(src.Vegetables)
}
