// Package analysis wraps the external narrative-generation provider. All
// provider calls are bounded by a per-attempt timeout and a small retry
// budget for transient failures; outcomes are normalized into tagged summary
// artifacts so callers pattern-match on status instead of branching on error
// types. Provider errors never escape this package in raw form.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"yourbody/internal/core"
	"yourbody/internal/logger"
)

// userSafeFailure is the only error text an artifact ever carries outward.
const userSafeFailure = "analysis is temporarily unavailable, please try again later"

// Options configures the adapter's call policy.
type Options struct {
	AttemptTimeout time.Duration // budget for a single provider attempt
	MaxRetries     int           // additional attempts after the first, transient failures only
	RetryDelay     time.Duration
}

// DefaultOptions returns the adapter's stock policy.
func DefaultOptions() Options {
	return Options{
		AttemptTimeout: 30 * time.Second,
		MaxRetries:     2,
		RetryDelay:     time.Second,
	}
}

// Adapter turns aggregated period data into summary artifacts through a
// Generator backend.
type Adapter struct {
	generator Generator
	opts      Options
	now       func() time.Time
}

// NewAdapter creates an adapter over the given backend.
func NewAdapter(generator Generator, opts Options) *Adapter {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultOptions().AttemptTimeout
	}
	return &Adapter{
		generator: generator,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DailyInput is one day's aggregated food data, ready for the prompt.
type DailyInput struct {
	Goal        string              `json:"goal"`
	HasTraining bool                `json:"has_training"`
	Products    []string            `json:"products"`
	Categories  core.FoodCategories `json:"categories"`
}

// Empty reports whether there is nothing to summarize.
func (in DailyInput) Empty() bool { return len(in.Products) == 0 }

// WeeklyDay is one day's slimmed data inside a weekly input.
type WeeklyDay struct {
	Date          string         `json:"date"`
	ProductsCount int            `json:"products_count"`
	Categories    map[string]int `json:"categories"`
	SleepScore    *int           `json:"sleep"`
}

// WeeklyInput is a week's aggregated data. MissingDays and SleepAverage are
// computed locally by the orchestrator; the provider's output never
// overrides them.
type WeeklyInput struct {
	Goal         string      `json:"goal"`
	Days         []WeeklyDay `json:"days"`
	MissingDays  []string    `json:"missing_days"`
	SleepAverage *float64    `json:"sleep_average"`
}

// Empty reports whether no day in the week carries any data.
func (in WeeklyInput) Empty() bool {
	for _, d := range in.Days {
		if d.ProductsCount > 0 || d.SleepScore != nil {
			return false
		}
	}
	return true
}

// AnalyzeDaily produces the daily artifact for key. Empty input
// short-circuits to an unavailable artifact without touching the provider.
func (a *Adapter) AnalyzeDaily(ctx context.Context, key core.PeriodKey, input DailyInput) core.SummaryArtifact {
	if input.Empty() {
		return a.artifact(key, core.StatusUnavailable, nil, "")
	}

	note := nutritionNotes[input.Goal]
	if note == "" {
		note = nutritionNotes["maintain"]
	}
	training := "no"
	if input.HasTraining {
		training = "yes"
	}
	system := fmt.Sprintf(dailySummarySystemPrompt, input.Goal, note, training)

	products, _ := json.Marshal(input.Products)
	categories, _ := json.Marshal(input.Categories)
	user := fmt.Sprintf("Today the user ate:\n%s\n\nProduct categories:\n%s", products, categories)

	raw, err := a.generate(ctx, system, user)
	if err != nil {
		logger.Warn("daily summary generation failed", "key", key.String(), "error", err.Error())
		return a.artifact(key, core.StatusError, nil, userSafeFailure)
	}

	var summary core.DailySummary
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &summary); err != nil {
		logger.Warn("daily summary output unparseable", "key", key.String(), "error", err.Error())
		return a.artifact(key, core.StatusError, nil, userSafeFailure)
	}

	payload, _ := json.Marshal(summary)
	return a.artifact(key, core.StatusOK, payload, "")
}

// AnalyzeWeekly produces the weekly artifact for key. A week with some but
// not all days of data is still computed; the artifact is marked partial and
// the payload flags the missing days.
func (a *Adapter) AnalyzeWeekly(ctx context.Context, key core.PeriodKey, input WeeklyInput) core.SummaryArtifact {
	if input.Empty() {
		return a.artifact(key, core.StatusUnavailable, nil, "")
	}

	system := fmt.Sprintf(weeklySummarySystemPrompt, input.Goal)
	days, _ := json.Marshal(input.Days)

	raw, err := a.generate(ctx, system, string(days))
	if err != nil {
		logger.Warn("weekly summary generation failed", "key", key.String(), "error", err.Error())
		return a.artifact(key, core.StatusError, nil, userSafeFailure)
	}

	var summary core.WeeklySummary
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &summary); err != nil {
		logger.Warn("weekly summary output unparseable", "key", key.String(), "error", err.Error())
		return a.artifact(key, core.StatusError, nil, userSafeFailure)
	}

	// Locally computed facts win over whatever the model emitted.
	summary.SleepAverage = input.SleepAverage
	summary.MissingDays = input.MissingDays

	status := core.StatusOK
	if len(input.MissingDays) > 0 {
		status = core.StatusPartial
	}

	payload, _ := json.Marshal(summary)
	return a.artifact(key, status, payload, "")
}

// AnalyzeFoodText classifies one food description. On failure it returns a
// degraded analysis echoing the raw text along with the error, so callers can
// still store the entry.
func (a *Adapter) AnalyzeFoodText(ctx context.Context, text string) (core.FoodAnalysis, error) {
	system := fmt.Sprintf(foodTextSystemPrompt, foodCategoriesGuide)

	fallback := core.FoodAnalysis{Description: text, Products: []string{text}}

	raw, err := a.generate(ctx, system, text)
	if err != nil {
		return fallback, fmt.Errorf("food analysis failed: %w", err)
	}

	var analysis core.FoodAnalysis
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &analysis); err != nil {
		return fallback, fmt.Errorf("food analysis output unparseable: %w", err)
	}
	if analysis.Description == "" {
		analysis.Description = text
	}

	return analysis, nil
}

// generate runs the retry loop around the backend. Transient failures are
// retried up to MaxRetries times with a fixed delay; deterministic rejections
// and caller cancellation end the loop immediately.
func (a *Adapter) generate(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(a.opts.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.opts.AttemptTimeout)
		out, err := a.generator.Generate(attemptCtx, system, user)
		cancel()

		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

// artifact assembles a new artifact for key. The fingerprint is left empty;
// the orchestrator stamps the one it computed from the aggregated events.
func (a *Adapter) artifact(key core.PeriodKey, status core.ArtifactStatus, payload []byte, detail string) core.SummaryArtifact {
	return core.SummaryArtifact{
		ID:          uuid.NewString(),
		Key:         key,
		GeneratedAt: a.now(),
		Status:      status,
		Payload:     payload,
		ErrorDetail: detail,
	}
}

// stripCodeFences removes a wrapping markdown code block from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "{") {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
