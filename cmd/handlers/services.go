package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"yourbody/internal/analysis"
	"yourbody/internal/cache"
	"yourbody/internal/config"
	"yourbody/internal/db"
	"yourbody/internal/events"
	"yourbody/internal/profile"
	"yourbody/internal/summary"
)

// services bundles everything a command needs once the stores and the
// provider are wired.
type services struct {
	conn      *sql.DB
	events    *events.Store
	profiles  *profile.Store
	analyzer  *analysis.Adapter
	summaries *summary.Service
}

func (s *services) Close() error {
	return s.conn.Close()
}

// buildServices opens the database and wires the stores, the analysis
// provider and the summary orchestrator from configuration.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	conn, err := db.Open(cfg.App.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	eventStore, err := events.NewStore(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	profileStore, err := profile.NewStore(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	cacheStore, err := cache.NewSQLiteStore(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	analyzer := analysis.NewAdapter(generator, analysis.Options{
		AttemptTimeout: cfg.AI.ProviderTimeout(),
		MaxRetries:     cfg.Summary.MaxRetries,
		RetryDelay:     cfg.Summary.RetryDelayDuration(),
	})

	summaries := summary.NewService(cacheStore, eventStore, analyzer, profileStore, summary.Policy{
		ErrorRetry: summary.ErrorRetry(cfg.Summary.ErrorRetry),
		ErrorTTL:   cfg.Summary.ErrorTTLDuration(),
	})

	return &services{
		conn:      conn,
		events:    eventStore,
		profiles:  profileStore,
		analyzer:  analyzer,
		summaries: summaries,
	}, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (analysis.Generator, error) {
	switch cfg.AI.DefaultProvider {
	case "gemini":
		return analysis.NewGeminiClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model)
	case "openrouter":
		return analysis.NewOpenRouterClient(cfg.AI.OpenRouter.APIKey, cfg.AI.OpenRouter.BaseURL, cfg.AI.OpenRouter.TextModel), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider: %s", cfg.AI.DefaultProvider)
	}
}
