// Package server exposes the mini-app HTTP API: entry logging, profile and
// settings, and the daily/weekly summary endpoints backed by the summary
// orchestrator.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"yourbody/internal/analysis"
	"yourbody/internal/config"
	"yourbody/internal/events"
	"yourbody/internal/logger"
	"yourbody/internal/profile"
	"yourbody/internal/summary"
)

// Server is the mini-app HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	log        *slog.Logger
	config     config.Server

	botToken  string
	debugAuth bool

	summaries *summary.Service
	events    *events.Store
	profiles  *profile.Store
	analyzer  *analysis.Adapter
}

// New wires the router over the given stores and services.
func New(cfg *config.Config, summaries *summary.Service, eventStore *events.Store, profileStore *profile.Store, analyzer *analysis.Adapter) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       logger.Get(),
		config:    cfg.Server,
		botToken:  cfg.Bot.Token,
		debugAuth: cfg.Bot.Debug,
		summaries: summaries,
		events:    eventStore,
		profiles:  profileStore,
		analyzer:  analyzer,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/me", s.handleMe)
		r.Get("/onboarding", s.handleGetOnboarding)
		r.Post("/onboarding", s.handleSaveOnboarding)
		r.Patch("/settings", s.handleUpdateSettings)

		r.Route("/food", func(r chi.Router) {
			r.Get("/today", s.handleFoodToday)
			r.Get("/calendar/{year}/{month}", s.handleFoodCalendar)
			r.Get("/{date}", s.handleFoodByDate)
			r.Post("/text", s.handleFoodText)
			r.Delete("/{id}", s.handleFoodDelete)
			r.Patch("/{id}/feelings", s.handleFoodFeelings)
		})

		r.Route("/sleep", func(r chi.Router) {
			r.Get("/today", s.handleSleepToday)
			r.Post("/", s.handleSleepSave)
		})

		r.Route("/summary", func(r chi.Router) {
			r.Get("/today", s.handleSummaryToday)
			r.Post("/recalculate", s.handleSummaryRecalculate)
			r.Get("/{date}", s.handleSummaryByDate)
		})

		r.Route("/weekly", func(r chi.Router) {
			r.Get("/current", s.handleWeeklyCurrent)
			r.Get("/{week_start}", s.handleWeeklyByStart)
		})

		r.Get("/dashboard", s.handleDashboard)
	})
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
