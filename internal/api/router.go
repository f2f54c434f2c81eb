package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/good-yellow-bee/alertwatch/internal/api/alerts"
	"github.com/good-yellow-bee/alertwatch/internal/api/auth"
	historyapi "github.com/good-yellow-bee/alertwatch/internal/api/history"
	"github.com/good-yellow-bee/alertwatch/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	var tokens *auth.TokenService
	if len(s.config.JWTSecret) > 0 {
		tokens = auth.NewTokenService(s.config.JWTSecret)
	}

	ipLimiter := middleware.NewIPRateLimiter(s.config.RateLimitPerIP, s.config.RateLimitBurst)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.WithTimeout(s.config.RequestTimeout))

	// Health check and metrics (public, no rate limit)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	alertHandler := alerts.NewHandler(s.manager)

	// Alert routes (protected)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))
		r.Use(middleware.BearerAuth(s.config.APIKey, tokens))

		r.Get("/alerts", alertHandler.List)
		r.Get("/alert/{id}", alertHandler.GetByID)
		r.Get("/stats", alertHandler.Stats)
		r.Post("/create", alertHandler.Create)
		r.Post("/test", alertHandler.Test)
		r.Post("/escalation", alertHandler.Escalate)
		r.Put("/acknowledge/{id}", alertHandler.Acknowledge)
		r.Put("/resolve/{id}", alertHandler.Resolve)
		r.Delete("/cleanup", alertHandler.Cleanup)

		if s.aggregator != nil {
			historyHandler := historyapi.NewHandler(s.aggregator)
			r.Get("/history/performance", historyHandler.Performance)
			r.Get("/history/availability", historyHandler.Availability)
		}
	})

	return r
}

// handleHealth reports whether the server can reach its store. A failed
// database ping is a 503 so that load balancers pull the instance.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if db := s.storage.DB(); db != nil {
		if err := db.PingContext(r.Context()); err != nil {
			JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}
	OK(w, map[string]string{"status": "ok"})
}
