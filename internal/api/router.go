// Package api provides the REST API router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
)

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	// AllowedOrigins is the list of allowed CORS origins. Empty means all origins allowed.
	AllowedOrigins []string
	// RateLimiter limits the chat routes (optional).
	RateLimiter *RateLimiter
	// Metrics records HTTP metrics (optional).
	Metrics *metrics.Metrics
	// RequestTimeout bounds each request. Defaults to 60s.
	RequestTimeout time.Duration
	// MetricsPath serves Prometheus metrics. Empty disables the endpoint.
	MetricsPath string
}

// NewRouter creates a new API router.
func NewRouter(handler *Handler, logger zerolog.Logger) *chi.Mux {
	return NewRouterWithConfig(handler, logger, RouterConfig{MetricsPath: "/metrics"})
}

// NewRouterWithConfig creates a new API router with configuration.
func NewRouterWithConfig(handler *Handler, logger zerolog.Logger, config RouterConfig) *chi.Mux {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(NewTracingMiddleware())
	r.Use(NewMetricsMiddleware(config.Metrics))
	r.Use(middleware.Timeout(config.RequestTimeout))

	// CORS
	r.Use(NewCORSMiddleware(config.AllowedOrigins))

	r.Get("/health", handler.HealthCheck)
	if config.MetricsPath != "" {
		r.Handle(config.MetricsPath, metrics.Handler())
	}

	limited := func(r chi.Router) chi.Router {
		if config.RateLimiter == nil {
			return r
		}
		return r.With(NewRateLimitMiddleware(config.RateLimiter))
	}

	r.Route("/api", func(r chi.Router) {
		// Data feeds
		r.Route("/data", func(r chi.Router) {
			r.Get("/market-prices", handler.MarketPrices)
			r.Get("/pest-alerts", handler.PestAlerts)
			r.Get("/government-advisories", handler.GovernmentAdvisories)
		})

		// Chat
		limited(r).Post("/chat/message", handler.ChatMessage)
		limited(r).Post("/v2/chat/message", handler.ChatMessageV2)
		limited(r).Post("/mobile/chat", handler.MobileChat)

		// Activity log
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", handler.ListActivities)
			r.Post("/", handler.CreateActivity)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler.GetActivity)
				r.Delete("/", handler.DeleteActivity)
			})
		})
	})

	return r
}

// NewCORSMiddleware creates a CORS middleware with configurable origins.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// If no allowed origins specified, allow all (development mode)
			if len(allowedOrigins) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				for _, allowed := range allowedOrigins {
					if origin == allowed || allowed == "*" {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						break
					}
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, If-None-Match, X-Requested-With")
			w.Header().Set("Access-Control-Expose-Headers", "ETag, "+HeaderProvenance+", "+HeaderCache)
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
