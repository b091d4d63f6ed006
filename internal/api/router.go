// Package api provides the HTTP API for RoadStop.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/api/handler"
	"github.com/roadstop/roadstop/internal/api/middleware"
	"github.com/roadstop/roadstop/internal/provider/resilience"
	"github.com/roadstop/roadstop/internal/stops"
	"github.com/roadstop/roadstop/internal/trip"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// TokenValidator protects write endpoints when set. Leave it nil (not a
	// typed nil pointer) to run without authentication.
	TokenValidator middleware.TokenValidator

	Trips    *trip.Store
	Stops    *stops.Service
	Archiver handler.Archiver
	Registry *resilience.Registry
	Database handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters. Tracing, metrics and logging read
	// the matched route pattern after the request has been dispatched.
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Trips:     cfg.Trips,
		Database:  cfg.Database,
	})
	tripHandler := handler.NewTripHandler(handler.TripHandlerConfig{
		Store:    cfg.Trips,
		Stops:    cfg.Stops,
		Archiver: cfg.Archiver,
		Logger:   cfg.Logger,
	})
	stopHandler := handler.NewStopHandler(cfg.Stops, cfg.Logger)
	sampleHandler := handler.NewSampleHandler(cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.TokenValidator)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min
	editRateLimit := middleware.RateLimitByUser(middleware.EditRateLimit)         // 60 req/min per caller
	exportRateLimit := middleware.RateLimitByUser(middleware.ExportRateLimit)     // 10 req/min per caller

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Trips - every edit may trigger provider calls
		r.Route("/trips", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Use(middleware.RequireJSON)
			r.With(expensiveRateLimit, authMiddleware).Post("/", tripHandler.CreateTrip)

			r.Route("/{tripId}", func(r chi.Router) {
				r.Get("/", tripHandler.GetTrip)
				r.Get("/candidates", tripHandler.ListCandidates)
				r.Get("/stop-points", tripHandler.ListStopPoints)
				r.Get("/export.geojson", tripHandler.ExportGeoJSON)

				r.Group(func(r chi.Router) {
					r.Use(authMiddleware)
					r.Use(editRateLimit)
					r.Delete("/", tripHandler.DeleteTrip)
					r.Put("/locations", tripHandler.UpdateLocations)
					r.Post("/locations:swap", tripHandler.SwapLocations)
					r.Put("/interval", tripHandler.UpdateInterval)
					r.Put("/categories", tripHandler.UpdateCategories)
					r.Post("/stops", tripHandler.AddStop)
					r.Put("/stops:reorder", tripHandler.ReorderStops)
					r.Delete("/stops/{stopId}", tripHandler.RemoveStop)
					r.With(exportRateLimit).Post("/exports", tripHandler.ArchiveExport)
				})
			})
		})

		// Stateless sampling - expensive compute, strict rate limiting
		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/routes:sample", sampleHandler.SampleRoute)

		// Saved stops
		r.Route("/stops", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Use(middleware.RequireJSON)
			r.Get("/", stopHandler.ListStops)
			r.Get("/{stopId}", stopHandler.GetStop)
			r.With(authMiddleware).Post("/", stopHandler.CreateStop)
			r.With(authMiddleware).Delete("/{stopId}", stopHandler.DeleteStop)
		})
	})

	return r
}
