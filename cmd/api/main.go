// Package main provides the entrypoint for the RoadStop API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/api"
	"github.com/roadstop/roadstop/internal/api/handler"
	"github.com/roadstop/roadstop/internal/api/middleware"
	"github.com/roadstop/roadstop/internal/auth"
	"github.com/roadstop/roadstop/internal/config"
	"github.com/roadstop/roadstop/internal/database"
	"github.com/roadstop/roadstop/internal/events"
	"github.com/roadstop/roadstop/internal/export"
	"github.com/roadstop/roadstop/internal/geocoding"
	geocodegoogle "github.com/roadstop/roadstop/internal/geocoding/googlemaps"
	geocodeors "github.com/roadstop/roadstop/internal/geocoding/openrouteservice"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/places/googleplaces"
	"github.com/roadstop/roadstop/internal/provider/resilience"
	"github.com/roadstop/roadstop/internal/routing"
	routegoogle "github.com/roadstop/roadstop/internal/routing/googlemaps"
	routeors "github.com/roadstop/roadstop/internal/routing/openrouteservice"
	"github.com/roadstop/roadstop/internal/stops"
	"github.com/roadstop/roadstop/internal/telemetry"
	"github.com/roadstop/roadstop/internal/trip"
	"github.com/roadstop/roadstop/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "roadstop-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting RoadStop API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.PlacesAPIKey() == "" {
		log.Fatal().Msg("GOOGLE_MAPS_API_KEY is required for place search")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:      serviceName,
		ServiceVersion:   Version,
		Environment:      cfg.Env,
		OTLPEndpoint:     cfg.OTLPEndpoint,
		Enabled:          cfg.OTelEnabled,
		RoutingProvider:  cfg.RoutingProvider,
		TraceSampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Float64("trace_sample_ratio", cfg.TraceSampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	plannerMetrics, err := telemetry.NewPlannerMetrics(telemetry.Meter("roadstop/planner"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize planner metrics")
	}

	// External providers share one registry for health reporting
	registry := resilience.NewRegistry()

	var routeProvider routing.Provider
	var geocodeProvider geocoding.Provider
	switch cfg.RoutingProvider {
	case config.ProviderGoogleMaps:
		routeProvider = routegoogle.NewClient(routegoogle.ClientConfig{
			APIKey:   cfg.GoogleMapsAPIKey,
			Registry: registry,
			Logger:   log,
		})
		geocodeProvider = geocodegoogle.NewClient(geocodegoogle.ClientConfig{
			APIKey:   cfg.GoogleMapsAPIKey,
			Registry: registry,
			Logger:   log,
		})
	default:
		routeProvider = routeors.NewClient(routeors.ClientConfig{
			APIKey:   cfg.ORSAPIKey,
			BaseURL:  cfg.ORSBaseURL,
			Registry: registry,
			Logger:   log,
		})
		geocodeProvider = geocodeors.NewClient(geocodeors.ClientConfig{
			APIKey:   cfg.ORSAPIKey,
			BaseURL:  cfg.ORSBaseURL,
			Registry: registry,
			Logger:   log,
		})
	}

	routingService := routing.NewService(routing.ServiceConfig{
		Provider: routeProvider,
		Logger:   log,
		Metrics:  providerMetrics,
	})
	geocodingService := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geocodeProvider,
		Logger:   log,
		Metrics:  providerMetrics,
	})
	placesService := places.NewService(places.ServiceConfig{
		Provider: googleplaces.NewClient(googleplaces.ClientConfig{
			APIKey:   cfg.PlacesAPIKey(),
			Registry: registry,
			Logger:   log,
		}),
		Logger:  log,
		Metrics: providerMetrics,
	})
	log.Info().
		Str("routing", routingService.ProviderName()).
		Str("geocoding", geocodingService.ProviderName()).
		Str("places", placesService.Name()).
		Msg("providers initialized")

	planner := trip.NewPlanner(trip.PlannerConfig{
		Geocoder: geocodingService,
		Router:   routingService,
		Aggregator: trip.NewAggregator(trip.AggregatorConfig{
			Places:      placesService,
			Logger:      log,
			Concurrency: cfg.CandidateConcurrency,
			Observer:    plannerMetrics,
		}),
		Logger: log,
	})

	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("sink", cfg.EventsSink).Msg("failed to initialize event publisher")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	trips := trip.NewStore(trip.SessionConfig{
		Recomputer: planner,
		Observer:   plannerMetrics,
		Publisher:  publisher,
		Logger:     log,
	})
	defer trips.Close()

	routerCfg := api.RouterConfig{
		Version:    Version,
		BuildTime:  BuildTime,
		Logger:     log,
		Metrics:    metrics,
		RequireTLS: cfg.RequireTLS,
		Trips:      trips,
		Registry:   registry,
	}

	// Saved stops live in memory unless PostgreSQL is selected
	var stopsRepo stops.Repository = stops.NewInMemoryRepository()
	if cfg.StopsStore == config.StorePostgres {
		dbConfig := database.ConfigFromEnv()
		pool, dbErr := database.Connect(ctx, dbConfig)
		if dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		stopsRepo = stops.NewPostgresRepository(pool)
		routerCfg.Database = pool
	}
	routerCfg.Stops = stops.NewService(stopsRepo)

	if cfg.ExportBucket != "" {
		archiver, archErr := export.NewArchiver(export.ArchiverConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.ExportBucket,
			Logger:    log,
		})
		if archErr != nil {
			log.Fatal().Err(archErr).Msg("failed to initialize export archiver")
		}
		if archErr = archiver.EnsureBucket(ctx); archErr != nil {
			log.Fatal().Err(archErr).Str("bucket", cfg.ExportBucket).Msg("export bucket unavailable")
		}
		routerCfg.Archiver = handler.Archiver(archiver)
		log.Info().Str("bucket", cfg.ExportBucket).Msg("export archiving enabled")
	}

	if cfg.JWTSecret != "" {
		jwtService, jwtErr := auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWTSecret,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		})
		if jwtErr != nil {
			log.Fatal().Err(jwtErr).Msg("failed to initialize JWT validation")
		}
		routerCfg.TokenValidator = jwtService
	} else if cfg.IsProduction() {
		log.Warn().Msg("AUTH_JWT_SECRET not set - write endpoints are unauthenticated")
	}

	// Evict abandoned trips and expired place results in the background
	maintenanceCtx, stopMaintenance := context.WithCancel(ctx)
	defer stopMaintenance()
	maintenance := worker.NewMaintenance(worker.MaintenanceConfig{
		Trips:  trips,
		Caches: map[string]worker.Purger{"places": placesService},
		Logger: log,
	})
	go maintenance.Run(maintenanceCtx, 5*time.Minute)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopMaintenance()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func newPublisher(ctx context.Context, cfg config.Config, log zerolog.Logger) (events.Publisher, error) {
	switch cfg.EventsSink {
	case config.SinkKafka:
		return events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Logger:  log,
		})
	case config.SinkPubSub:
		return events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    log,
		})
	default:
		return events.NewLogPublisher(log), nil
	}
}
