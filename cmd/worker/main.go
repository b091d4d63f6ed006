// Package main provides the entrypoint for the RoadStop background worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/config"
	"github.com/roadstop/roadstop/internal/geocoding"
	geocodegoogle "github.com/roadstop/roadstop/internal/geocoding/googlemaps"
	geocodeors "github.com/roadstop/roadstop/internal/geocoding/openrouteservice"
	"github.com/roadstop/roadstop/internal/provider/resilience"
	"github.com/roadstop/roadstop/internal/routing"
	routegoogle "github.com/roadstop/roadstop/internal/routing/googlemaps"
	routeors "github.com/roadstop/roadstop/internal/routing/openrouteservice"
	"github.com/roadstop/roadstop/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// warmInterval is how often corridors are re-warmed when no Pub/Sub
// subscription drives the worker.
const warmInterval = 6 * time.Hour

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "roadstop-worker").
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting RoadStop worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := resilience.NewRegistry()
	var geocodeProvider geocoding.Provider
	var routeProvider routing.Provider
	if cfg.RoutingProvider == config.ProviderGoogleMaps {
		geocodeProvider = geocodegoogle.NewClient(geocodegoogle.ClientConfig{APIKey: cfg.GoogleMapsAPIKey, Registry: registry, Logger: log})
		routeProvider = routegoogle.NewClient(routegoogle.ClientConfig{APIKey: cfg.GoogleMapsAPIKey, Registry: registry, Logger: log})
	} else {
		geocodeProvider = geocodeors.NewClient(geocodeors.ClientConfig{APIKey: cfg.ORSAPIKey, BaseURL: cfg.ORSBaseURL, Registry: registry, Logger: log})
		routeProvider = routeors.NewClient(routeors.ClientConfig{APIKey: cfg.ORSAPIKey, BaseURL: cfg.ORSBaseURL, Registry: registry, Logger: log})
	}

	warmJob := worker.NewWarmJob(worker.WarmJobConfig{
		Config:   worker.DefaultWarmConfig(),
		Logger:   log,
		Geocoder: geocoding.NewService(geocoding.ServiceConfig{Provider: geocodeProvider, Logger: log}),
		Router:   routing.NewService(routing.ServiceConfig{Provider: routeProvider, Logger: log}),
	})

	// Worker also exposes health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"version":   Version,
			"providers": registry.Status(),
			"warm":      warmJob.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.PubSubSubscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			WarmJob:          warmJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	} else {
		log.Info().Dur("interval", warmInterval).Msg("no subscription configured, warming on a timer")
		go func() {
			warmJob.Run(ctx)

			ticker := time.NewTicker(warmInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					warmJob.Run(ctx)
				}
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
