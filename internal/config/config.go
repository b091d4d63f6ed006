// Package config loads RoadStop process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Routing providers.
const (
	ProviderOpenRouteService = "openrouteservice"
	ProviderGoogleMaps       = "googlemaps"
)

// Stop stores.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Event sinks.
const (
	SinkLog    = "log"
	SinkKafka  = "kafka"
	SinkPubSub = "pubsub"
)

// Config holds process configuration shared by the API and the worker.
type Config struct {
	Port string
	Env  string

	OTelEnabled      bool
	OTLPEndpoint     string
	TraceSampleRatio float64

	RequireTLS bool

	RoutingProvider  string
	ORSAPIKey        string
	ORSBaseURL       string
	GoogleMapsAPIKey string

	StopsStore string

	EventsSink         string
	KafkaBrokers       []string
	KafkaTopic         string
	PubSubProjectID    string
	PubSubTopic        string
	PubSubSubscription string

	ExportBucket string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3UseSSL     bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	CandidateConcurrency int
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment and validates it.
func FromEnv() (Config, error) {
	concurrency, err := strconv.Atoi(getEnvOrDefault("CANDIDATE_CONCURRENCY", "4"))
	if err != nil || concurrency <= 0 {
		return Config{}, fmt.Errorf("CANDIDATE_CONCURRENCY must be a positive integer, got %q", os.Getenv("CANDIDATE_CONCURRENCY"))
	}
	sampleRatio, err := strconv.ParseFloat(getEnvOrDefault("OTEL_TRACES_SAMPLER_ARG", "1"), 64)
	if err != nil || sampleRatio <= 0 || sampleRatio > 1 {
		return Config{}, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be a ratio in (0, 1], got %q", os.Getenv("OTEL_TRACES_SAMPLER_ARG"))
	}

	cfg := Config{
		Port:         getEnvOrDefault("APP_PORT", "8080"),
		Env:          getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:      os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRatio: sampleRatio,

		RequireTLS: os.Getenv("REQUIRE_TLS") == "true",

		RoutingProvider:  getEnvOrDefault("ROUTING_PROVIDER", ProviderOpenRouteService),
		ORSAPIKey:        os.Getenv("ORS_API_KEY"),
		ORSBaseURL:       os.Getenv("ORS_BASE_URL"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),

		StopsStore: getEnvOrDefault("STOPS_STORE", StoreMemory),

		EventsSink:         getEnvOrDefault("EVENTS_SINK", SinkLog),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnvOrDefault("KAFKA_TOPIC", "roadstop.trip-events"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:        getEnvOrDefault("PUBSUB_TOPIC", "roadstop-trip-events"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),

		ExportBucket: os.Getenv("EXPORT_BUCKET"),
		S3Endpoint:   getEnvOrDefault("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:     os.Getenv("S3_USE_SSL") == "true",

		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:   os.Getenv("AUTH_ISSUER"),
		JWTAudience: os.Getenv("AUTH_AUDIENCE"),

		CandidateConcurrency: concurrency,
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerations and the settings each choice depends on.
func (c Config) Validate() error {
	var errs []error

	switch c.RoutingProvider {
	case ProviderOpenRouteService:
		if c.ORSAPIKey == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required for the openrouteservice provider"))
		}
	case ProviderGoogleMaps:
		if c.GoogleMapsAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required for the googlemaps provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ROUTING_PROVIDER %q", c.RoutingProvider))
	}

	switch c.StopsStore {
	case StoreMemory, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown STOPS_STORE %q", c.StopsStore))
	}

	switch c.EventsSink {
	case SinkLog:
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka sink"))
		}
	case SinkPubSub:
		if c.PubSubProjectID == "" {
			errs = append(errs, errors.New("PUBSUB_PROJECT_ID is required for the pubsub sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_SINK %q", c.EventsSink))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// PlacesAPIKey returns the key used for Google Places. Candidate search always
// goes through Google Places, whichever routing provider is selected.
func (c Config) PlacesAPIKey() string {
	return c.GoogleMapsAPIKey
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
