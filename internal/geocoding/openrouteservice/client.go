// Package openrouteservice geocodes place text with the OpenRouteService Pelias search API.
package openrouteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/geocoding"
	"github.com/roadstop/roadstop/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "openrouteservice-geocode"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the ORS geocoding client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	// Country restricts results to an ISO-3166 alpha-2 country (default: US).
	Country  string
	Registry *resilience.Registry
	Logger   zerolog.Logger
}

// Client geocodes through ORS /geocode/search.
type Client struct {
	apiKey     string
	baseURL    string
	country    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new ORS geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	country := cfg.Country
	if country == "" {
		country = "US"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = 10 * time.Second
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		country:    country,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type searchResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode returns the single best match for text.
func (c *Client) Geocode(ctx context.Context, text string) (*geocoding.Result, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("text", text)
	q.Set("boundary.country", c.country)
	q.Set("size", "1")

	endpoint := c.baseURL + "/geocode/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geocoding.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("text", text).
			Msg("ORS geocode returned non-OK status")
		return nil, fmt.Errorf("%w: status %d", geocoding.ErrProviderUnavailable, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return nil, geocoding.ErrLocationNotFound
	}

	f := decoded.Features[0]
	if len(f.Geometry.Coordinates) != 2 {
		return nil, fmt.Errorf("%w: malformed coordinates for %q", geocoding.ErrLocationNotFound, text)
	}

	return &geocoding.Result{
		Location: geo.Coordinate{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]},
		Label:    f.Properties.Label,
		Provider: ProviderName,
		FoundAt:  time.Now(),
	}, nil
}
