// Package googlemaps provides a client for the Google Maps Directions API.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/provider/resilience"
	"github.com/roadstop/roadstop/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Directions client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is a Google Directions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves a driving route. Waypoints are passed without
// optimize:true so legs come back in the requested order.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.Route, error) {
	reqURL := c.buildURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Int("waypoints", len(req.Waypoints)).
		Msg("requesting directions from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", resp.StatusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	var apiResp directionsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if err := statusError(apiResp.Status, apiResp.ErrorMessage); err != nil {
		c.logger.Error().
			Str("status", apiResp.Status).
			Str("error_message", apiResp.ErrorMessage).
			Msg("google directions returned non-OK status")
		return nil, err
	}

	if len(apiResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      routing.ErrNoRouteFound,
		}
	}

	route := toRoute(&apiResp.Routes[0])

	c.logger.Debug().
		Int("legs", len(route.Legs)).
		Int("path_points", len(route.Path)).
		Msg("received directions from Google")

	return route, nil
}

func (c *Client) buildURL(req routing.DirectionsRequest) string {
	params := url.Values{}
	params.Set("origin", formatLatLng(req.Origin))
	params.Set("destination", formatLatLng(req.Destination))
	if len(req.Waypoints) > 0 {
		via := make([]string, 0, len(req.Waypoints))
		for _, wp := range req.Waypoints {
			via = append(via, formatLatLng(wp))
		}
		params.Set("waypoints", strings.Join(via, "|"))
	}
	params.Set("mode", "driving")
	params.Set("language", "en")
	params.Set("key", c.apiKey)

	return fmt.Sprintf("%s/maps/api/directions/json?%s", c.baseURL, params.Encode())
}

func formatLatLng(c geo.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

// statusError maps a Directions API status to a routing error; nil for OK.
func statusError(status, message string) error {
	var (
		code = status
		err  error
	)
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		code, err = "NO_ROUTE", routing.ErrNoRouteFound
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		code, err = "RATE_LIMIT", routing.ErrRateLimitExceeded
	case "INVALID_REQUEST", "MAX_WAYPOINTS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED":
		err = routing.ErrInvalidCoordinates
	default:
		// REQUEST_DENIED, UNKNOWN_ERROR and anything new
		err = routing.ErrProviderUnavailable
	}

	if message == "" {
		message = "directions request failed with status " + status
	}
	return &routing.Error{
		Provider: ProviderName,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

func toRoute(r *directionsRoute) *routing.Route {
	legs := make([]routing.Leg, 0, len(r.Legs))
	for _, l := range r.Legs {
		legs = append(legs, routing.Leg{
			DistanceMeters:  float64(l.Distance.Value),
			DurationSeconds: float64(l.Duration.Value),
			StartLocation:   geo.Coordinate{Lat: l.StartLocation.Lat, Lng: l.StartLocation.Lng},
			EndLocation:     geo.Coordinate{Lat: l.EndLocation.Lat, Lng: l.EndLocation.Lng},
		})
	}

	path := geo.DecodePolyline(r.OverviewPolyline.Points)

	route := &routing.Route{
		Legs:             legs,
		Path:             path,
		GeometryPolyline: r.OverviewPolyline.Points,
		Summary:          r.Summary,
		Provider:         ProviderName,
		FetchedAt:        time.Now(),
	}

	if r.Bounds != nil {
		route.Bounds = &geo.BoundingBox{
			MinLat: r.Bounds.Southwest.Lat,
			MinLng: r.Bounds.Southwest.Lng,
			MaxLat: r.Bounds.Northeast.Lat,
			MaxLng: r.Bounds.Northeast.Lng,
		}
	} else if box, ok := geo.Bounds(path); ok {
		route.Bounds = &box
	}

	return route
}
