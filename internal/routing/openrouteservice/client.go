// Package openrouteservice provides a client for the OpenRouteService driving directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/provider/resilience"
	"github.com/roadstop/roadstop/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// profileDrivingCar is the only profile a road trip needs.
	profileDrivingCar = "driving-car"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
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

// GetDirections retrieves a driving route from origin through the waypoints to destination.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.Route, error) {
	points := make([]geo.Coordinate, 0, len(req.Waypoints)+2)
	points = append(points, req.Origin)
	points = append(points, req.Waypoints...)
	points = append(points, req.Destination)

	// ORS uses [lon, lat] order (GeoJSON)
	coords := make([][]float64, 0, len(points))
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return nil, &routing.Error{
				Provider: ProviderName,
				Code:     "INVALID_COORDINATES",
				Message:  fmt.Sprintf("invalid coordinates at position %d", i),
				Err:      routing.ErrInvalidCoordinates,
			}
		}
		coords = append(coords, []float64{p.Lng, p.Lat})
	}

	body, err := json.Marshal(orsRequest{
		Coordinates:  coords,
		Instructions: true,
		Geometry:     true,
		Units:        "m",
		Language:     "en",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s", c.baseURL, profileDrivingCar)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json, application/geo+json")

	c.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Int("waypoints", len(req.Waypoints)).
		Msg("requesting directions from ORS")

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

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var orsResp orsResponse
	if err := json.Unmarshal(respBody, &orsResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(orsResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      routing.ErrNoRouteFound,
		}
	}

	route := toRoute(&orsResp.Routes[0], points)

	c.logger.Debug().
		Int("legs", len(route.Legs)).
		Int("path_points", len(route.Path)).
		Float64("distance_m", route.TotalDistance()).
		Msg("received directions from ORS")

	return route, nil
}

// handleErrorResponse maps ORS error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var orsErr orsErrorResponse
	if err := json.Unmarshal(body, &orsErr); err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case http.StatusForbidden, http.StatusUnauthorized:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case http.StatusNotFound:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case http.StatusBadRequest:
		if orsErr.Error.Code == orsErrorCodeRouteNotFound || orsErr.Error.Code == orsErrorCodePointNotFound {
			return &routing.Error{
				Provider: ProviderName,
				Code:     "NO_ROUTE",
				Message:  orsErr.Error.Message,
				Err:      routing.ErrNoRouteFound,
			}
		}
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  orsErr.Error.Message,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		if statusCode >= 500 {
			return &routing.Error{
				Provider: ProviderName,
				Code:     fmt.Sprintf("SERVER_%d", statusCode),
				Message:  "routing provider is temporarily unavailable",
				Err:      routing.ErrProviderUnavailable,
			}
		}
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  orsErr.Error.Message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// toRoute converts an ORS route to the domain model. ORS returns one segment
// per pair of consecutive input coordinates, so segments map 1:1 onto legs.
func toRoute(r *orsRoute, points []geo.Coordinate) *routing.Route {
	path := geo.DecodePolyline(r.Geometry)

	legs := make([]routing.Leg, 0, len(r.Segments))
	for i := range r.Segments {
		seg := &r.Segments[i]
		leg := routing.Leg{
			DistanceMeters:  seg.Distance,
			DurationSeconds: seg.Duration,
		}
		if i+1 < len(points) {
			leg.StartLocation = points[i]
			leg.EndLocation = points[i+1]
		}
		// Prefer the snapped locations from way_points when present
		if i+1 < len(r.WayPoints) {
			if start := r.WayPoints[i]; start >= 0 && start < len(path) {
				leg.StartLocation = path[start]
			}
			if end := r.WayPoints[i+1]; end >= 0 && end < len(path) {
				leg.EndLocation = path[end]
			}
		}
		legs = append(legs, leg)
	}

	// Without instructions ORS omits segments; fall back to one summary leg
	if len(legs) == 0 {
		legs = append(legs, routing.Leg{
			DistanceMeters:  r.Summary.Distance,
			DurationSeconds: r.Summary.Duration,
			StartLocation:   points[0],
			EndLocation:     points[len(points)-1],
		})
	}

	route := &routing.Route{
		Legs:             legs,
		Path:             path,
		GeometryPolyline: r.Geometry,
		Summary:          summarize(r.Segments),
		Provider:         ProviderName,
		FetchedAt:        time.Now(),
	}

	if len(r.BBox) >= 4 {
		route.Bounds = &geo.BoundingBox{
			MinLng: r.BBox[0],
			MinLat: r.BBox[1],
			MaxLng: r.BBox[2],
			MaxLat: r.BBox[3],
		}
	} else if box, ok := geo.Bounds(path); ok {
		route.Bounds = &box
	}

	return route
}

// summarize names the road carrying the longest single step.
func summarize(segments []routeSegment) string {
	var (
		best     string
		bestDist float64
	)
	for i := range segments {
		for _, step := range segments[i].Steps {
			if step.Name == "" || step.Name == "-" {
				continue
			}
			if step.Distance > bestDist {
				best = step.Name
				bestDist = step.Distance
			}
		}
	}
	return best
}
