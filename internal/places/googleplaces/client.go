// Package googleplaces implements place search with the Google Places web service.
package googleplaces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/provider/resilience"
)

const (
	// ProviderName identifies this place provider.
	ProviderName = "googleplaces"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	detailFields = "place_id,name,rating,formatted_address,formatted_phone_number,website,photos,opening_hours,geometry"
)

// placeTypes maps categories to Google place types.
var placeTypes = map[places.Category]string{
	places.CategoryLodging:    "lodging",
	places.CategoryFood:       "restaurant",
	places.CategoryFuel:       "gas_station",
	places.CategoryAttraction: "tourist_attraction",
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Places client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client queries Google Places nearby search and place details.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Places client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
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

// Nearby runs a rank-by-distance search and keeps the first limit results
// within radiusMeters. Google rejects an explicit radius together with
// rankby=distance, so the radius is enforced here.
func (c *Client) Nearby(ctx context.Context, location geo.Coordinate, category places.Category, radiusMeters float64, limit int) ([]places.CandidateRef, error) {
	placeType, ok := placeTypes[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", places.ErrUnknownCategory, category)
	}
	if limit <= 0 {
		limit = places.DefaultLimit
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", location.Lat, location.Lng))
	q.Set("rankby", "distance")
	q.Set("type", placeType)
	q.Set("key", c.apiKey)

	var resp nearbyResponse
	if err := c.getJSON(ctx, "/maps/api/place/nearbysearch/json", q, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", places.ErrProviderUnavailable, err)
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		c.logger.Error().
			Str("status", resp.Status).
			Str("error_message", resp.ErrorMessage).
			Str("category", string(category)).
			Msg("nearby search returned non-OK status")
		return nil, fmt.Errorf("%w: status %s", places.ErrProviderUnavailable, resp.Status)
	}

	refs := make([]places.CandidateRef, 0, limit)
	for _, r := range resp.Results {
		if len(refs) == limit {
			break
		}
		loc := geo.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
		if radiusMeters > 0 && geo.Distance(location, loc) > radiusMeters {
			// Results are ordered by distance, so nothing further can qualify
			break
		}
		refs = append(refs, places.CandidateRef{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Location: loc,
			Category: category,
		})
	}

	c.logger.Debug().
		Str("category", string(category)).
		Int("results", len(resp.Results)).
		Int("kept", len(refs)).
		Msg("nearby search complete")

	return refs, nil
}

// Detail fetches place details. Every failure wraps places.ErrDetailUnavailable.
func (c *Client) Detail(ctx context.Context, ref places.CandidateRef) (*places.PlaceDetail, error) {
	q := url.Values{}
	q.Set("place_id", ref.PlaceID)
	q.Set("fields", detailFields)
	q.Set("key", c.apiKey)

	var resp detailResponse
	if err := c.getJSON(ctx, "/maps/api/place/details/json", q, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", places.ErrDetailUnavailable, ref.PlaceID, err)
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("%w: %s: status %s", places.ErrDetailUnavailable, ref.PlaceID, resp.Status)
	}

	r := resp.Result
	d := &places.PlaceDetail{
		PlaceID:  ref.PlaceID,
		Name:     r.Name,
		Location: geo.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		Rating:   r.Rating,
		Address:  r.FormattedAddress,
		Phone:    r.FormattedPhoneNumber,
		Website:  r.Website,
	}
	if d.Name == "" {
		d.Name = ref.Name
	}
	if r.Geometry.Location.Lat == 0 && r.Geometry.Location.Lng == 0 {
		d.Location = ref.Location
	}

	for _, p := range r.Photos {
		if len(d.Photos) == places.MaxPhotos {
			break
		}
		d.Photos = append(d.Photos, c.photoURL(p.PhotoReference))
	}

	if r.OpeningHours != nil {
		d.Hours = r.OpeningHours.WeekdayText
		if r.OpeningHours.OpenNow != nil {
			open := *r.OpeningHours.OpenNow
			d.IsOpen = &open
		}
	}

	return d, nil
}

// photoURL builds a sized photo URL. The key is embedded because the photo
// endpoint is fetched directly by clients.
func (c *Client) photoURL(ref string) string {
	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(places.PhotoMaxSize))
	q.Set("maxheight", strconv.Itoa(places.PhotoMaxSize))
	q.Set("photo_reference", ref)
	q.Set("key", c.apiKey)
	return c.baseURL + "/maps/api/place/photo?" + q.Encode()
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
