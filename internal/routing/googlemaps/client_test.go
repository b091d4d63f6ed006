package googlemaps_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/routing"
	"github.com/roadstop/roadstop/internal/routing/googlemaps"
)

const okResponse = `{
  "status": "OK",
  "routes": [{
    "summary": "I-80 W",
    "bounds": {
      "northeast": {"lat": 41.8781, "lng": -74.0060},
      "southwest": {"lat": 39.7392, "lng": -104.9903}
    },
    "overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
    "legs": [
      {
        "distance": {"text": "790 mi", "value": 1271000},
        "duration": {"text": "11 hours 45 mins", "value": 42300},
        "start_location": {"lat": 40.7128, "lng": -74.0060},
        "end_location": {"lat": 41.8781, "lng": -87.6298}
      },
      {
        "start_location": {"lat": 41.8781, "lng": -87.6298},
        "end_location": {"lat": 39.7392, "lng": -104.9903}
      }
    ]
  }]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *googlemaps.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_GetDirections_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/directions/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "40.712800,-74.006000", q.Get("origin"))
		assert.Equal(t, "39.739200,-104.990300", q.Get("destination"))
		assert.Equal(t, "41.878100,-87.629800", q.Get("waypoints"))
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.NotContains(t, q.Get("waypoints"), "optimize")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	})

	route, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      geo.Coordinate{Lat: 40.7128, Lng: -74.0060},
		Destination: geo.Coordinate{Lat: 39.7392, Lng: -104.9903},
		Waypoints:   []geo.Coordinate{{Lat: 41.8781, Lng: -87.6298}},
	})
	require.NoError(t, err)

	assert.Equal(t, googlemaps.ProviderName, route.Provider)
	assert.Equal(t, "I-80 W", route.Summary)
	require.Len(t, route.Legs, 2)
	assert.Equal(t, 1271000.0, route.Legs[0].DistanceMeters)
	assert.Equal(t, 42300.0, route.Legs[0].DurationSeconds)

	// Missing values on the second leg are treated as zero
	assert.Zero(t, route.Legs[1].DistanceMeters)
	assert.Zero(t, route.Legs[1].DurationSeconds)
	assert.Equal(t, 41.8781, route.Legs[1].StartLocation.Lat)

	assert.Equal(t, 1271000.0, route.TotalDistance())
	assert.Len(t, route.Path, 3)
	require.NotNil(t, route.Bounds)
	assert.Equal(t, -104.9903, route.Bounds.MinLng)
}

func TestClient_GetDirections_StatusMapping(t *testing.T) {
	tests := []struct {
		status   string
		wantErr  error
		wantCode string
	}{
		{status: "ZERO_RESULTS", wantErr: routing.ErrNoRouteFound, wantCode: "NO_ROUTE"},
		{status: "NOT_FOUND", wantErr: routing.ErrNoRouteFound, wantCode: "NO_ROUTE"},
		{status: "OVER_QUERY_LIMIT", wantErr: routing.ErrRateLimitExceeded, wantCode: "RATE_LIMIT"},
		{status: "INVALID_REQUEST", wantErr: routing.ErrInvalidCoordinates, wantCode: "INVALID_REQUEST"},
		{status: "MAX_WAYPOINTS_EXCEEDED", wantErr: routing.ErrInvalidCoordinates, wantCode: "MAX_WAYPOINTS_EXCEEDED"},
		{status: "REQUEST_DENIED", wantErr: routing.ErrProviderUnavailable, wantCode: "REQUEST_DENIED"},
		{status: "UNKNOWN_ERROR", wantErr: routing.ErrProviderUnavailable, wantCode: "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"` + tt.status + `","routes":[]}`))
			})

			_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
				Origin:      geo.Coordinate{Lat: 40.7128, Lng: -74.0060},
				Destination: geo.Coordinate{Lat: 34.0522, Lng: -118.2437},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, routing.ErrRouteUnavailable)

			var routingErr *routing.Error
			require.ErrorAs(t, err, &routingErr)
			assert.Equal(t, tt.wantCode, routingErr.Code)
			assert.Equal(t, googlemaps.ProviderName, routingErr.Provider)
		})
	}
}

func TestClient_GetDirections_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      geo.Coordinate{Lat: 40.7128, Lng: -74.0060},
		Destination: geo.Coordinate{Lat: 34.0522, Lng: -118.2437},
	})
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
}

func TestClient_GetDirections_NoRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","routes":[]}`))
	})

	_, err := client.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      geo.Coordinate{Lat: 40.7128, Lng: -74.0060},
		Destination: geo.Coordinate{Lat: 34.0522, Lng: -118.2437},
	})
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
}

func TestClient_Name(t *testing.T) {
	client := googlemaps.NewClient(googlemaps.ClientConfig{APIKey: "k", Logger: zerolog.Nop()})
	assert.Equal(t, "googlemaps", client.Name())
}
