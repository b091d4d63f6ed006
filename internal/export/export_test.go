package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/routing"
	"github.com/roadstop/roadstop/internal/trip"
)

func snapshot() trip.Snapshot {
	st := trip.DefaultState()
	st.Start, st.End = "Reno, NV", "Sacramento, CA"
	st.StartLocation = &geo.Coordinate{Lat: 39.53, Lng: -119.81}
	st.EndLocation = &geo.Coordinate{Lat: 38.58, Lng: -121.49}
	st.Directions = &routing.Route{
		Path: []geo.Coordinate{
			{Lat: 39.53, Lng: -119.81},
			{Lat: 39.3, Lng: -120.5},
			{Lat: 38.58, Lng: -121.49},
		},
		Legs:    []routing.Leg{{DistanceMeters: 210000, DurationSeconds: 7500}},
		Summary: "I-80 W",
		Bounds:  &geo.BoundingBox{MinLat: 38.58, MinLng: -121.49, MaxLat: 39.53, MaxLng: -119.81},
	}
	st.Itinerary = []trip.Stop{{
		ID:       "stp_1",
		PlaceID:  "ChIJ1",
		Name:     "Truckee Diner",
		Category: places.CategoryFood,
		Location: geo.Coordinate{Lat: 39.33, Lng: -120.18},
		Rating:   4.2,
	}}
	st.StopPoints = []trip.StopPoint{{
		Location:          geo.Coordinate{Lat: 39.3, Lng: -120.5},
		DistanceFromStart: 160934,
		DurationFromStart: 5700,
	}}
	return trip.Snapshot{ID: "trp_1", State: st, Metrics: trip.Totals(st.Directions)}
}

func TestItinerary(t *testing.T) {
	fc := Itinerary(snapshot())
	require.Len(t, fc.Features, 5)

	kinds := make([]string, len(fc.Features))
	for i, f := range fc.Features {
		kinds[i] = f.Properties.MustString("kind")
	}
	assert.Equal(t, []string{KindRoute, KindStart, KindStop, KindEnd, KindStopPoint}, kinds)

	route := fc.Features[0]
	ls, ok := route.Geometry.(orb.LineString)
	require.True(t, ok)
	require.Len(t, ls, 3)
	assert.Equal(t, orb.Point{-119.81, 39.53}, ls[0])
	assert.Equal(t, "130.5 mi", route.Properties["distance"])
	assert.Equal(t, "2h 5m", route.Properties["duration"])
	assert.Equal(t, geojson.BBox{-121.49, 38.58, -119.81, 39.53}, route.BBox)

	stop := fc.Features[2]
	assert.Equal(t, "stp_1", stop.ID)
	assert.Equal(t, 1, stop.Properties["order"])
	assert.Equal(t, "food", stop.Properties["category"])

	assert.Equal(t, "100.0 mi, 1h 35m", fc.Features[4].Properties["label"])
}

func TestItinerary_NoRoute(t *testing.T) {
	fc := Itinerary(trip.Snapshot{ID: "trp_2", State: trip.DefaultState()})
	assert.Empty(t, fc.Features)

	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
}

type fakeStore struct {
	exists    bool
	made      []string
	putKey    string
	putBody   []byte
	putOpts   minio.PutObjectOptions
	putErr    error
	existsErr error
}

func (f *fakeStore) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, _, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	body, _ := io.ReadAll(r)
	f.putKey, f.putBody, f.putOpts = object, body, opts
	return minio.UploadInfo{Key: object, Size: size, ETag: "etag-1"}, nil
}

func TestArchiver_Archive(t *testing.T) {
	fs := &fakeStore{}
	a := newArchiver(fs, ArchiverConfig{Bucket: "exports", Logger: zerolog.Nop()})
	a.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	obj, err := a.Archive(context.Background(), "trp_1", []byte(`{"type":"FeatureCollection"}`))
	require.NoError(t, err)

	assert.Equal(t, "exports", obj.Bucket)
	assert.Equal(t, "trips/trp_1/20260304T050607.000Z.geojson", obj.Key)
	assert.Equal(t, int64(28), obj.Size)
	assert.Equal(t, "etag-1", obj.ETag)
	assert.Equal(t, ContentType, fs.putOpts.ContentType)
	assert.Equal(t, "trp_1", fs.putOpts.UserMetadata["trip-id"])
}

func TestArchiver_ArchiveError(t *testing.T) {
	fs := &fakeStore{putErr: errors.New("denied")}
	a := newArchiver(fs, ArchiverConfig{Bucket: "exports", Logger: zerolog.Nop()})

	_, err := a.Archive(context.Background(), "trp_1", []byte("{}"))
	assert.ErrorContains(t, err, "denied")
}

func TestArchiver_EnsureBucket(t *testing.T) {
	fs := &fakeStore{}
	a := newArchiver(fs, ArchiverConfig{Bucket: "exports", Logger: zerolog.Nop()})
	require.NoError(t, a.EnsureBucket(context.Background()))
	assert.Equal(t, []string{"exports"}, fs.made)

	fs = &fakeStore{exists: true}
	a = newArchiver(fs, ArchiverConfig{Bucket: "exports", Logger: zerolog.Nop()})
	require.NoError(t, a.EnsureBucket(context.Background()))
	assert.Empty(t, fs.made)
}

func TestNewArchiver_RequiresBucket(t *testing.T) {
	_, err := NewArchiver(ArchiverConfig{Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
