package trip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadstop/roadstop/internal/geo"
)

// equatorPath returns n+1 points along the equator spaced step degrees apart.
func equatorPath(n int, step float64) []geo.Coordinate {
	path := make([]geo.Coordinate, n+1)
	for i := range path {
		path[i] = geo.Coordinate{Lat: 0, Lng: float64(i) * step}
	}
	return path
}

func TestSample_DistanceExample(t *testing.T) {
	// ~490 km of path; totals as reported by the router.
	path := equatorPath(440, 0.01)
	const total = 500000.0

	stops, err := Sample(path, total, 18000, Interval{Value: 100, Unit: UnitDistance})
	require.NoError(t, err)
	require.Len(t, stops, 3)

	pathLen := geo.PathLength(path)
	prev := 0.0
	for i, sp := range stops {
		assert.GreaterOrEqual(t, sp.DistanceFromStart, prev, "stop %d", i)
		assert.LessOrEqual(t, sp.DistanceFromStart, total)
		assert.LessOrEqual(t, sp.DistanceFromStart, pathLen+1e-6)
		assert.InDelta(t, sp.DistanceFromStart-prev, sp.DistanceFromPrev, 1e-6)
		prev = sp.DistanceFromStart
	}

	// Each stop lands within half a path segment of its target.
	segment := geo.Distance(path[0], path[1])
	for k, sp := range stops {
		target := float64(k+1) * 100 * MetersPerMile
		assert.InDelta(t, target, sp.DistanceFromStart, segment/2+1)
	}
}

func TestSample_TimeUsesAverageSpeed(t *testing.T) {
	path := equatorPath(100, 0.05)
	total := geo.PathLength(path)
	const duration = 5 * 3600.0

	stops, err := Sample(path, total, duration, Interval{Value: 2, Unit: UnitTime})
	require.NoError(t, err)
	require.Len(t, stops, 2)

	for _, sp := range stops {
		assert.InDelta(t, sp.DistanceFromStart/total*duration, sp.DurationFromStart, 1e-6)
	}
	assert.InDelta(t, 7200, stops[0].DurationFromStart, 200)
	assert.InDelta(t, 14400, stops[1].DurationFromStart, 200)
}

func TestSample_ShorterThanInterval(t *testing.T) {
	path := equatorPath(10, 0.01)

	stops, err := Sample(path, 10000, 600, Interval{Value: 100, Unit: UnitDistance})
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestSample_InvalidInterval(t *testing.T) {
	path := equatorPath(10, 0.01)

	for _, iv := range []Interval{
		{Value: 0, Unit: UnitDistance},
		{Value: -1, Unit: UnitTime},
		{Value: 1, Unit: "parsecs"},
	} {
		_, err := Sample(path, 10000, 600, iv)
		assert.True(t, errors.Is(err, ErrInvalidInterval), "interval %+v", iv)
	}
}

func TestSample_DegeneratePath(t *testing.T) {
	// Totals large enough for many stop points, but no segment to put them on.
	tests := []struct {
		name string
		path []geo.Coordinate
		iv   Interval
	}{
		{name: "nil path", path: nil, iv: Interval{Value: 1, Unit: UnitDistance}},
		{name: "empty path", path: []geo.Coordinate{}, iv: Interval{Value: 1, Unit: UnitDistance}},
		{name: "single point by distance", path: []geo.Coordinate{{Lat: 1, Lng: 1}}, iv: Interval{Value: 1, Unit: UnitDistance}},
		{name: "single point by time", path: []geo.Coordinate{{Lat: 1, Lng: 1}}, iv: Interval{Value: 1, Unit: UnitTime}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := tt.iv.Base()
			require.NoError(t, err)
			total := 18000.0
			if tt.iv.Unit == UnitDistance {
				total = 500000
			}
			require.GreaterOrEqual(t, total/step, 1.0, "totals must call for stop points")

			stops, err := Sample(tt.path, 500000, 18000, tt.iv)
			require.NoError(t, err)
			assert.Empty(t, stops)
		})
	}
}

func TestSample_DuplicateVertices(t *testing.T) {
	a := geo.Coordinate{Lat: 0, Lng: 0}
	b := geo.Coordinate{Lat: 0, Lng: 0.02}
	c := geo.Coordinate{Lat: 0, Lng: 0.04}
	path := []geo.Coordinate{a, b, b, c}
	seg := geo.Distance(a, b)

	// The first target matches indices 1 and 2 equally.
	stops, err := Sample(path, 2*seg+1, 100, Interval{Value: seg / MetersPerMile, Unit: UnitDistance})
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, b, stops[0].Location)
	assert.InDelta(t, seg, stops[0].DistanceFromStart, 1e-6)
	assert.Equal(t, c, stops[1].Location)
	assert.InDelta(t, seg, stops[1].DistanceFromPrev, 1e-6)
}

func TestInterval_Base(t *testing.T) {
	base, err := Interval{Value: 100, Unit: UnitDistance}.Base()
	require.NoError(t, err)
	assert.InDelta(t, 160934, base, 1e-9)

	base, err = Interval{Value: 2, Unit: UnitTime}.Base()
	require.NoError(t, err)
	assert.InDelta(t, 7200, base, 1e-9)
}

func TestInterval_CheckBounds(t *testing.T) {
	assert.NoError(t, Interval{Value: 12, Unit: UnitTime}.CheckBounds())
	assert.NoError(t, Interval{Value: 500, Unit: UnitDistance}.CheckBounds())
	assert.ErrorIs(t, Interval{Value: 13, Unit: UnitTime}.CheckBounds(), ErrInvalidInterval)
	assert.ErrorIs(t, Interval{Value: 0.5, Unit: UnitDistance}.CheckBounds(), ErrInvalidInterval)
	assert.ErrorIs(t, Interval{Value: 0, Unit: UnitTime}.CheckBounds(), ErrInvalidInterval)
}

func TestUnit_DefaultValue(t *testing.T) {
	assert.Equal(t, 2.0, UnitTime.DefaultValue())
	assert.Equal(t, 100.0, UnitDistance.DefaultValue())
	assert.Equal(t, "2h", DefaultInterval().String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "100.0 mi", FormatDistance(160934))
	assert.Equal(t, "0.0 mi", FormatDistance(0))
	assert.Equal(t, "2h 5m", FormatDuration(7500))
	assert.Equal(t, "59m", FormatDuration(3599))
	assert.Equal(t, "1h 0m", FormatDuration(3600))
	assert.Equal(t, "0m", FormatDuration(-5))
}
