// Package trip plans stops along a road trip: it samples the route at a fixed
// interval, gathers nearby places around each sample and keeps the traveller's
// itinerary consistent while they edit it.
package trip

import (
	"math"

	"github.com/roadstop/roadstop/internal/geo"
)

// StopPoint is a sampled location along a route.
type StopPoint struct {
	Location          geo.Coordinate
	DistanceFromStart float64 // meters
	DurationFromStart float64 // seconds
	DistanceFromPrev  float64 // meters since the previous stop point (or start)
	DurationFromPrev  float64 // seconds since the previous stop point (or start)
}

// Sample places floor(total / interval) stop points along path, each at the
// vertex whose cumulative distance (or duration) is closest to a multiple of
// the interval. Durations assume a constant average speed over the whole route.
//
// A trip shorter than one interval, or a path of fewer than two points, yields
// no stop points. Only a non-positive interval is an error.
func Sample(path []geo.Coordinate, totalDistance, totalDuration float64, iv Interval) ([]StopPoint, error) {
	step, err := iv.Base()
	if err != nil {
		return nil, err
	}

	total := totalDuration
	if iv.Unit == UnitDistance {
		total = totalDistance
	}

	numStops := int(math.Floor(total / step))
	// A path under two points is not a well-formed route geometry: there is
	// no segment to place a stop point on, whatever the reported totals say.
	if numStops <= 0 || len(path) < 2 {
		return nil, nil
	}

	cumDist := make([]float64, len(path))
	cumDur := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		seg := geo.Distance(path[i-1], path[i])
		cumDist[i] = cumDist[i-1] + seg
		if totalDistance > 0 {
			cumDur[i] = cumDur[i-1] + (seg/totalDistance)*totalDuration
		} else {
			cumDur[i] = cumDur[i-1]
		}
	}

	cumulative := cumDur
	if iv.Unit == UnitDistance {
		cumulative = cumDist
	}

	stops := make([]StopPoint, 0, numStops)
	var prevDist, prevDur float64
	for k := 1; k <= numStops; k++ {
		target := float64(k) * step

		best := 1
		minDiff := math.Inf(1)
		for i := 1; i < len(path); i++ {
			// strict < keeps the first index on ties
			if d := math.Abs(cumulative[i] - target); d < minDiff {
				minDiff = d
				best = i
			}
		}

		sp := StopPoint{
			Location:          path[best],
			DistanceFromStart: cumDist[best],
			DurationFromStart: cumDur[best],
			DistanceFromPrev:  cumDist[best] - prevDist,
			DurationFromPrev:  cumDur[best] - prevDur,
		}
		stops = append(stops, sp)
		prevDist, prevDur = sp.DistanceFromStart, sp.DurationFromStart
	}

	return stops, nil
}
