package trip

import "github.com/roadstop/roadstop/internal/routing"

// Metrics are trip totals derived from a route.
type Metrics struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Totals sums leg distances and durations. Missing values count as zero and a
// nil route or one without legs yields zero totals.
func Totals(route *routing.Route) Metrics {
	if route == nil {
		return Metrics{}
	}
	var m Metrics
	for _, leg := range route.Legs {
		if leg.DistanceMeters > 0 {
			m.DistanceMeters += leg.DistanceMeters
		}
		if leg.DurationSeconds > 0 {
			m.DurationSeconds += leg.DurationSeconds
		}
	}
	return m
}
