package trip

import (
	"fmt"
	"math"
)

// FormatDistance renders meters as miles with one decimal, e.g. "62.1 mi".
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.1f mi", meters/MetersPerMile)
}

// FormatDuration renders seconds as "Xh Ym", or "Ym" under an hour.
// Partial minutes are truncated.
func FormatDuration(seconds float64) string {
	s := int(math.Max(seconds, 0))
	hours := s / 3600
	minutes := (s % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
