// Package geo provides great-circle math over geographic coordinates.
package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/roadstop/roadstop/pkg/polyline"
)

// ErrInvalidCoordinate indicates a latitude or longitude outside its valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Point returns the coordinate as an orb.Point ([lng, lat]).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// Validate checks that the coordinate lies within [-90, 90] x [-180, 180].
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinate, c.Lng)
	}
	return nil
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// PathLength returns the summed great-circle length of consecutive path vertices.
func PathLength(path []Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// BoundingBox is the axis-aligned extent of a set of coordinates.
type BoundingBox struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// Bounds returns the bounding box of path. ok is false for an empty path.
func Bounds(path []Coordinate) (box BoundingBox, ok bool) {
	if len(path) == 0 {
		return BoundingBox{}, false
	}

	ls := make(orb.LineString, 0, len(path))
	for _, c := range path {
		ls = append(ls, c.Point())
	}
	b := ls.Bound()

	return BoundingBox{
		MinLat: b.Min.Lat(),
		MinLng: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLng: b.Max.Lon(),
	}, true
}

// DecodePolyline decodes an encoded polyline (precision 5) into a path.
func DecodePolyline(encoded string) []Coordinate {
	decoded := polyline.Decode(encoded)
	if decoded == nil {
		return nil
	}

	path := make([]Coordinate, len(decoded))
	for i, c := range decoded {
		path[i] = Coordinate{Lat: c.Lat, Lng: c.Lng}
	}
	return path
}

// EncodePolyline encodes a path as a polyline string (precision 5).
func EncodePolyline(path []Coordinate) string {
	coords := make([]polyline.Coordinate, len(path))
	for i, c := range path {
		coords[i] = polyline.Coordinate{Lat: c.Lat, Lng: c.Lng}
	}
	return polyline.Encode(coords)
}
