// Package geo provides the small geospatial vocabulary shared by the registry
// and aggregator: great-circle distance and lat/lng bounding boxes.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceKm returns the great-circle distance between two points in
// kilometers using the haversine formula.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lng1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lng2 := b.Lng * math.Pi / 180

	dLat := lat2 - lat1
	dLng := lng2 - lng1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}

// Bounds is a lat/lng bounding box. North must be >= South and East >= West;
// boxes crossing the antimeridian are not supported.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether p falls inside the box, borders included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// Valid reports whether the box is well-formed.
func (b Bounds) Valid() bool {
	return b.North >= b.South && b.East >= b.West
}
