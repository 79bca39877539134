// Package geo computes great-circle distances between coordinates.
package geo

import "github.com/golang/geo/s2"

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6_371_000.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusMeters
}

// Within reports whether b lies at most maxMeters from a. The boundary is inclusive.
func Within(a, b Point, maxMeters float64) bool {
	return Distance(a, b) <= maxMeters
}
