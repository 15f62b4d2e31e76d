package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// MetersPerMile is the length of an international mile.
const MetersPerMile = 1609.344

// DefaultRadiusMeters is the proximity filter radius, ten statute miles.
const DefaultRadiusMeters = 10 * MetersPerMile

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// NewPoint validates and returns a point.
func NewPoint(lat, lng float64) (Point, error) {
	if !ValidateCoordinates(lat, lng) {
		return Point{}, fmt.Errorf("coordinates out of range: latitude %v, longitude %v", lat, lng)
	}
	return Point{Latitude: lat, Longitude: lng}, nil
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
// NaN is rejected by both comparisons.
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance returns the spherical distance in meters between p and q.
func (p Point) Distance(q Point) float64 {
	return Haversine(p.Latitude, p.Longitude, q.Latitude, q.Longitude)
}

// Destination returns the point reached by travelling meters from p along the
// initial bearing (degrees clockwise from north) on a spherical Earth.
func (p Point) Destination(bearingDeg, meters float64) Point {
	lat1 := p.Latitude * math.Pi / 180
	lon1 := p.Longitude * math.Pi / 180
	brg := bearingDeg * math.Pi / 180
	ang := meters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(
		math.Sin(brg)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2),
	)

	lng := math.Mod(lon2*180/math.Pi+540, 360) - 180
	return Point{Latitude: lat2 * 180 / math.Pi, Longitude: lng}
}
