// Package geo provides the great-circle distance used for geofence checks.
package geo

import (
	"math"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is a usable coordinate.
func (p Point) Valid() bool {
	return validCoordinate(p.Latitude, p.Longitude)
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// HaversineMeters computes the great-circle distance between two coordinates.
// Returns attendance.ErrInvalidCoordinate for NaN or out-of-range input.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if !validCoordinate(lat1, lon1) || !validCoordinate(lat2, lon2) {
		return 0, attendance.ErrInvalidCoordinate
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c, nil
}

// Distance computes the great-circle distance between two points.
func Distance(a, b Point) (float64, error) {
	return HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}
