package geo

import (
	"math"

	"smartparking/internal/navigation/domain"
)

// metersPerDegree is a planar small-angle scale applied uniformly to both
// latitude and longitude deltas. Every distance the navigation core evaluates
// is sub-kilometer, where the error against a great-circle formula is
// negligible. The arrival/step/off-route thresholds are calibrated against
// this exact scale; do not swap in haversine without rescaling them.
const metersPerDegree = 111000.0

// DistanceMeters returns the straight-line ground distance between two
// coordinates.
func DistanceMeters(a, b domain.Coordinate) float64 {
	dLat := (b.Latitude - a.Latitude) * metersPerDegree
	dLon := (b.Longitude - a.Longitude) * metersPerDegree
	return math.Sqrt(dLat*dLat + dLon*dLon)
}
