// Package geo provides great-circle math between WGS84 coordinates.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for all great-circle math.
const EarthRadiusMeters = 6371000.0

// Coordinate is a position in decimal degrees.
// Latitude is in [-90, 90], longitude in [-180, 180]; out-of-range values
// are a caller error.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the Haversine great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLng*sinLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// BearingDegrees returns the initial (forward azimuth) bearing from one
// coordinate to another, normalised to [0, 360). The bearing between two
// identical coordinates is undefined; by convention it is 0.
func BearingDegrees(from, to Coordinate) float64 {
	if from == to {
		return 0
	}

	lat1 := radians(from.Lat)
	lat2 := radians(to.Lat)
	dLng := radians(to.Lng - from.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
