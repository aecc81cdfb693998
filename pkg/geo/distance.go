package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// MetersPerDegree approximates one degree of latitude at the equator.
	// Used to convert simplification tolerances from meters to degrees.
	MetersPerDegree = 111320.0

	// KmPerDegree is the per-degree scale used when converting polygon
	// areas from square degrees to square kilometres.
	KmPerDegree = 111.32
)

// Haversine calculates the great-circle distance in kilometres between two
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// HaversineMeters is Haversine expressed in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return Haversine(lat1, lon1, lat2, lon2) * 1000.0
}

// TravelSeconds returns the time in seconds to cover distanceKm at speedKmh.
func TravelSeconds(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return distanceKm / speedKmh * 3600.0
}

// BoundingBox returns (south, west, north, east) for a circle of radiusM
// meters around the given center. Longitude extent widens with latitude.
func BoundingBox(lat, lon, radiusM float64) (south, west, north, east float64) {
	dLat := radiusM / MetersPerDegree
	cos := math.Cos(lat * math.Pi / 180.0)
	if cos < 0.01 {
		cos = 0.01
	}
	dLon := radiusM / (MetersPerDegree * cos)
	return lat - dLat, lon - dLon, lat + dLat, lon + dLon
}

// RoundCoord rounds a coordinate to the given number of decimal places.
func RoundCoord(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Round2 rounds to two decimal places, the precision used for kilometre
// figures in responses.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
