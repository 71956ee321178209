package geo

import (
	"math"

	"dispatch/internal/domain"
)

// earthRadiusKm is the mean Earth radius used for great-circle distance.
const earthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between two points in kilometers.
// It is symmetric, returns 0 for identical points, and is total over the
// whole coordinate space (antipodal points included).
func DistanceKm(a, b domain.Coordinate) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)

	// Floating point can push h a hair above 1 for antipodal points.
	if h > 1 {
		h = 1
	}

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// defaultSpeedKmh guards against a zero or negative configured speed.
const defaultSpeedKmh = 20.0

// EtaMinutes converts a distance into whole minutes at the given speed,
// rounding up. The result is never negative.
func EtaMinutes(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = defaultSpeedKmh
	}
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKm / speedKmh * 60))
}

// Estimate is a computed distance/ETA pair.
type Estimate struct {
	DistanceKm float64
	EtaMinutes int
}

// Between estimates distance and ETA between two optional points.
// Returns nil when either coordinate is missing; never an error.
func Between(from, to *domain.Coordinate, speedKmh float64) *Estimate {
	if from == nil || to == nil {
		return nil
	}
	d := DistanceKm(*from, *to)
	return &Estimate{
		DistanceKm: d,
		EtaMinutes: EtaMinutes(d, speedKmh),
	}
}
