package match

import (
	"errors"
	"sort"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
)

// ErrLocationUnavailable is returned when the customer location is missing.
// An empty candidate set is a valid empty result, not an error.
var ErrLocationUnavailable = errors.New("customer location unavailable")

// Matcher ranks candidate riders for a customer location.
type Matcher struct {
	// SpeedKmh is the matching-phase speed used for ETA estimates.
	// It is deliberately independent from the tracking-phase speed.
	SpeedKmh float64
}

// NewMatcher creates a Matcher with the given matching-phase speed.
func NewMatcher(speedKmh float64) *Matcher {
	return &Matcher{SpeedKmh: speedKmh}
}

// FindNearby ranks candidates within radiusKm of the customer location.
// Riders with no known location are skipped. Results are sorted ascending by
// distance; ties prefer the higher rating, then a fully online rider over one
// that is only on shift. The returned slice is transient and must not be
// assumed valid once the candidate set changes.
func (m *Matcher) FindNearby(customer *domain.Coordinate, candidates []*domain.Rider, radiusKm float64) ([]domain.RiderMatchResult, error) {
	if customer == nil {
		return nil, ErrLocationUnavailable
	}

	results := make([]domain.RiderMatchResult, 0, len(candidates))
	for _, rider := range candidates {
		if rider == nil || rider.Location == nil {
			continue
		}

		d := geo.DistanceKm(*customer, *rider.Location.Coordinate())
		if radiusKm > 0 && d > radiusKm {
			continue
		}

		results = append(results, domain.RiderMatchResult{
			Rider:      rider,
			DistanceKm: d,
			EtaMinutes: geo.EtaMinutes(d, m.SpeedKmh),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if a.Rider.Rating != b.Rider.Rating {
			return a.Rider.Rating > b.Rider.Rating
		}
		return a.Rider.Online && !b.Rider.Online
	})

	return results, nil
}
