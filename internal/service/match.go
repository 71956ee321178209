package service

import (
	"context"
	"log/slog"

	"dispatch/internal/domain"
	"dispatch/internal/match"
	"dispatch/internal/metrics"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const defaultSearchRadiusKm = 5.0

// MatchService ranks candidate riders for a customer location. The rider
// directory supplies the candidate set; the Redis geo index narrows it down
// before the pure matcher ranks what is left.
type MatchService struct {
	riderRepo     repository.RiderRepository
	locationStore redis.LocationStoreInterface // optional prefilter
	matcher       *match.Matcher
	radiusKm      float64
	log           *slog.Logger
}

// NewMatchService creates a new MatchService. radiusKm <= 0 uses the default.
func NewMatchService(
	riderRepo repository.RiderRepository,
	locationStore redis.LocationStoreInterface,
	matcher *match.Matcher,
	radiusKm float64,
	log *slog.Logger,
) *MatchService {
	if radiusKm <= 0 {
		radiusKm = defaultSearchRadiusKm
	}
	return &MatchService{
		riderRepo:     riderRepo,
		locationStore: locationStore,
		matcher:       matcher,
		radiusKm:      radiusKm,
		log:           log,
	}
}

// FindNearby returns ranked candidates around the customer. A missing
// customer location is an error; an empty result is not.
func (s *MatchService) FindNearby(ctx context.Context, customer *domain.Coordinate, radiusKm float64) ([]domain.RiderMatchResult, error) {
	if customer == nil {
		return nil, match.ErrLocationUnavailable
	}
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}

	metrics.MatchQueries.Inc()

	candidates, err := s.riderRepo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	candidates = s.prefilter(ctx, customer, candidates, radiusKm)

	return s.matcher.FindNearby(customer, candidates, radiusKm)
}

// prefilter narrows candidates via the Redis geo index. Any index failure
// falls back to the full directory set; the matcher still enforces the
// radius, so the index is a shortcut, never the authority.
func (s *MatchService) prefilter(ctx context.Context, customer *domain.Coordinate, candidates []*domain.Rider, radiusKm float64) []*domain.Rider {
	if s.locationStore == nil {
		return candidates
	}

	entries, err := s.locationStore.FindNearbyRiders(ctx, customer.Lat, customer.Lng, radiusKm)
	if err != nil {
		s.log.Warn("geo prefilter failed, using full candidate set", "error", err)
		return candidates
	}

	// A cold index carries no information; only a populated one narrows.
	if len(entries) == 0 {
		return candidates
	}

	near := make(map[string]bool, len(entries))
	for _, e := range entries {
		near[e.RiderID] = true
	}

	filtered := make([]*domain.Rider, 0, len(entries))
	for _, rider := range candidates {
		if near[rider.ID] {
			filtered = append(filtered, rider)
		}
	}
	return filtered
}
