package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/feed"
	"dispatch/internal/metrics"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// RiderService handles rider-side operations: location pings and the
// online / shift flags the rider's own client owns.
type RiderService struct {
	riderRepo     repository.RiderRepository
	locationRepo  repository.RiderLocationRepository
	locationStore redis.LocationStoreInterface // optional
	cacheStore    *redis.CacheStore            // optional
	changes       feed.ChangeFeed              // optional
	log           *slog.Logger
}

// NewRiderService creates a new RiderService.
func NewRiderService(
	riderRepo repository.RiderRepository,
	locationRepo repository.RiderLocationRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore *redis.CacheStore,
	changes feed.ChangeFeed,
	log *slog.Logger,
) *RiderService {
	return &RiderService{
		riderRepo:     riderRepo,
		locationRepo:  locationRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		changes:       changes,
		log:           log,
	}
}

// UpdateLocationRequest contains one rider location ping.
type UpdateLocationRequest struct {
	RiderID string
	Lat     float64
	Lng     float64
	// PingedAt is the client timestamp of the ping; zero means now.
	PingedAt time.Time
}

// UpdateLocation overwrites the rider's single current-location row, updates
// the geo index, and publishes the position on the change feed. Last write
// wins: a ping older than the stored row still overwrites it.
func (s *RiderService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.RiderID == "" {
		return ErrInvalidRiderID
	}
	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}

	pingedAt := req.PingedAt
	if pingedAt.IsZero() {
		pingedAt = time.Now()
	}

	loc := domain.RiderLocation{Lat: req.Lat, Lng: req.Lng, UpdatedAt: pingedAt}
	if err := s.locationRepo.Upsert(ctx, req.RiderID, loc); err != nil {
		return err
	}

	metrics.LocationPings.Inc()

	// Geo index and feed publish are secondary to the stored row. A failure
	// here leaves tracking one ping behind, not the system inconsistent.
	if s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, req.RiderID, req.Lat, req.Lng); err != nil {
			s.log.Warn("geo index update failed", "rider_id", req.RiderID, "error", err)
		}
	}

	s.publishLocation(ctx, req.RiderID, loc)
	return nil
}

// SetStatus updates the rider's online / shift flags. A rider that goes
// fully unavailable is dropped from the geo index so matching stops
// offering them.
func (s *RiderService) SetStatus(ctx context.Context, riderID string, online, shiftActive bool) error {
	if riderID == "" {
		return ErrInvalidRiderID
	}

	if err := s.riderRepo.SetFlags(ctx, riderID, online, shiftActive); err != nil {
		return err
	}

	if !online && !shiftActive && s.locationStore != nil {
		if err := s.locationStore.RemoveLocation(ctx, riderID); err != nil {
			s.log.Warn("geo index removal failed", "rider_id", riderID, "error", err)
		}
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateRider(ctx, riderID)
	}

	return nil
}

// Profile retrieves the rider profile, cache first.
func (s *RiderService) Profile(ctx context.Context, riderID string) (*domain.Rider, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetRider(ctx, riderID)
		if err == nil && cached != nil {
			return &domain.Rider{
				ID:       cached.ID,
				Name:     cached.Name,
				Phone:    cached.Phone,
				PhotoURL: cached.PhotoURL,
				Rating:   cached.Rating,
			}, nil
		}
	}

	rider, err := s.riderRepo.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetRider(ctx, &redis.CachedRider{
			ID:       rider.ID,
			Name:     rider.Name,
			Phone:    rider.Phone,
			PhotoURL: rider.PhotoURL,
			Rating:   rider.Rating,
		})
	}

	return rider, nil
}

func (s *RiderService) publishLocation(ctx context.Context, riderID string, loc domain.RiderLocation) {
	if s.changes == nil {
		return
	}

	payload, err := json.Marshal(loc)
	if err != nil {
		s.log.Error("location marshal failed", "rider_id", riderID, "error", err)
		return
	}
	if err := s.changes.Publish(ctx, feed.RiderLocationTopic(riderID), payload); err != nil {
		s.log.Warn("location publish failed", "rider_id", riderID, "error", err)
	}
}
