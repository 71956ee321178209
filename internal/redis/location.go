package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const riderLocationKey = "riders:locations"

// RiderGeoEntry is one rider position in the geo index.
type RiderGeoEntry struct {
	RiderID string
	Lat     float64
	Lng     float64
}

// LocationStore keeps the rider geo index in Redis. It is a radius prefilter
// for nearby queries; the single authoritative current-location row per
// rider lives in Postgres (rider_locations).
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a rider's position using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, riderID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, riderLocationKey, &redis.GeoLocation{
		Name:      riderID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyRiders returns rider positions within the given radius in
// kilometers, nearest first.
func (s *LocationStore) FindNearbyRiders(ctx context.Context, lat, lng, radiusKm float64) ([]RiderGeoEntry, error) {
	results, err := s.client.GeoRadius(ctx, riderLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]RiderGeoEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, RiderGeoEntry{
			RiderID: r.Name,
			Lat:     r.Latitude,
			Lng:     r.Longitude,
		})
	}

	return entries, nil
}

// RemoveLocation removes a rider from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, riderID string) error {
	return s.client.ZRem(ctx, riderLocationKey, riderID).Err()
}
