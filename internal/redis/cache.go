package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RiderCacheTTL is short because rider flags change often during a shift.
const RiderCacheTTL = 30 * time.Second

const riderCachePrefix = "cache:rider:"

// CachedRider is the rider profile slice the tracking screen needs. Caching
// it keeps websocket attach and nearby responses off the riders table.
type CachedRider struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	PhotoURL string  `json:"photo_url"`
	Rating   float64 `json:"rating"`
}

// CacheStore handles rider profile caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetRider retrieves a rider profile from cache. A miss returns (nil, nil).
func (s *CacheStore) GetRider(ctx context.Context, riderID string) (*CachedRider, error) {
	data, err := s.client.Get(ctx, riderCachePrefix+riderID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var rider CachedRider
	if err := json.Unmarshal(data, &rider); err != nil {
		return nil, err
	}
	return &rider, nil
}

// SetRider caches a rider profile.
func (s *CacheStore) SetRider(ctx context.Context, rider *CachedRider) error {
	data, err := json.Marshal(rider)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, riderCachePrefix+rider.ID, data, RiderCacheTTL).Err()
}

// InvalidateRider drops a rider's cache entry.
func (s *CacheStore) InvalidateRider(ctx context.Context, riderID string) error {
	return s.client.Del(ctx, riderCachePrefix+riderID).Err()
}
