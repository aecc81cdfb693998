package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/waygrid/wayfinder/pkg/logger"
	redisclient "github.com/waygrid/wayfinder/pkg/redis"
	"go.uber.org/zap"
)

// Manager handles caching operations with JSON serialization
type Manager struct {
	redis *redisclient.Client
}

// NewManager creates a new cache manager
func NewManager(redis *redisclient.Client) *Manager {
	return &Manager{redis: redis}
}

// Get retrieves a cached value and unmarshals it into result
func (m *Manager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.redis.RetryableGet(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// Set marshals and caches a value with expiration
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.redis.RetryableSet(ctx, key, string(data), ttl)
}

// GetOrSet retrieves from cache or executes fn and caches the result
func (m *Manager) GetOrSet(ctx context.Context, key string, ttl time.Duration, result interface{}, fn func() (interface{}, error)) error {
	// Try cache first
	err := m.Get(ctx, key, result)
	if err == nil {
		return nil // Cache hit
	}

	// Cache miss - execute function
	data, err := fn()
	if err != nil {
		return err
	}

	// Cache the result (non-blocking)
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Set(cacheCtx, key, data, ttl); err != nil {
			logger.Warn("failed to cache value", zap.String("key", key), zap.Error(err))
		}
	}()

	// Marshal the result into the result pointer
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return json.Unmarshal(jsonData, result)
}

// Delete removes a key from cache
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.redis.RetryableDelete(ctx, keys...)
}

// Invalidate removes keys matching a pattern
func (m *Manager) Invalidate(ctx context.Context, pattern string) error {
	// Note: This uses SCAN which is safe for production
	var cursor uint64

	for {
		var keys []string
		var err error

		result := m.redis.Scan(ctx, cursor, pattern, 100)
		keys, cursor, err = result.Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := m.redis.Delete(ctx, keys...); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return nil
}

// CacheKeys defines common cache key patterns
type CacheKeys struct{}

var Keys = CacheKeys{}

// Route returns the cache key for an upstream route lookup. Coordinates are
// rounded to five decimals so nearby requests share entries.
func (k CacheKeys) Route(profile string, originLat, originLng, destLat, destLng float64) string {
	return fmt.Sprintf("route:%s:%.5f:%.5f:%.5f:%.5f", profile, originLat, originLng, destLat, destLng)
}

// Geocode returns the cache key for a forward geocoding lookup
func (k CacheKeys) Geocode(address string) string {
	return fmt.Sprintf("geocode:%s", address)
}

// ReverseGeocode returns the cache key for a reverse geocoding lookup
func (k CacheKeys) ReverseGeocode(latitude, longitude float64) string {
	return fmt.Sprintf("reverse:%.5f:%.5f", latitude, longitude)
}

// PlaceDetails returns the cache key for a place lookup
func (k CacheKeys) PlaceDetails(placeID string) string {
	return fmt.Sprintf("place:%s", placeID)
}

// UsageSummary returns the cache key for aggregated usage statistics
func (k CacheKeys) UsageSummary(userID string) string {
	return fmt.Sprintf("usage:summary:%s", userID)
}

// TTL defines common cache TTL durations
type CacheTTL struct{}

var TTL = CacheTTL{}

func (t CacheTTL) Short() time.Duration     { return 5 * time.Minute }
func (t CacheTTL) Medium() time.Duration    { return 15 * time.Minute }
func (t CacheTTL) Long() time.Duration      { return 1 * time.Hour }
func (t CacheTTL) VeryLong() time.Duration  { return 24 * time.Hour }
func (t CacheTTL) Permanent() time.Duration { return 7 * 24 * time.Hour }
