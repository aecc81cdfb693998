package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient implements the Redis operations needed by cache.Manager
type MockRedisClient struct {
	mu       sync.RWMutex
	data     map[string]string
	expiry   map[string]time.Time
	getError error
	setError error
	delError error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data:   make(map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (m *MockRedisClient) GetString(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getError != nil {
		return "", m.getError
	}

	// Check expiration
	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		return "", redis.Nil
	}

	val, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return val, nil
}

func (m *MockRedisClient) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setError != nil {
		return m.setError
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		strVal = string(data)
	}

	m.data[key] = strVal
	if expiration > 0 {
		m.expiry[key] = time.Now().Add(expiration)
	}
	return nil
}

func (m *MockRedisClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.delError != nil {
		return m.delError
	}

	for _, key := range keys {
		delete(m.data, key)
		delete(m.expiry, key)
	}
	return nil
}

// MockManager wraps cache operations for testing
type MockManager struct {
	redis *MockRedisClient
}

func NewMockManager(redis *MockRedisClient) *MockManager {
	return &MockManager{redis: redis}
}

func (m *MockManager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.redis.GetString(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), result)
}

func (m *MockManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.redis.SetWithExpiration(ctx, key, string(data), ttl)
}

func (m *MockManager) Delete(ctx context.Context, keys ...string) error {
	return m.redis.Delete(ctx, keys...)
}

type TestRouteResult struct {
	DistanceKm float64 `json:"distance_km"`
	DurationS  float64 `json:"duration_s"`
	Source     string  `json:"source"`
}

// ============== Cache Manager Tests ==============

func TestMockManager_Get_Success(t *testing.T) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	route := TestRouteResult{DistanceKm: 93.4, DurationS: 4005, Source: "osrm"}
	_ = manager.Set(ctx, "route:1", route, time.Hour)

	var result TestRouteResult
	err := manager.Get(ctx, "route:1", &result)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.DistanceKm != route.DistanceKm {
		t.Errorf("expected DistanceKm %f, got %f", route.DistanceKm, result.DistanceKm)
	}
	if result.Source != route.Source {
		t.Errorf("expected Source %s, got %s", route.Source, result.Source)
	}
}

func TestMockManager_Get_CacheMiss(t *testing.T) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	var result TestRouteResult
	err := manager.Get(ctx, "nonexistent", &result)
	if err == nil {
		t.Fatal("expected error for cache miss")
	}
}

func TestMockManager_Get_Error(t *testing.T) {
	mock := NewMockRedisClient()
	mock.getError = errors.New("connection error")
	manager := NewMockManager(mock)
	ctx := context.Background()

	var result TestRouteResult
	err := manager.Get(ctx, "route:1", &result)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "connection error" {
		t.Errorf("expected 'connection error', got %v", err)
	}
}

func TestMockManager_Get_InvalidJSON(t *testing.T) {
	mock := NewMockRedisClient()
	mock.data["invalid"] = "not valid json"
	manager := NewMockManager(mock)
	ctx := context.Background()

	var result TestRouteResult
	err := manager.Get(ctx, "invalid", &result)
	if err == nil {
		t.Fatal("expected JSON unmarshal error")
	}
}

func TestMockManager_Set_WithZeroTTL(t *testing.T) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	err := manager.Set(ctx, "route:1", TestRouteResult{}, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Verify no expiry was set
	if _, ok := mock.expiry["route:1"]; ok {
		t.Error("expected no expiry for zero TTL")
	}
}

func TestMockManager_Delete_Success(t *testing.T) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	_ = manager.Set(ctx, "route:1", TestRouteResult{Source: "osrm"}, time.Hour)
	_ = manager.Set(ctx, "route:2", TestRouteResult{Source: "graph_fallback"}, time.Hour)

	err := manager.Delete(ctx, "route:1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var result TestRouteResult
	if err := manager.Get(ctx, "route:1", &result); err == nil {
		t.Error("expected cache miss after deletion")
	}
	if err := manager.Get(ctx, "route:2", &result); err != nil {
		t.Error("expected route:2 to still exist")
	}
}

func TestMockManager_Delete_Error(t *testing.T) {
	mock := NewMockRedisClient()
	mock.delError = errors.New("delete error")
	manager := NewMockManager(mock)
	ctx := context.Background()

	if err := manager.Delete(ctx, "any"); err == nil {
		t.Fatal("expected error")
	}
}

// ============== Cache Keys Tests ==============

func TestCacheKeys_Route(t *testing.T) {
	key := Keys.Route("driving", 41.12, 20.80, 41.99, 21.43)
	expected := "route:driving:41.12000:20.80000:41.99000:21.43000"
	if key != expected {
		t.Errorf("expected %s, got %s", expected, key)
	}
}

func TestCacheKeys_Route_RoundsToFiveDecimals(t *testing.T) {
	a := Keys.Route("walking", 40.712801, -74.006001, 40.73061, -73.935242)
	b := Keys.Route("walking", 40.712800, -74.006000, 40.73061, -73.935242)
	if a != b {
		t.Errorf("keys for near-identical coordinates should match: %s vs %s", a, b)
	}
}

func TestCacheKeys_Geocode(t *testing.T) {
	key := Keys.Geocode("350 Fifth Avenue, New York")
	expected := "geocode:350 Fifth Avenue, New York"
	if key != expected {
		t.Errorf("expected %s, got %s", expected, key)
	}
}

func TestCacheKeys_ReverseGeocode(t *testing.T) {
	key := Keys.ReverseGeocode(40.7128, -74.0060)
	expected := "reverse:40.71280:-74.00600"
	if key != expected {
		t.Errorf("expected %s, got %s", expected, key)
	}
}

func TestCacheKeys_PlaceDetails(t *testing.T) {
	key := Keys.PlaceDetails("W123456")
	expected := "place:W123456"
	if key != expected {
		t.Errorf("expected %s, got %s", expected, key)
	}
}

func TestCacheKeys_UsageSummary(t *testing.T) {
	key := Keys.UsageSummary("user-42")
	expected := "usage:summary:user-42"
	if key != expected {
		t.Errorf("expected %s, got %s", expected, key)
	}
}

// ============== Cache TTL Tests ==============

func TestCacheTTL_Values(t *testing.T) {
	if TTL.Short() != 5*time.Minute {
		t.Errorf("unexpected short TTL %v", TTL.Short())
	}
	if TTL.Medium() != 15*time.Minute {
		t.Errorf("unexpected medium TTL %v", TTL.Medium())
	}
	if TTL.Long() != time.Hour {
		t.Errorf("unexpected long TTL %v", TTL.Long())
	}
	if TTL.VeryLong() != 24*time.Hour {
		t.Errorf("unexpected very long TTL %v", TTL.VeryLong())
	}
	if TTL.Permanent() != 7*24*time.Hour {
		t.Errorf("unexpected permanent TTL %v", TTL.Permanent())
	}
}

// ============== Expiration Tests ==============

func TestCache_TTLExpiration(t *testing.T) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	_ = manager.Set(ctx, "short-lived", "value", 1*time.Millisecond)

	time.Sleep(10 * time.Millisecond)

	var result string
	if err := manager.Get(ctx, "short-lived", &result); err == nil {
		t.Error("expected cache miss after TTL expiration")
	}
}

// ============== Concurrent Access Tests ==============

func TestCache_ConcurrentAccess(t *testing.T) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 100)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			route := TestRouteResult{DistanceKm: float64(idx)}
			key := Keys.Route("driving", float64(idx), 0, 0, 0)
			if err := manager.Set(ctx, key, route, time.Hour); err != nil {
				errCh <- err
			}
		}(i)
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			var result TestRouteResult
			key := Keys.Route("driving", float64(idx), 0, 0, 0)
			// Ignore cache miss errors, we just care about race conditions
			_ = manager.Get(ctx, key, &result)
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent operation error: %v", err)
	}
}

// ============== Benchmark Tests ==============

func BenchmarkCacheGet(b *testing.B) {
	mock := NewMockRedisClient()
	manager := NewMockManager(mock)
	ctx := context.Background()

	_ = manager.Set(ctx, "bench-key", TestRouteResult{DistanceKm: 12.5}, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var result TestRouteResult
		_ = manager.Get(ctx, "bench-key", &result)
	}
}

func BenchmarkCacheKeys_Route(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Keys.Route("driving", 37.7749, -122.4194, 37.3382, -121.8863)
	}
}
