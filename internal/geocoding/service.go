package geocoding

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/waygrid/wayfinder/pkg/cache"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/logger"
	"github.com/waygrid/wayfinder/pkg/resilience"
	"github.com/waygrid/wayfinder/pkg/validation"
	"go.uber.org/zap"
)

const maxBatchAddresses = 100

// upstream is the geocoding backend; satisfied by nominatimClient.
type upstream interface {
	Search(ctx context.Context, address string) (*GeocodeResult, error)
	Reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error)
	Details(ctx context.Context, placeID int64) (*PlaceDetails, error)
}

// Service resolves addresses through Nominatim with a Redis cache in front.
// Only successful lookups are cached; misses always retry upstream.
type Service struct {
	upstream upstream
	cache    *cache.Manager
}

// NewService creates the geocoding service.
func NewService(cfg config.NominatimConfig, breaker *resilience.CircuitBreaker, cacheManager *cache.Manager) *Service {
	return &Service{
		upstream: newNominatimClient(cfg, breaker),
		cache:    cacheManager,
	}
}

// Geocode resolves a free-form address to coordinates.
func (s *Service) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, common.NewValidationError("address must not be empty")
	}

	key := cache.Keys.Geocode(strings.ToLower(address))
	if s.cache != nil {
		var cached GeocodeResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	result, err := s.upstream.Search(ctx, address)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, result, cache.TTL.Long())
	return result, nil
}

// ReverseGeocode resolves coordinates to an address.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	key := cache.Keys.ReverseGeocode(lat, lon)
	if s.cache != nil {
		var cached ReverseResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	result, err := s.upstream.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, result, cache.TTL.Long())
	return result, nil
}

// Batch geocodes up to 100 addresses, reporting per-address outcomes.
// Repeated addresses within one batch resolve once.
func (s *Service) Batch(ctx context.Context, addresses []string) (*BatchResponse, error) {
	if len(addresses) == 0 {
		return nil, common.NewValidationError("addresses must not be empty")
	}
	if len(addresses) > maxBatchAddresses {
		return nil, common.NewValidationError("too many addresses, maximum batch size is 100")
	}

	resp := &BatchResponse{Results: make([]BatchEntry, 0, len(addresses))}
	seen := make(map[string]BatchEntry)

	for _, address := range addresses {
		normalized := strings.ToLower(strings.TrimSpace(address))
		if entry, ok := seen[normalized]; ok {
			entry.Address = address
			resp.Results = append(resp.Results, entry)
			continue
		}

		entry := BatchEntry{Address: address}
		result, err := s.Geocode(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			entry.Error = err.Error()
		} else {
			entry.Result = result
		}

		seen[normalized] = entry
		resp.Results = append(resp.Results, entry)
	}
	return resp, nil
}

// Details fetches the full upstream record for a place ID.
func (s *Service) Details(ctx context.Context, placeID int64) (*PlaceDetails, error) {
	if placeID <= 0 {
		return nil, common.NewValidationError("place_id must be a positive integer")
	}

	key := cache.Keys.PlaceDetails(strconv.FormatInt(placeID, 10))
	if s.cache != nil {
		var cached PlaceDetails
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	result, err := s.upstream.Details(ctx, placeID)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, result, cache.TTL.VeryLong())
	return result, nil
}

func (s *Service) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		logger.WarnContext(ctx, "failed to cache geocoding result",
			zap.String("key", key), zap.Error(err))
	}
}
