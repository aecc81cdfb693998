package graph

import (
	"context"
	"math"

	"github.com/waygrid/wayfinder/pkg/logger"
	"go.uber.org/zap"
)

// clipMarginKm pads the requested region when clipping a country graph so
// boundary roads keep their continuations.
const clipMarginKm = 2.0

// CountryProvider serves region requests from a disk-provisioned
// country-wide graph, clipped to the request's bounding box. When the
// country graph is missing or empty around the request it degrades to the
// cache's radius fetch path.
type CountryProvider struct {
	cache   *Cache
	country string
}

// NewCountryProvider wraps the cache with country-first lookups.
func NewCountryProvider(cache *Cache, country string) *CountryProvider {
	return &CountryProvider{cache: cache, country: country}
}

// Get returns the clipped country subgraph for the region, or the radius
// graph when the country graph cannot serve it.
func (p *CountryProvider) Get(ctx context.Context, lat, lon, radiusKm float64, profile string) (*Graph, error) {
	g, err := p.cache.GetCountry(p.country, profile)
	if err == nil {
		halfLat := (radiusKm + clipMarginKm) / 111.32
		halfLon := halfLat
		if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 0.01 {
			halfLon = halfLat / cosLat
		}
		sub := g.Clip(lat-halfLat, lon-halfLon, lat+halfLat, lon+halfLon)
		if sub.NodeCount() > 0 {
			return sub, nil
		}
		logger.DebugContext(ctx, "country graph empty around request, falling back to radius fetch",
			zap.String("country", p.country),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
	}
	return p.cache.Get(ctx, lat, lon, radiusKm, profile)
}
