package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/geo"
	"github.com/waygrid/wayfinder/pkg/logger"
	"go.uber.org/zap"
)

// nearbyFallbackKm bounds how far a cached graph's center may be from the
// requested center before it stops being a usable stand-in while the exact
// region is still being fetched.
const nearbyFallbackKm = 50.0

// prefetchStepDeg is the offset applied in each compass direction when
// warming neighbor regions after a successful fetch.
const prefetchStepDeg = 0.02

type prefetchJob struct {
	lat      float64
	lon      float64
	radiusKm float64
	profile  string
}

// Fetcher produces graphs for regions that are in neither cache layer.
// Loader is the production implementation.
type Fetcher interface {
	FetchRadius(ctx context.Context, lat, lon, radiusKm float64, profile string) (*Graph, error)
	FetchBBox(ctx context.Context, south, west, north, east float64, profile string) (*Graph, error)
}

// Cache layers graph access: a small in-memory LRU in front of the disk
// store in front of the Overpass loader. Fetches are deduplicated per key
// and successful fetches enqueue the eight surrounding regions for
// background warming.
type Cache struct {
	memory *lru.Cache[string, *Graph]
	store  *Store
	loader Fetcher

	mu       sync.Mutex
	inflight map[string]chan struct{}

	prefetch chan prefetchJob
	stop     chan struct{}
	done     chan struct{}
}

// NewCache wires the three layers together and starts the prefetch worker.
func NewCache(cfg config.GraphConfig, store *Store, loader Fetcher) (*Cache, error) {
	memory, err := lru.NewWithEvict(cfg.MaxMemoryGraphs, func(key string, _ *Graph) {
		logger.Debug("graph evicted from memory", zap.String("key", key))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create graph LRU: %w", err)
	}

	c := &Cache{
		memory:   memory,
		store:    store,
		loader:   loader,
		inflight: make(map[string]chan struct{}),
		prefetch: make(chan prefetchJob, cfg.PrefetchQueue),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.prefetchWorker()
	return c, nil
}

// Stop shuts down the prefetch worker and waits for it to drain.
func (c *Cache) Stop() {
	close(c.stop)
	<-c.done
}

// Get returns the graph for a circular region, fetching and persisting it on
// a full miss. When another request is already fetching the same key, the
// nearest already-cached graph within 50 km is returned instead of blocking,
// falling back to waiting for the in-flight fetch when nothing is close
// enough.
func (c *Cache) Get(ctx context.Context, lat, lon, radiusKm float64, profile string) (*Graph, error) {
	key := RegionKey(lat, lon, radiusKm, profile)

	if g, ok := c.memory.Get(key); ok {
		return g, nil
	}

	c.mu.Lock()
	wait, busy := c.inflight[key]
	if !busy {
		wait = make(chan struct{})
		c.inflight[key] = wait
	}
	c.mu.Unlock()

	if busy {
		if g := c.nearestCached(lat, lon, profile); g != nil {
			logger.DebugContext(ctx, "serving nearby cached graph while fetch in flight",
				zap.String("requested", key),
				zap.String("served", g.Key),
			)
			return g, nil
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if g, ok := c.memory.Get(key); ok {
			return g, nil
		}
		return nil, common.NewUnavailableRegionError("region graph could not be loaded", nil)
	}

	g, fetched, err := c.loadOrFetch(ctx, key, lat, lon, radiusKm, profile)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(wait)

	if err != nil {
		return nil, err
	}

	// Neighbor warming only follows a network fetch. Disk hits mean the
	// region was warm before, so its neighbors either exist already or were
	// deliberately pruned.
	if fetched {
		c.enqueueNeighbors(lat, lon, radiusKm, profile)
	}
	return g, nil
}

// GetBBox returns the graph for a rectangular region. Bounding-box fetches
// are one-shot requests, so no neighbor prefetch is queued for them.
func (c *Cache) GetBBox(ctx context.Context, south, west, north, east float64, profile string) (*Graph, error) {
	key := BBoxKey(south, west, north, east, profile)

	if g, ok := c.memory.Get(key); ok {
		return g, nil
	}
	if g, err := c.store.Load(key); err == nil {
		c.memory.Add(key, g)
		return g, nil
	}

	g, err := c.loader.FetchBBox(ctx, south, west, north, east, profile)
	if err != nil {
		return nil, err
	}
	c.persist(g)
	return g, nil
}

// GetCountry returns a disk-provisioned country-wide graph. Country graphs
// are produced offline and never fetched from Overpass.
func (c *Cache) GetCountry(country, profile string) (*Graph, error) {
	key := CountryKey(country, profile)

	if g, ok := c.memory.Get(key); ok {
		return g, nil
	}

	g, err := c.store.Load(key)
	if err != nil {
		if errors.Is(err, ErrNotInStore) {
			return nil, common.NewUnavailableRegionError(
				fmt.Sprintf("no provisioned graph for country %q", country), err)
		}
		return nil, err
	}
	c.memory.Add(key, g)
	return g, nil
}

// Preload enqueues a region for background fetching without blocking. Returns
// false when the prefetch queue is full.
func (c *Cache) Preload(lat, lon, radiusKm float64, profile string) bool {
	select {
	case c.prefetch <- prefetchJob{lat: lat, lon: lon, radiusKm: radiusKm, profile: profile}:
		return true
	default:
		return false
	}
}

// Status describes the cache layers for the introspection endpoint.
type Status struct {
	MemoryKeys    []string      `json:"memory_keys"`
	MemoryCount   int           `json:"memory_count"`
	InFlight      []string      `json:"in_flight"`
	PrefetchQueue int           `json:"prefetch_queue"`
	Disk          []StoredGraph `json:"disk"`
}

// Status reports the current state of all cache layers.
func (c *Cache) Status() (Status, error) {
	disk, err := c.store.List()
	if err != nil {
		return Status{}, err
	}

	c.mu.Lock()
	inflight := make([]string, 0, len(c.inflight))
	for key := range c.inflight {
		inflight = append(inflight, key)
	}
	c.mu.Unlock()

	return Status{
		MemoryKeys:    c.memory.Keys(),
		MemoryCount:   c.memory.Len(),
		InFlight:      inflight,
		PrefetchQueue: len(c.prefetch),
		Disk:          disk,
	}, nil
}

// Purge drops every graph from memory. Disk files are untouched.
func (c *Cache) Purge() {
	c.memory.Purge()
}

// PruneDisk removes disk graphs whose files are older than maxAge and
// returns how many were removed. Memory entries are untouched.
func (c *Cache) PruneDisk(maxAge time.Duration) (int, error) {
	return c.store.RemoveOlderThan(maxAge)
}

// loadOrFetch tries the disk store before the network. The fetched flag
// reports whether the graph came from the loader.
func (c *Cache) loadOrFetch(ctx context.Context, key string, lat, lon, radiusKm float64, profile string) (*Graph, bool, error) {
	if g, err := c.store.Load(key); err == nil {
		c.memory.Add(key, g)
		return g, false, nil
	} else if !errors.Is(err, ErrNotInStore) {
		logger.WarnContext(ctx, "graph store read failed, refetching",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	g, err := c.loader.FetchRadius(ctx, lat, lon, radiusKm, profile)
	if err != nil {
		return nil, false, err
	}
	c.persist(g)
	return g, true, nil
}

func (c *Cache) persist(g *Graph) {
	if err := c.store.Save(g); err != nil {
		logger.Warn("failed to persist graph",
			zap.String("key", g.Key),
			zap.Error(err),
		)
	}
	c.memory.Add(g.Key, g)
}

// nearestCached scans in-memory graphs for one of the same profile whose
// center lies within nearbyFallbackKm of the requested point.
func (c *Cache) nearestCached(lat, lon float64, profile string) *Graph {
	var best *Graph
	bestDist := nearbyFallbackKm

	for _, key := range c.memory.Keys() {
		cLat, cLon, cProfile, ok := parseRegionKey(key)
		if !ok || cProfile != profile {
			continue
		}
		d := geo.Haversine(lat, lon, cLat, cLon)
		if d <= bestDist {
			if g, hit := c.memory.Peek(key); hit {
				best = g
				bestDist = d
			}
		}
	}
	return best
}

// parseRegionKey recovers the center and profile from a RegionKey-formatted
// key. Bounding-box and country keys do not parse and return false.
func parseRegionKey(key string) (lat, lon float64, profile string, ok bool) {
	parts := strings.Split(key, "_")
	if len(parts) != 4 || !strings.HasSuffix(parts[2], "km") {
		return 0, 0, "", false
	}

	lat, errLat := strconv.ParseFloat(parts[0], 64)
	lon, errLon := strconv.ParseFloat(parts[1], 64)
	if errLat != nil || errLon != nil {
		return 0, 0, "", false
	}
	return lat, lon, parts[3], true
}

func (c *Cache) enqueueNeighbors(lat, lon, radiusKm float64, profile string) {
	queued := 0
	for _, dLat := range []float64{-prefetchStepDeg, 0, prefetchStepDeg} {
		for _, dLon := range []float64{-prefetchStepDeg, 0, prefetchStepDeg} {
			if dLat == 0 && dLon == 0 {
				continue
			}
			if c.Preload(lat+dLat, lon+dLon, radiusKm, profile) {
				queued++
			}
		}
	}
	if queued > 0 {
		logger.Debug("queued neighbor regions for prefetch",
			zap.Int("queued", queued),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
	}
}

func (c *Cache) prefetchWorker() {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			return
		case job := <-c.prefetch:
			c.runPrefetch(job)
		}
	}
}

func (c *Cache) runPrefetch(job prefetchJob) {
	key := RegionKey(job.lat, job.lon, job.radiusKm, job.profile)

	if _, ok := c.memory.Get(key); ok {
		return
	}
	if c.store.Has(key) {
		return
	}

	c.mu.Lock()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return
	}
	wait := make(chan struct{})
	c.inflight[key] = wait
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
	g, err := c.loader.FetchRadius(ctx, job.lat, job.lon, job.radiusKm, job.profile)
	cancel()

	if err == nil {
		c.persist(g)
	} else {
		logger.Debug("prefetch fetch failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(wait)
}

const prefetchTimeout = 60 * time.Second
