package isochrone

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/geo"
	"github.com/waygrid/wayfinder/pkg/logger"
	"github.com/waygrid/wayfinder/pkg/validation"
	"go.uber.org/zap"
)

const (
	// minFetchRadiusM floors the graph fetch radius so short cutoffs still
	// load a routable neighborhood.
	minFetchRadiusM = 2000.0

	// radiusSlack widens the theoretical max-reach circle; street distance
	// exceeds great-circle distance, but not by more than half.
	radiusSlack = 1.5

	// defaultToleranceM is the polygon simplification tolerance when the
	// request does not specify one.
	defaultToleranceM = 50.0

	maxCompareModes  = 3
	maxBatchRequests = 10
)

// isochroneSpeeds are the assumed travel speeds (km/h) used to size the
// fetch radius per profile. Driving is deliberately above the flat profile
// speed so motorway-heavy regions are fully covered.
var isochroneSpeeds = map[string]float64{
	transport.ModeDriving: 60,
	transport.ModeCycling: 15,
	transport.ModeWalking: 5,
}

// GraphCache is the subset of the graph cache the builder needs.
type GraphCache interface {
	Get(ctx context.Context, lat, lon, radiusKm float64, profile string) (*graph.Graph, error)
	Status() (graph.Status, error)
	Purge()
	Preload(lat, lon, radiusKm float64, profile string) bool
	PruneDisk(maxAge time.Duration) (int, error)
}

// Service builds reachability contours from cached street graphs. Finished
// responses are memoized in a small LRU keyed by rounded center, cutoffs,
// profile, and tolerance.
type Service struct {
	graphs GraphCache
	memo   *lru.Cache[string, *Response]
	cfg    config.IsochroneConfig
}

// NewService creates the isochrone builder.
func NewService(cfg config.IsochroneConfig, graphs GraphCache) (*Service, error) {
	size := cfg.ResultCacheSize
	if size <= 0 {
		size = 200
	}
	memo, err := lru.New[string, *Response](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create isochrone result cache: %w", err)
	}
	return &Service{graphs: graphs, memo: memo, cfg: cfg}, nil
}

// Calculate builds one contour per requested cutoff, smallest first. A
// cutoff reaching fewer than three distinct points is reported as skipped
// rather than failing the request.
func (s *Service) Calculate(ctx context.Context, req Request) (*Response, error) {
	profile, err := transport.Normalize(req.Mode)
	if err != nil {
		return nil, err
	}
	lat, lng := req.Latitude.Float(), req.Longitude.Float()
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	if len(req.TravelTimes) == 0 {
		req.TravelTimes = []float64{5, 10, 15}
	}
	if err := validation.ValidateTravelTimes(req.TravelTimes); err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	cutoffs := append([]float64(nil), req.TravelTimes...)
	sort.Float64s(cutoffs)

	tolerance := req.ToleranceM
	if tolerance <= 0 {
		tolerance = defaultToleranceM
	}

	key := memoKey(lat, lng, cutoffs, profile, tolerance)
	if cached, ok := s.memo.Get(key); ok {
		return cached, nil
	}

	maxMinutes := cutoffs[len(cutoffs)-1]
	radiusKm := fetchRadiusKm(maxMinutes, profile)

	g, err := s.graphs.Get(ctx, lat, lng, radiusKm, profile)
	if err != nil {
		return nil, err
	}

	source, _, ok := graph.NearestNode(g, lat, lng)
	if !ok {
		return nil, common.NewUnavailableRegionError("region graph is empty", nil)
	}

	reachable, err := graph.ReachableWithin(ctx, g, source, maxMinutes*60, graph.ByTravelTime(profile))
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Center:     [2]float64{lat, lng},
		Mode:       profile,
		GraphKey:   g.Key,
		GraphNodes: g.NodeCount(),
		Contours:   make([]Contour, 0, len(cutoffs)),
	}

	for _, minutes := range cutoffs {
		resp.Contours = append(resp.Contours, buildContour(g, reachable, minutes, tolerance))
	}

	s.memo.Add(key, resp)
	logger.DebugContext(ctx, "isochrone computed",
		zap.String("graph", g.Key),
		zap.String("mode", profile),
		zap.Int("reachable", len(reachable)),
		zap.Float64s("cutoffs_min", cutoffs),
	)
	return resp, nil
}

// buildContour selects nodes within the cutoff, hulls them, simplifies the
// ring, and measures its area.
func buildContour(g *graph.Graph, reachable map[int64]float64, minutes, toleranceM float64) Contour {
	contour := Contour{TravelTimeMin: minutes}
	cutoffSec := minutes * 60

	var points []orb.Point
	for id, cost := range reachable {
		if cost > cutoffSec {
			continue
		}
		node := g.Nodes[id]
		points = append(points, orb.Point{node.Lon, node.Lat})
	}
	contour.ReachableNodes = len(points)

	if len(points) < 3 {
		contour.Skipped = true
		contour.SkipReason = "fewer than 3 reachable points"
		return contour
	}

	ring := convexHull(points)
	if ring == nil {
		contour.Skipped = true
		contour.SkipReason = "reachable points are collinear"
		return contour
	}

	toleranceDeg := toleranceM / geo.MetersPerDegree
	if simplified, ok := simplify.DouglasPeucker(toleranceDeg).Simplify(ring.Clone()).(orb.Ring); ok && len(simplified) >= 4 {
		ring = simplified
	}

	contour.AreaKm2 = geo.Round2(math.Abs(planar.Area(ring)) * geo.KmPerDegree * geo.KmPerDegree)
	contour.Ring = make([][2]float64, len(ring))
	for i, p := range ring {
		contour.Ring[i] = [2]float64{p[0], p[1]}
	}
	return contour
}

// fetchRadiusKm sizes the graph fetch region for the largest cutoff: the
// theoretical straight-line reach at the profile speed, widened by half,
// never below the floor.
func fetchRadiusKm(minutes float64, profile string) float64 {
	speed := isochroneSpeeds[profile]
	if speed <= 0 {
		speed = isochroneSpeeds[transport.ModeDriving]
	}

	radiusM := minutes * speed * 1000 / 60 * radiusSlack
	if radiusM < minFetchRadiusM {
		radiusM = minFetchRadiusM
	}
	return math.Ceil(radiusM / 1000)
}

func memoKey(lat, lon float64, cutoffs []float64, profile string, toleranceM float64) string {
	return fmt.Sprintf("%.4f:%.4f:%v:%s:%g",
		geo.RoundCoord(lat, 4), geo.RoundCoord(lon, 4), cutoffs, profile, toleranceM)
}

// Compare computes one cutoff across up to three transport modes in
// parallel, degrading per mode instead of failing the whole request.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	if len(req.Modes) == 0 || len(req.Modes) > maxCompareModes {
		return nil, common.NewValidationError(fmt.Sprintf("between 1 and %d modes are required", maxCompareModes))
	}

	profiles := make([]string, len(req.Modes))
	for i, mode := range req.Modes {
		profile, err := transport.Normalize(mode)
		if err != nil {
			return nil, err
		}
		profiles[i] = profile
	}

	timeout := time.Duration(s.cfg.CompareTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workers := s.cfg.CompareWorkers
	if workers <= 0 || workers > len(profiles) {
		workers = len(profiles)
	}

	results := make([]CompareEntry, len(profiles))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry := CompareEntry{Mode: profiles[i]}
				resp, err := s.Calculate(ctx, Request{
					Latitude:    req.Latitude,
					Longitude:   req.Longitude,
					TravelTimes: []float64{req.TravelTime},
					Mode:        profiles[i],
				})
				if err != nil {
					entry.Error = err.Error()
				} else {
					entry.Contours = resp.Contours
				}
				results[i] = entry
			}
		}()
	}
	for i := range profiles {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return &CompareResponse{
		Center:  [2]float64{req.Latitude.Float(), req.Longitude.Float()},
		Minutes: req.TravelTime,
		Results: results,
	}, nil
}

// Batch runs up to ten requests under one aggregate deadline. Individual
// failures are reported per entry.
func (s *Service) Batch(ctx context.Context, req BatchRequest) ([]BatchEntry, error) {
	if len(req.Requests) == 0 || len(req.Requests) > maxBatchRequests {
		return nil, common.NewValidationError(fmt.Sprintf("between 1 and %d requests are required", maxBatchRequests))
	}

	timeout := time.Duration(s.cfg.BatchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make([]BatchEntry, 0, len(req.Requests))
	for i, r := range req.Requests {
		entry := BatchEntry{Index: i}
		resp, err := s.Calculate(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				entry.Error = "batch deadline exceeded"
				entries = append(entries, entry)
				for j := i + 1; j < len(req.Requests); j++ {
					entries = append(entries, BatchEntry{Index: j, Error: "batch deadline exceeded"})
				}
				break
			}
			entry.Error = err.Error()
		} else {
			entry.Result = resp
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Stats computes the contours for a request and reports per-cutoff
// statistics plus the box enclosing every ring.
func (s *Service) Stats(ctx context.Context, req Request) (*StatsResponse, error) {
	resp, err := s.Calculate(ctx, req)
	if err != nil {
		return nil, err
	}

	stats := make([]ContourStats, 0, len(resp.Contours))
	var bounds *Bounds
	for _, contour := range resp.Contours {
		stats = append(stats, ContourStats{
			TravelTimeMin:  contour.TravelTimeMin,
			AreaKm2:        contour.AreaKm2,
			VertexCount:    len(contour.Ring),
			ReachableNodes: contour.ReachableNodes,
		})
		for _, p := range contour.Ring {
			lng, lat := p[0], p[1]
			if bounds == nil {
				bounds = &Bounds{Southwest: [2]float64{lat, lng}, Northeast: [2]float64{lat, lng}}
				continue
			}
			if lat < bounds.Southwest[0] {
				bounds.Southwest[0] = lat
			}
			if lng < bounds.Southwest[1] {
				bounds.Southwest[1] = lng
			}
			if lat > bounds.Northeast[0] {
				bounds.Northeast[0] = lat
			}
			if lng > bounds.Northeast[1] {
				bounds.Northeast[1] = lng
			}
		}
	}

	return &StatsResponse{
		Center:     resp.Center,
		Mode:       resp.Mode,
		GraphKey:   resp.GraphKey,
		GraphNodes: resp.GraphNodes,
		Bounds:     bounds,
		Statistics: stats,
	}, nil
}

// CacheStatus combines the graph cache layers with the result memo.
type CacheStatus struct {
	Graphs      graph.Status `json:"graphs"`
	MemoEntries int          `json:"result_cache_entries"`
}

// Status reports cache state for introspection.
func (s *Service) Status() (*CacheStatus, error) {
	graphStatus, err := s.graphs.Status()
	if err != nil {
		return nil, err
	}
	return &CacheStatus{Graphs: graphStatus, MemoEntries: s.memo.Len()}, nil
}

// ClearCache drops in-memory graphs and memoized results. Disk graphs stay.
func (s *Service) ClearCache() {
	s.graphs.Purge()
	s.memo.Purge()
}

// pruneMaxAge is the cutoff used when clearing with scope=old.
const pruneMaxAge = 30 * 24 * time.Hour

// PruneOldGraphs removes disk graphs not refreshed in the last thirty days
// and returns how many files were deleted.
func (s *Service) PruneOldGraphs() (int, error) {
	return s.graphs.PruneDisk(pruneMaxAge)
}

// defaultPreloadRadiusKm sizes the fetch around each default city.
const defaultPreloadRadiusKm = 5

// preloadCities is warmed when a preload request names no coordinates.
var preloadCities = []struct {
	Name     string
	Lat, Lng float64
}{
	{"new_york", 40.7128, -74.0060},
	{"los_angeles", 34.0522, -118.2437},
	{"chicago", 41.8781, -87.6298},
	{"houston", 29.7604, -95.3698},
	{"phoenix", 33.4484, -112.0740},
}

// Preload queues background region fetches and returns how many were
// accepted. With coordinates it queues one region sized for the given
// cutoff; without, it queues the default city set, crossed with every
// profile unless the request names one.
func (s *Service) Preload(req PreloadRequest) (int, error) {
	if req.Latitude == nil || req.Longitude == nil {
		profiles := transport.Modes()
		if req.Mode != "" {
			profile, err := transport.Normalize(req.Mode)
			if err != nil {
				return 0, err
			}
			profiles = []string{profile}
		}

		queued := 0
		for _, city := range preloadCities {
			for _, profile := range profiles {
				if s.graphs.Preload(city.Lat, city.Lng, defaultPreloadRadiusKm, profile) {
					queued++
				}
			}
		}
		return queued, nil
	}

	profile, err := transport.Normalize(req.Mode)
	if err != nil {
		return 0, err
	}
	lat, lng := req.Latitude.Float(), req.Longitude.Float()
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return 0, common.NewValidationError(err.Error())
	}
	if req.TravelTime <= 0 || req.TravelTime > 120 {
		return 0, common.NewValidationError("travel_time must be between 1 and 120 minutes")
	}

	if s.graphs.Preload(lat, lng, fetchRadiusKm(req.TravelTime, profile), profile) {
		return 1, nil
	}
	return 0, nil
}
