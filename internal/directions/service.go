package directions

import (
	"context"
	"fmt"
	"time"

	"github.com/twpayne/go-polyline"
	"github.com/waygrid/wayfinder/internal/matrix"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/cache"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/geo"
	"github.com/waygrid/wayfinder/pkg/logger"
	"github.com/waygrid/wayfinder/pkg/resilience"
	"github.com/waygrid/wayfinder/pkg/validation"
	"go.uber.org/zap"
)

// router produces a route through ordered (lat,lng) points.
type router interface {
	Route(ctx context.Context, profile string, points [][2]float64) (*osrmRoute, error)
}

// Service serves directions from OSRM with a street-graph fallback and a
// Redis result cache for plain origin-destination queries.
type Service struct {
	osrm     router
	fallback router
	cache    *cache.Manager
	solver   *matrix.Service
}

// NewService wires the OSRM client and the graph fallback. cacheManager and
// solver may be nil in reduced deployments; PDP requires the solver.
func NewService(cfg config.OSRMConfig, breaker *resilience.CircuitBreaker, graphs matrix.GraphProvider, cacheManager *cache.Manager, solver *matrix.Service) *Service {
	return &Service{
		osrm:     newOSRMClient(cfg, breaker),
		fallback: &graphFallback{graphs: graphs},
		cache:    cacheManager,
		solver:   solver,
	}
}

// Route returns turn-by-turn directions through the waypoints, visited in
// order unless the request asks for reordering.
func (s *Service) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	profile, err := transport.Normalize(req.Mode)
	if err != nil {
		return nil, err
	}
	if len(req.Waypoints) < 2 {
		return nil, common.NewValidationError("at least 2 waypoints are required")
	}

	points := make([][2]float64, len(req.Waypoints))
	for i, wp := range req.Waypoints {
		if err := validation.ValidateCoordinates(wp.Lat.Float(), wp.Lng.Float()); err != nil {
			return nil, common.NewValidationError(err.Error())
		}
		points[i] = [2]float64{wp.Lat.Float(), wp.Lng.Float()}
	}

	if req.OptimizeRoute && len(points) > 2 {
		points = s.optimizeOrder(ctx, points, req.Mode)
	}

	cacheable := len(points) == 2 && !req.UseFallback && s.cache != nil
	var cacheKey string
	if cacheable {
		cacheKey = cache.Keys.Route(profile,
			points[0][0], points[0][1],
			points[1][0], points[1][1],
		)
		var cached RouteResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			cached.Metadata.Cached = true
			return &cached, nil
		}
	}

	resp, err := s.route(ctx, profile, points, req.UseFallback)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, resp, cache.TTL.Medium()); err != nil {
			logger.WarnContext(ctx, "failed to cache route", zap.Error(err))
		}
	}
	return resp, nil
}

// optimizeOrder reorders the stops with the route solver, keeping the first
// point as the start. Any failure keeps the original order.
func (s *Service) optimizeOrder(ctx context.Context, points [][2]float64, mode string) [][2]float64 {
	if s.solver == nil {
		return points
	}

	tasks := make([]matrix.Task, len(points))
	tasks[0] = matrix.Task{Latitude: points[0][0], Longitude: points[0][1], TaskType: matrix.TaskCurrent}
	for i := 1; i < len(points); i++ {
		tasks[i] = matrix.Task{Latitude: points[i][0], Longitude: points[i][1], TaskType: matrix.TaskWaypoint}
	}

	optimized, err := s.solver.Solve(ctx, matrix.SolveRequest{Tasks: tasks, Mode: mode})
	if err != nil || len(optimized.Waypoints) != len(points) {
		logger.WarnContext(ctx, "route optimization failed, keeping waypoint order", zap.Error(err))
		return points
	}
	return optimized.Waypoints
}

// route tries OSRM first and degrades to the street graph on any upstream
// failure; forceFallback skips OSRM entirely.
func (s *Service) route(ctx context.Context, profile string, points [][2]float64, forceFallback bool) (*RouteResponse, error) {
	started := time.Now()

	var upstreamErr error
	if !forceFallback {
		result, err := s.osrm.Route(ctx, profile, points)
		if err == nil {
			return timed(assemble(result, profile, SourceOSRM), started), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		upstreamErr = err
		logger.WarnContext(ctx, "routing upstream failed, using graph fallback", zap.Error(err))
	}

	fallbackResult, fallbackErr := s.fallback.Route(ctx, profile, points)
	if fallbackErr != nil {
		logger.ErrorContext(ctx, "graph fallback failed",
			zap.NamedError("upstream_error", upstreamErr),
			zap.Error(fallbackErr),
		)
		return nil, fallbackErr
	}
	return timed(assemble(fallbackResult, profile, SourceGraphFallback), started), nil
}

func timed(resp *RouteResponse, started time.Time) *RouteResponse {
	resp.Metadata.ExecutionMs = geo.Round2(float64(time.Since(started).Microseconds()) / 1000)
	return resp
}

// Modes lists the accepted transport modes and aliases.
func (s *Service) Modes() ModesResponse {
	return ModesResponse{
		Modes:   transport.Modes(),
		Aliases: transport.Aliases(),
		Default: transport.ModeDriving,
	}
}

// PDP optimizes the pickup/delivery order and then routes the optimized
// sequence. A directions failure does not void the optimization: the
// response degrades to partial_success carrying the solver output and the
// failure reason.
func (s *Service) PDP(ctx context.Context, req PDPRequest) (*PDPResponse, error) {
	tasks, err := pdpTasks(req)
	if err != nil {
		return nil, err
	}

	optimization, err := s.solver.Solve(ctx, matrix.SolveRequest{Tasks: tasks, Mode: req.Mode})
	if err != nil {
		return nil, err
	}

	profile, err := transport.Normalize(req.Mode)
	if err != nil {
		return nil, err
	}

	route, err := s.route(ctx, profile, optimization.Waypoints, false)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &PDPResponse{
			Status:            "partial_success",
			MatrixCalculation: "success",
			Optimization:      optimization,
			DirectionsError:   err.Error(),
		}, nil
	}

	return &PDPResponse{
		Status:            "success",
		MatrixCalculation: "success",
		Optimization:      optimization,
		Directions:        route,
	}, nil
}

// pdpTasks expands the wire shape into solver tasks. Each location must be
// typed and carry a location_id, and the set needs at least one pickup and
// one delivery.
func pdpTasks(req PDPRequest) ([]matrix.Task, error) {
	if len(req.Locations) < 2 {
		return nil, common.NewValidationError("at least 2 locations are required")
	}

	tasks := make([]matrix.Task, 0, len(req.Locations)+1)
	tasks = append(tasks, matrix.Task{
		Latitude:  req.CurrentLocation.Latitude.Float(),
		Longitude: req.CurrentLocation.Longitude.Float(),
		TaskType:  matrix.TaskCurrent,
	})

	pickups, deliveries := 0, 0
	for i, loc := range req.Locations {
		if loc.Type == "" || loc.LocationID == "" {
			return nil, common.NewValidationError(
				fmt.Sprintf("location %d must have type and location_id", i))
		}
		switch loc.Type {
		case matrix.TaskPickup:
			pickups++
		case matrix.TaskDelivery:
			deliveries++
		}
		tasks = append(tasks, matrix.Task{
			Latitude:   loc.Latitude.Float(),
			Longitude:  loc.Longitude.Float(),
			TaskType:   loc.Type,
			LocationID: loc.LocationID,
			PackageID:  loc.PackageID,
		})
	}

	if pickups == 0 || deliveries == 0 {
		return nil, common.NewValidationError("at least one pickup and one delivery location are required")
	}
	return tasks, nil
}

// assemble converts a raw route into the response payload, deriving the
// encoded polyline and the (lat,lng) decoded variant from the geometry.
func assemble(result *osrmRoute, profile, source string) *RouteResponse {
	decoded := make([][2]float64, len(result.Geometry))
	encodable := make([][]float64, len(result.Geometry))
	for i, p := range result.Geometry {
		decoded[i] = [2]float64{p[1], p[0]}
		encodable[i] = []float64{p[1], p[0]}
	}

	provider := "osrm"
	if source == SourceGraphFallback {
		provider = "graph"
	}

	steps := result.Steps
	if steps == nil {
		steps = []Step{}
	}
	waypoints := result.Waypoints
	if waypoints == nil {
		waypoints = []Waypoint{}
	}

	return &RouteResponse{
		Status:          "success",
		Source:          source,
		Mode:            profile,
		DistanceKm:      geo.Round2(result.DistanceM / 1000.0),
		DurationSec:     result.DurationSec,
		DurationStr:     matrix.FormatDuration(result.DurationSec),
		Steps:           steps,
		Geometry:        result.Geometry,
		DecodedPolyline: decoded,
		Polyline:        string(polyline.EncodeCoords(encodable)),
		Waypoints:       waypoints,
		Metadata:        Metadata{Provider: provider, Profile: profile},
	}
}
