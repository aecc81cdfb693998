package matrix

import (
	"context"
	"math"

	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/geo"
	"github.com/waygrid/wayfinder/pkg/logger"
	"github.com/waygrid/wayfinder/pkg/validation"
	"go.uber.org/zap"
)

const (
	// minRegionRadiusKm keeps tiny task clusters from producing graphs too
	// small to route through.
	minRegionRadiusKm = 5.0

	// regionBufferKm pads the fetch radius past the farthest task so snapped
	// nodes near the edge still have outgoing roads.
	regionBufferKm = 2.0
)

// GraphProvider yields region graphs; *graph.Cache is the production
// implementation.
type GraphProvider interface {
	Get(ctx context.Context, lat, lon, radiusKm float64, profile string) (*graph.Graph, error)
}

// Service computes distance matrices over street graphs and orders
// pickup/delivery routes across them.
type Service struct {
	graphs GraphProvider
}

// NewService creates the route solver service.
func NewService(graphs GraphProvider) *Service {
	return &Service{graphs: graphs}
}

// Solve validates the request, builds the pairwise matrix, and returns the
// greedy-optimized route. When no graph can be loaded for the region the
// matrix degrades to great-circle estimates instead of failing.
func (s *Service) Solve(ctx context.Context, req SolveRequest) (*SolveResponse, error) {
	profile, err := transport.Normalize(req.Mode)
	if err != nil {
		return nil, err
	}

	for _, task := range req.Tasks {
		if err := validation.ValidateCoordinates(task.Latitude, task.Longitude); err != nil {
			return nil, common.NewValidationError(err.Error())
		}
	}
	if err := ValidateTasks(req.Tasks); err != nil {
		return nil, err
	}

	m := s.buildMatrix(ctx, req.Tasks, profile)
	solution, err := Solve(m, req.Tasks)
	if err != nil {
		return nil, err
	}

	return s.assemble(m, req.Tasks, solution, profile), nil
}

func (s *Service) buildMatrix(ctx context.Context, tasks []Task, profile string) *Matrix {
	lat, lon, radiusKm := regionFor(tasks)

	g, err := s.graphs.Get(ctx, lat, lon, radiusKm, profile)
	if err != nil {
		logger.WarnContext(ctx, "region graph unavailable, pricing matrix by great-circle",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Float64("radius_km", radiusKm),
			zap.Error(err),
		)
		return BuildGreatCircle(tasks)
	}

	m, err := Build(ctx, g, tasks, profile)
	if err != nil {
		logger.WarnContext(ctx, "matrix build failed, pricing matrix by great-circle", zap.Error(err))
		return BuildGreatCircle(tasks)
	}
	return m
}

// regionFor returns the centroid of the tasks and a fetch radius covering
// the farthest task plus a buffer, never below the minimum.
func regionFor(tasks []Task) (lat, lon, radiusKm float64) {
	for _, task := range tasks {
		lat += task.Latitude
		lon += task.Longitude
	}
	lat /= float64(len(tasks))
	lon /= float64(len(tasks))

	maxDist := 0.0
	for _, task := range tasks {
		if d := geo.Haversine(lat, lon, task.Latitude, task.Longitude); d > maxDist {
			maxDist = d
		}
	}

	radiusKm = math.Ceil(maxDist + regionBufferKm)
	if radiusKm < minRegionRadiusKm {
		radiusKm = minRegionRadiusKm
	}
	return lat, lon, radiusKm
}

func (s *Service) assemble(m *Matrix, tasks []Task, solution *Solution, profile string) *SolveResponse {
	labels := make([]string, len(solution.Order))
	for i, idx := range solution.Order {
		labels[i] = m.Labels[idx]
	}

	var coords [][2]float64
	segments := make([]SegmentDetail, 0, len(solution.Legs))
	for _, leg := range solution.Legs {
		legCoords := m.Coordinates(leg.From, leg.To)
		if len(coords) > 0 && len(legCoords) > 0 && coords[len(coords)-1] == legCoords[0] {
			legCoords = legCoords[1:]
		}
		coords = append(coords, legCoords...)

		segments = append(segments, SegmentDetail{
			PackageID:       tasks[leg.To].PackageID,
			DistanceKm:      geo.Round2(leg.DistanceKm),
			Segment:         m.Labels[leg.From] + " → " + m.Labels[leg.To],
			DurationSegment: FormatDuration(leg.Seconds),
		})
	}

	waypoints := make([][2]float64, len(solution.Order))
	for i, idx := range solution.Order {
		waypoints[i] = [2]float64{tasks[idx].Latitude, tasks[idx].Longitude}
	}

	return &SolveResponse{
		OptimalRoute:            labels,
		MinimumDistanceKm:       geo.Round2(solution.DistanceKm),
		TravelTimeSeconds:       int(solution.Seconds + 0.5),
		TravelTime:              FormatDuration(solution.Seconds),
		OptimalRouteCoordinates: coords,
		Waypoints:               waypoints,
		SegmentDetails:          segments,
		Mode:                    profile,
		MatrixSource:            m.Source,
	}
}
