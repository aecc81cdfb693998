package directions

import (
	"context"
	"math"

	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/internal/matrix"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/geo"
)

const (
	fallbackMinRadiusKm = 5.0
	fallbackBufferKm    = 2.0
)

// graphFallback computes directions from the cached street network when the
// OSRM upstream is unavailable. Geometry follows the stored node paths and
// durations use the same realistic model as the route solver.
type graphFallback struct {
	graphs matrix.GraphProvider
}

// Route walks each consecutive point pair over the region graph. Points are
// (lat, lng).
func (f *graphFallback) Route(ctx context.Context, profile string, points [][2]float64) (*osrmRoute, error) {
	lat, lon, radiusKm := fallbackRegion(points)

	g, err := f.graphs.Get(ctx, lat, lon, radiusKm, profile)
	if err != nil {
		return nil, err
	}

	result := &osrmRoute{}
	weight := graph.ByTravelTime(profile)

	for i := 0; i+1 < len(points); i++ {
		fromID, _, okFrom := graph.NearestNode(g, points[i][0], points[i][1])
		toID, _, okTo := graph.NearestNode(g, points[i+1][0], points[i+1][1])
		if !okFrom || !okTo {
			return nil, common.NewUnavailableRegionError("region graph is empty", nil)
		}

		leg, reachable, err := graph.ShortestPath(ctx, g, fromID, toID, weight)
		if err != nil {
			return nil, err
		}
		if !reachable {
			return nil, common.NewRouteUnavailableError("no road connection between the given points", nil)
		}

		distKm, seconds := matrix.PathStats(g, leg.Path, profile)
		result.DistanceM += distKm * 1000
		result.DurationSec += seconds

		start := len(result.Geometry)
		for _, id := range leg.Path {
			node := g.Nodes[id]
			point := [2]float64{node.Lon, node.Lat}
			if n := len(result.Geometry); n > 0 && result.Geometry[n-1] == point {
				continue
			}
			result.Geometry = append(result.Geometry, point)
		}
		if len(result.Geometry) == start {
			continue
		}

		first := result.Geometry[start]
		result.Steps = append(result.Steps, Step{
			Name:     "",
			Distance: distKm * 1000,
			Duration: seconds,
			Maneuver: Maneuver{Type: "depart", Location: first},
		})
		if i == 0 {
			result.Waypoints = append(result.Waypoints, Waypoint{Location: first})
		}
		last := result.Geometry[len(result.Geometry)-1]
		result.Waypoints = append(result.Waypoints, Waypoint{Location: last})
	}

	if len(result.Geometry) > 0 {
		result.Steps = append(result.Steps, Step{
			Maneuver: Maneuver{Type: "arrive", Location: result.Geometry[len(result.Geometry)-1]},
		})
	}
	return result, nil
}

func fallbackRegion(points [][2]float64) (lat, lon, radiusKm float64) {
	for _, p := range points {
		lat += p[0]
		lon += p[1]
	}
	lat /= float64(len(points))
	lon /= float64(len(points))

	maxDist := 0.0
	for _, p := range points {
		if d := geo.Haversine(lat, lon, p[0], p[1]); d > maxDist {
			maxDist = d
		}
	}

	radiusKm = math.Ceil(maxDist + fallbackBufferKm)
	if radiusKm < fallbackMinRadiusKm {
		radiusKm = fallbackMinRadiusKm
	}
	return lat, lon, radiusKm
}
