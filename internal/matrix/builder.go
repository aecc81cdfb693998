package matrix

import (
	"context"
	"fmt"

	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/pkg/geo"
	"github.com/waygrid/wayfinder/pkg/logger"
	"go.uber.org/zap"
)

const (
	// congestionFactor inflates free-flow driving times toward observed
	// urban travel times.
	congestionFactor = 1.4

	// intersectionPenaltySec is added per intermediate node on a path to
	// account for junctions and turns.
	intersectionPenaltySec = 15.0

	// startOverheadSec covers departure and arrival slack on every leg.
	startOverheadSec = 20.0

	// unreachableSpeedKmh prices legs the graph cannot connect, using the
	// great-circle distance at a conservative speed.
	unreachableSpeedKmh = 25.0
)

// Matrix source labels reported to clients.
const (
	SourceGraph       = "graph"
	SourceGreatCircle = "great_circle"
)

// Matrix holds pairwise distances, realistic durations, and the node paths
// that produced them. Repaired marks pairs priced by great-circle estimate
// because the graph had no connecting path.
type Matrix struct {
	Size        int
	Labels      []string
	DistancesKm [][]float64
	Durations   [][]float64
	Paths       [][][]int64
	Repaired    [][]bool
	Snapped     [][2]float64
	Source      string
	g           *graph.Graph
}

// Coordinates returns the lat/lng polyline for a stored path, falling back
// to the straight segment between the snapped endpoints on repaired pairs.
func (m *Matrix) Coordinates(from, to int) [][2]float64 {
	path := m.Paths[from][to]
	if len(path) == 0 || m.g == nil {
		return [][2]float64{m.Snapped[from], m.Snapped[to]}
	}

	coords := make([][2]float64, 0, len(path))
	for _, id := range path {
		node, ok := m.g.Nodes[id]
		if !ok {
			continue
		}
		coords = append(coords, [2]float64{node.Lat, node.Lon})
	}
	return coords
}

// Build computes the full pairwise matrix over the street graph. Each task is
// snapped to its nearest vertex; one Dijkstra pass per origin covers the row.
// Pairs the graph cannot connect are repaired with great-circle estimates.
func Build(ctx context.Context, g *graph.Graph, tasks []Task, profile string) (*Matrix, error) {
	m := newMatrix(tasks, SourceGraph)
	m.g = g

	nodes := make([]int64, len(tasks))
	for i, task := range tasks {
		id, _, ok := graph.NearestNode(g, task.Latitude, task.Longitude)
		if !ok {
			return nil, fmt.Errorf("graph %s has no nodes", g.Key)
		}
		nodes[i] = id
		m.Snapped[i] = [2]float64{g.Nodes[id].Lat, g.Nodes[id].Lon}
	}

	weight := graph.ByLength()
	repaired := 0
	for i := range tasks {
		results, err := graph.ShortestPathsToMany(ctx, g, nodes[i], nodes, weight)
		if err != nil {
			return nil, err
		}

		for j := range tasks {
			if i == j {
				continue
			}
			result, ok := results[nodes[j]]
			if !ok {
				m.repairPair(i, j, tasks)
				repaired++
				continue
			}

			distKm, seconds := PathStats(g, result.Path, profile)
			m.DistancesKm[i][j] = distKm
			m.Durations[i][j] = seconds
			m.Paths[i][j] = result.Path
		}
	}

	if repaired > 0 {
		logger.WarnContext(ctx, "matrix pairs repaired with great-circle estimates",
			zap.Int("repaired", repaired),
			zap.String("graph", g.Key),
		)
	}
	return m, nil
}

// BuildGreatCircle prices every pair by great-circle distance at the
// conservative repair speed. Used when no graph could be loaded at all.
func BuildGreatCircle(tasks []Task) *Matrix {
	m := newMatrix(tasks, SourceGreatCircle)
	for i := range tasks {
		m.Snapped[i] = [2]float64{tasks[i].Latitude, tasks[i].Longitude}
	}
	for i := range tasks {
		for j := range tasks {
			if i == j {
				continue
			}
			m.repairPair(i, j, tasks)
		}
	}
	return m
}

func newMatrix(tasks []Task, source string) *Matrix {
	n := len(tasks)
	m := &Matrix{
		Size:        n,
		Labels:      make([]string, n),
		DistancesKm: make([][]float64, n),
		Durations:   make([][]float64, n),
		Paths:       make([][][]int64, n),
		Repaired:    make([][]bool, n),
		Snapped:     make([][2]float64, n),
		Source:      source,
	}
	for i, task := range tasks {
		m.Labels[i] = task.Label(i)
		m.DistancesKm[i] = make([]float64, n)
		m.Durations[i] = make([]float64, n)
		m.Paths[i] = make([][]int64, n)
		m.Repaired[i] = make([]bool, n)
	}
	return m
}

func (m *Matrix) repairPair(i, j int, tasks []Task) {
	distKm := geo.Haversine(tasks[i].Latitude, tasks[i].Longitude, tasks[j].Latitude, tasks[j].Longitude)
	m.DistancesKm[i][j] = distKm
	m.Durations[i][j] = geo.TravelSeconds(distKm, unreachableSpeedKmh)
	m.Repaired[i][j] = true
}

// PathStats walks a node path and returns its length in km and a realistic
// duration: free-flow seconds scaled by congestion (driving only), plus a
// per-intersection penalty and a flat leg overhead.
func PathStats(g *graph.Graph, path []int64, profile string) (float64, float64) {
	if len(path) < 2 {
		return 0, startOverheadSec
	}

	totalM := 0.0
	baseSec := 0.0
	weight := graph.ByTravelTime(profile)
	for i := 0; i+1 < len(path); i++ {
		edge := edgeBetween(g, path[i], path[i+1])
		if edge == nil {
			continue
		}
		totalM += edge.LengthM
		baseSec += weight(edge)
	}

	if profile == "driving" || profile == "" {
		baseSec *= congestionFactor
	}

	intersections := len(path) - 2
	if intersections < 0 {
		intersections = 0
	}
	seconds := baseSec + float64(intersections)*intersectionPenaltySec + startOverheadSec
	return totalM / 1000.0, seconds
}

func edgeBetween(g *graph.Graph, from, to int64) *graph.Edge {
	adj := g.Edges[from]
	for i := range adj {
		if adj[i].To == to {
			return &adj[i]
		}
	}
	return nil
}
