package graph

import (
	"container/heap"
	"context"
	"math"

	"github.com/waygrid/wayfinder/pkg/geo"
)

// WeightFunc extracts the cost of traversing an edge.
type WeightFunc func(e *Edge) float64

// ByLength weights edges by their physical length in meters.
func ByLength() WeightFunc {
	return func(e *Edge) float64 { return e.LengthM }
}

// ByTravelTime weights edges by precomputed traversal seconds for a profile.
// Edges missing an annotation for the profile fall back to length at the
// profile's flat speed.
func ByTravelTime(profile string) WeightFunc {
	return func(e *Edge) float64 {
		if t, ok := e.TravelTime[profile]; ok && t > 0 {
			return t
		}
		return travelSeconds(e.LengthM, ProfileSpeed(profile))
	}
}

// PathResult is one source-to-target shortest path.
type PathResult struct {
	Path []int64
	Cost float64
}

type queueItem struct {
	node  int64
	cost  float64
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index = i; pq[j].index = j }
func (pq *priorityQueue) Push(x interface{}) { item := x.(*queueItem); item.index = len(*pq); *pq = append(*pq, item) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// checkInterval controls how often the search polls ctx; checking every pop
// would dominate the inner loop on large graphs.
const checkInterval = 1024

// ShortestPath runs Dijkstra from one node to another and returns the node
// path and total cost. The second return is false when the target is
// unreachable.
func ShortestPath(ctx context.Context, g *Graph, from, to int64, weight WeightFunc) (PathResult, bool, error) {
	results, err := ShortestPathsToMany(ctx, g, from, []int64{to}, weight)
	if err != nil {
		return PathResult{}, false, err
	}
	result, ok := results[to]
	return result, ok, nil
}

// ShortestPathsToMany runs a single Dijkstra pass from one source and
// collects paths to every target, stopping early once all targets are
// settled. Unreachable targets are absent from the result map.
func ShortestPathsToMany(ctx context.Context, g *Graph, from int64, targets []int64, weight WeightFunc) (map[int64]PathResult, error) {
	if _, ok := g.Nodes[from]; !ok {
		return map[int64]PathResult{}, nil
	}

	pending := make(map[int64]struct{}, len(targets))
	for _, t := range targets {
		if t != from {
			pending[t] = struct{}{}
		}
	}

	dist := map[int64]float64{from: 0}
	prev := make(map[int64]int64)
	visited := make(map[int64]struct{})

	pq := &priorityQueue{{node: from, cost: 0}}
	heap.Init(pq)

	iterations := 0
	for pq.Len() > 0 && len(pending) > 0 {
		iterations++
		if iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		item := heap.Pop(pq).(*queueItem)
		if _, done := visited[item.node]; done {
			continue
		}
		visited[item.node] = struct{}{}
		delete(pending, item.node)

		for i := range g.Edges[item.node] {
			edge := &g.Edges[item.node][i]
			next := edge.To
			if _, done := visited[next]; done {
				continue
			}
			candidate := item.cost + weight(edge)
			if current, seen := dist[next]; !seen || candidate < current {
				dist[next] = candidate
				prev[next] = item.node
				heap.Push(pq, &queueItem{node: next, cost: candidate})
			}
		}
	}

	results := make(map[int64]PathResult, len(targets))
	for _, t := range targets {
		if t == from {
			results[t] = PathResult{Path: []int64{from}, Cost: 0}
			continue
		}
		cost, ok := dist[t]
		if !ok {
			continue
		}
		if _, settled := visited[t]; !settled {
			continue
		}
		results[t] = PathResult{Path: reconstructPath(prev, from, t), Cost: cost}
	}
	return results, nil
}

func reconstructPath(prev map[int64]int64, from, to int64) []int64 {
	var reversed []int64
	for at := to; ; {
		reversed = append(reversed, at)
		if at == from {
			break
		}
		parent, ok := prev[at]
		if !ok {
			return nil
		}
		at = parent
	}

	path := make([]int64, len(reversed))
	for i, n := range reversed {
		path[len(reversed)-1-i] = n
	}
	return path
}

// ReachableWithin runs a cutoff Dijkstra and returns every node whose cost
// from the source is at most the cutoff, mapped to that cost. Used by the
// isochrone builder with travel-time weights.
func ReachableWithin(ctx context.Context, g *Graph, from int64, cutoff float64, weight WeightFunc) (map[int64]float64, error) {
	if _, ok := g.Nodes[from]; !ok {
		return map[int64]float64{}, nil
	}

	dist := map[int64]float64{from: 0}
	visited := make(map[int64]struct{})

	pq := &priorityQueue{{node: from, cost: 0}}
	heap.Init(pq)

	iterations := 0
	for pq.Len() > 0 {
		iterations++
		if iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		item := heap.Pop(pq).(*queueItem)
		if item.cost > cutoff {
			break
		}
		if _, done := visited[item.node]; done {
			continue
		}
		visited[item.node] = struct{}{}

		for i := range g.Edges[item.node] {
			edge := &g.Edges[item.node][i]
			next := edge.To
			if _, done := visited[next]; done {
				continue
			}
			candidate := item.cost + weight(edge)
			if candidate > cutoff {
				continue
			}
			if current, seen := dist[next]; !seen || candidate < current {
				dist[next] = candidate
				heap.Push(pq, &queueItem{node: next, cost: candidate})
			}
		}
	}

	reachable := make(map[int64]float64, len(visited))
	for node := range visited {
		reachable[node] = dist[node]
	}
	return reachable, nil
}

// NearestNode finds the graph vertex closest to a coordinate by linear scan
// and returns its ID and distance in kilometres. Returns false on an empty
// graph.
func NearestNode(g *Graph, lat, lon float64) (int64, float64, bool) {
	best := int64(0)
	bestDist := math.MaxFloat64
	found := false

	for id, node := range g.Nodes {
		d := geo.Haversine(lat, lon, node.Lat, node.Lon)
		if d < bestDist {
			best = id
			bestDist = d
			found = true
		}
	}
	return best, bestDist, found
}
