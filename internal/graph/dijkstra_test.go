package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineGraph builds 1 -> 2 -> 3 -> 4 with 100 m residential segments in both
// directions, plus an isolated node 99.
func lineGraph() *Graph {
	g := NewGraph("test", "driving")
	lons := []float64{0, 0.001, 0.002, 0.003}
	for i, lon := range lons {
		g.AddNode(Node{ID: int64(i + 1), Lat: 0, Lon: lon})
	}
	for i := int64(1); i < 4; i++ {
		g.AddEdge(i, Edge{To: i + 1, LengthM: 100, Highway: "residential"})
		g.AddEdge(i+1, Edge{To: i, LengthM: 100, Highway: "residential"})
	}
	g.AddNode(Node{ID: 99, Lat: 10, Lon: 10})
	AnnotateTravelTimes(g)
	return g
}

func TestShortestPath_ByLength(t *testing.T) {
	g := lineGraph()

	result, ok, err := ShortestPath(context.Background(), g, 1, 4, ByLength())

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3, 4}, result.Path)
	assert.InDelta(t, 300, result.Cost, 0.001)
}

func TestShortestPath_Unreachable(t *testing.T) {
	g := lineGraph()

	_, ok, err := ShortestPath(context.Background(), g, 1, 99, ByLength())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShortestPath_PrefersCheaperRoute(t *testing.T) {
	g := NewGraph("test", "driving")
	for i := int64(1); i <= 4; i++ {
		g.AddNode(Node{ID: i})
	}
	// Direct edge is longer than the two-hop detour.
	g.AddEdge(1, Edge{To: 4, LengthM: 500})
	g.AddEdge(1, Edge{To: 2, LengthM: 100})
	g.AddEdge(2, Edge{To: 3, LengthM: 100})
	g.AddEdge(3, Edge{To: 4, LengthM: 100})

	result, ok, err := ShortestPath(context.Background(), g, 1, 4, ByLength())

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3, 4}, result.Path)
	assert.InDelta(t, 300, result.Cost, 0.001)
}

func TestShortestPathsToMany(t *testing.T) {
	g := lineGraph()

	results, err := ShortestPathsToMany(context.Background(), g, 1, []int64{1, 3, 4, 99}, ByLength())

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, []int64{1}, results[1].Path)
	assert.InDelta(t, 200, results[3].Cost, 0.001)
	assert.InDelta(t, 300, results[4].Cost, 0.001)
	_, reachable := results[99]
	assert.False(t, reachable)
}

func TestShortestPathsToMany_MissingSource(t *testing.T) {
	g := lineGraph()

	results, err := ShortestPathsToMany(context.Background(), g, 12345, []int64{1}, ByLength())

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestByTravelTime_UsesAnnotations(t *testing.T) {
	g := lineGraph()

	result, ok, err := ShortestPath(context.Background(), g, 1, 2, ByTravelTime("driving"))

	require.NoError(t, err)
	require.True(t, ok)
	// 100 m of residential at 40 km/h is 9 seconds.
	assert.InDelta(t, 9, result.Cost, 0.01)
}

func TestReachableWithin_Cutoff(t *testing.T) {
	g := lineGraph()

	// 250 m cutoff reaches nodes 1, 2, 3 but not 4.
	reachable, err := ReachableWithin(context.Background(), g, 1, 250, ByLength())

	require.NoError(t, err)
	assert.Contains(t, reachable, int64(1))
	assert.Contains(t, reachable, int64(2))
	assert.Contains(t, reachable, int64(3))
	assert.NotContains(t, reachable, int64(4))
	assert.InDelta(t, 200, reachable[3], 0.001)
}

func TestReachableWithin_MonotonicGrowth(t *testing.T) {
	g := lineGraph()

	small, err := ReachableWithin(context.Background(), g, 1, 150, ByLength())
	require.NoError(t, err)
	large, err := ReachableWithin(context.Background(), g, 1, 350, ByLength())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(large), len(small))
	for node := range small {
		assert.Contains(t, large, node)
	}
}

func TestNearestNode(t *testing.T) {
	g := lineGraph()

	id, distKm, ok := NearestNode(g, 0, 0.0011)

	require.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.Less(t, distKm, 0.02)
}

func TestNearestNode_EmptyGraph(t *testing.T) {
	g := NewGraph("empty", "driving")

	_, _, ok := NearestNode(g, 0, 0)

	assert.False(t, ok)
}
