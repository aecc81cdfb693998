package isochrone

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/geo"
)

type stubGraphCache struct {
	mu        sync.Mutex
	g         *graph.Graph
	err       error
	getCalls  int
	purged    bool
	preloadOK bool
	pruned    int
}

func (s *stubGraphCache) Get(_ context.Context, _, _, _ float64, _ string) (*graph.Graph, error) {
	s.mu.Lock()
	s.getCalls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.g, nil
}

func (s *stubGraphCache) Status() (graph.Status, error) {
	return graph.Status{MemoryCount: 1}, nil
}

func (s *stubGraphCache) Purge() {
	s.mu.Lock()
	s.purged = true
	s.mu.Unlock()
}

func (s *stubGraphCache) Preload(_, _, _ float64, _ string) bool {
	return s.preloadOK
}

func (s *stubGraphCache) PruneDisk(_ time.Duration) (int, error) {
	return s.pruned, nil
}

func (s *stubGraphCache) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

// diamondGraph is a center node with four arms one minute out and four outer
// nodes two minutes out, in each compass direction.
func diamondGraph() *graph.Graph {
	g := graph.NewGraph("40.700_-74.000_5km_driving", "driving")

	add := func(id int64, lat, lon float64) {
		g.AddNode(graph.Node{ID: id, Lat: lat, Lon: lon})
	}
	connect := func(a, b int64) {
		times := map[string]float64{"driving": 60, "walking": 60, "cycling": 60}
		g.AddEdge(a, graph.Edge{To: b, LengthM: 111, Highway: "residential", TravelTime: times})
		g.AddEdge(b, graph.Edge{To: a, LengthM: 111, Highway: "residential", TravelTime: times})
	}

	add(1, 40.700, -74.000)
	add(2, 40.701, -74.000)
	add(3, 40.699, -74.000)
	add(4, 40.700, -73.999)
	add(5, 40.700, -74.001)
	add(6, 40.702, -74.000)
	add(7, 40.698, -74.000)
	add(8, 40.700, -73.998)
	add(9, 40.700, -74.002)

	connect(1, 2)
	connect(1, 3)
	connect(1, 4)
	connect(1, 5)
	connect(2, 6)
	connect(3, 7)
	connect(4, 8)
	connect(5, 9)
	return g
}

func newTestService(t *testing.T, graphs GraphCache) *Service {
	t.Helper()
	svc, err := NewService(config.IsochroneConfig{
		ResultCacheSize: 16,
		CompareWorkers:  2,
		CompareTimeout:  5,
		BatchTimeout:    10,
	}, graphs)
	require.NoError(t, err)
	return svc
}

func TestCalculate_ContoursGrowWithCutoff(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	resp, err := svc.Calculate(context.Background(), Request{
		Latitude:    40.700,
		Longitude:   -74.000,
		TravelTimes: []float64{2, 1},
		Mode:        "driving",
	})

	require.NoError(t, err)
	assert.Equal(t, "driving", resp.Mode)
	assert.Equal(t, 9, resp.GraphNodes)
	require.Len(t, resp.Contours, 2)

	// Cutoffs come back ascending regardless of request order.
	first, second := resp.Contours[0], resp.Contours[1]
	assert.Equal(t, 1.0, first.TravelTimeMin)
	assert.Equal(t, 2.0, second.TravelTimeMin)

	assert.False(t, first.Skipped)
	assert.Equal(t, 5, first.ReachableNodes)
	assert.Equal(t, 9, second.ReachableNodes)
	assert.Greater(t, second.AreaKm2, first.AreaKm2)

	require.GreaterOrEqual(t, len(first.Ring), 4)
	assert.Equal(t, first.Ring[0], first.Ring[len(first.Ring)-1])
}

func TestCalculate_RingVerticesAreLngLat(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	resp, err := svc.Calculate(context.Background(), Request{
		Latitude:    40.700,
		Longitude:   -74.000,
		TravelTimes: []float64{2},
		Mode:        "driving",
	})

	require.NoError(t, err)
	require.Len(t, resp.Contours, 1)
	for _, p := range resp.Contours[0].Ring {
		assert.InDelta(t, -74.0, p[0], 0.05)
		assert.InDelta(t, 40.7, p[1], 0.05)
	}
}

func TestCalculate_ModeAliasNormalized(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	resp, err := svc.Calculate(context.Background(), Request{
		Latitude:    40.700,
		Longitude:   -74.000,
		TravelTimes: []float64{1},
		Mode:        "car",
	})

	require.NoError(t, err)
	assert.Equal(t, "driving", resp.Mode)
}

func TestCalculate_SkipsSparseCutoff(t *testing.T) {
	g := graph.NewGraph("sparse", "driving")
	g.AddNode(graph.Node{ID: 1, Lat: 40.700, Lon: -74.000})
	g.AddNode(graph.Node{ID: 2, Lat: 40.701, Lon: -74.000})
	g.AddEdge(1, graph.Edge{To: 2, LengthM: 111, TravelTime: map[string]float64{"driving": 60}})

	svc := newTestService(t, &stubGraphCache{g: g})

	resp, err := svc.Calculate(context.Background(), Request{
		Latitude:    40.700,
		Longitude:   -74.000,
		TravelTimes: []float64{5},
	})

	require.NoError(t, err)
	require.Len(t, resp.Contours, 1)
	assert.True(t, resp.Contours[0].Skipped)
	assert.Equal(t, "fewer than 3 reachable points", resp.Contours[0].SkipReason)
	assert.Empty(t, resp.Contours[0].Ring)
}

func TestCalculate_MemoizesResults(t *testing.T) {
	graphs := &stubGraphCache{g: diamondGraph()}
	svc := newTestService(t, graphs)

	req := Request{Latitude: 40.700, Longitude: -74.000, TravelTimes: []float64{2, 1}}
	_, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	// Same cutoffs in a different order hit the memo.
	req.TravelTimes = []float64{1, 2}
	_, err = svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, graphs.calls())
}

func TestCalculate_RejectsBadInput(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	_, err := svc.Calculate(context.Background(), Request{
		Latitude: 95, Longitude: -74.0, TravelTimes: []float64{5},
	})
	assert.Error(t, err)

	_, err = svc.Calculate(context.Background(), Request{
		Latitude: 40.7, Longitude: -74.0, TravelTimes: nil,
	})
	assert.Error(t, err)

	_, err = svc.Calculate(context.Background(), Request{
		Latitude: 40.7, Longitude: -74.0, TravelTimes: []float64{5}, Mode: "rocket",
	})
	assert.Error(t, err)
}

func TestFetchRadiusKm(t *testing.T) {
	// 30 min driving at 60 km/h reaches 30 km; widened by half.
	assert.Equal(t, 45.0, fetchRadiusKm(30, "driving"))

	// Short walking cutoffs hit the 2 km floor.
	assert.Equal(t, 2.0, fetchRadiusKm(5, "walking"))

	// 60 min walking at 5 km/h is 5 km, times 1.5, ceiled.
	assert.Equal(t, 8.0, fetchRadiusKm(60, "walking"))
}

func TestCompare_RunsAllModes(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	resp, err := svc.Compare(context.Background(), CompareRequest{
		Latitude:   40.700,
		Longitude:  -74.000,
		TravelTime: 1,
		Modes:      []string{"driving", "walk", "bike"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "driving", resp.Results[0].Mode)
	assert.Equal(t, "walking", resp.Results[1].Mode)
	assert.Equal(t, "cycling", resp.Results[2].Mode)
	for _, entry := range resp.Results {
		assert.Empty(t, entry.Error)
		assert.NotEmpty(t, entry.Contours)
	}
}

func TestCompare_RejectsTooManyModes(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	_, err := svc.Compare(context.Background(), CompareRequest{
		Latitude:   40.700,
		Longitude:  -74.000,
		TravelTime: 1,
		Modes:      []string{"driving", "walking", "cycling", "driving"},
	})

	assert.Error(t, err)
}

func TestBatch_IsolatesFailures(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	entries, err := svc.Batch(context.Background(), BatchRequest{Requests: []Request{
		{Latitude: 40.700, Longitude: -74.000, TravelTimes: []float64{1}},
		{Latitude: 95, Longitude: -74.000, TravelTimes: []float64{1}},
	}})

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotNil(t, entries[0].Result)
	assert.Empty(t, entries[0].Error)
	assert.Nil(t, entries[1].Result)
	assert.NotEmpty(t, entries[1].Error)
}

func TestBatch_RejectsOversizedBatch(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	requests := make([]Request, 11)
	for i := range requests {
		requests[i] = Request{Latitude: 40.7, Longitude: -74.0, TravelTimes: []float64{1}}
	}

	_, err := svc.Batch(context.Background(), BatchRequest{Requests: requests})

	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{g: diamondGraph()})

	resp, err := svc.Stats(context.Background(), Request{
		Latitude: 40.700, Longitude: -74.000, TravelTimes: []float64{1, 2}, Mode: "auto",
	})

	require.NoError(t, err)
	assert.Equal(t, "40.700_-74.000_5km_driving", resp.GraphKey)
	assert.Equal(t, 9, resp.GraphNodes)
	assert.Equal(t, "driving", resp.Mode)

	require.Len(t, resp.Statistics, 2)
	assert.Equal(t, 1.0, resp.Statistics[0].TravelTimeMin)
	assert.Equal(t, 2.0, resp.Statistics[1].TravelTimeMin)
	assert.GreaterOrEqual(t, resp.Statistics[1].ReachableNodes, resp.Statistics[0].ReachableNodes)
	assert.Positive(t, resp.Statistics[1].VertexCount)

	require.NotNil(t, resp.Bounds)
	assert.Less(t, resp.Bounds.Southwest[0], resp.Bounds.Northeast[0])
	assert.Less(t, resp.Bounds.Southwest[1], resp.Bounds.Northeast[1])
}

func TestPreload(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{preloadOK: true})
	lat, lng := geo.Coord(40.7), geo.Coord(-74.0)

	queued, err := svc.Preload(PreloadRequest{Latitude: &lat, Longitude: &lng, TravelTime: 15})
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	_, err = svc.Preload(PreloadRequest{Latitude: &lat, Longitude: &lng, TravelTime: 0})
	assert.Error(t, err)
}

func TestPreload_DefaultCities(t *testing.T) {
	svc := newTestService(t, &stubGraphCache{preloadOK: true})

	queued, err := svc.Preload(PreloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3*len(preloadCities), queued)

	queued, err = svc.Preload(PreloadRequest{Mode: "walk"})
	require.NoError(t, err)
	assert.Equal(t, len(preloadCities), queued)
}

func TestStatusAndClearCache(t *testing.T) {
	graphs := &stubGraphCache{g: diamondGraph()}
	svc := newTestService(t, graphs)

	_, err := svc.Calculate(context.Background(), Request{
		Latitude: 40.700, Longitude: -74.000, TravelTimes: []float64{1},
	})
	require.NoError(t, err)

	status, err := svc.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.MemoEntries)

	svc.ClearCache()

	assert.True(t, graphs.purged)
	status, err = svc.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, status.MemoEntries)
}
