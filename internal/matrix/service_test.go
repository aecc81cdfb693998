package matrix

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
)

type stubGraphs struct {
	g   *graph.Graph
	err error
}

func (s *stubGraphs) Get(ctx context.Context, lat, lon, radiusKm float64, profile string) (*graph.Graph, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.g, nil
}

func TestService_Solve_OverGraph(t *testing.T) {
	svc := NewService(&stubGraphs{g: testGraph()})

	resp, err := svc.Solve(context.Background(), SolveRequest{Tasks: nearbyTasks()})

	require.NoError(t, err)
	assert.Equal(t, []string{"Start", "Pickup_A", "Delivery_A"}, resp.OptimalRoute)
	assert.Equal(t, SourceGraph, resp.MatrixSource)
	assert.Equal(t, "driving", resp.Mode)
	assert.Positive(t, resp.MinimumDistanceKm)
	assert.Positive(t, resp.TravelTimeSeconds)
	assert.NotEmpty(t, resp.TravelTime)
	assert.NotEmpty(t, resp.OptimalRouteCoordinates)
	require.Len(t, resp.SegmentDetails, 2)
	assert.Equal(t, "Start → Pickup_A", resp.SegmentDetails[0].Segment)
	assert.Equal(t, "A", resp.SegmentDetails[0].PackageID)
	assert.NotEmpty(t, resp.SegmentDetails[0].DurationSegment)
}

func TestService_Solve_FallsBackToGreatCircle(t *testing.T) {
	svc := NewService(&stubGraphs{err: errors.New("overpass down")})

	resp, err := svc.Solve(context.Background(), SolveRequest{Tasks: nearbyTasks()})

	require.NoError(t, err)
	assert.Equal(t, SourceGreatCircle, resp.MatrixSource)
	assert.Equal(t, []string{"Start", "Pickup_A", "Delivery_A"}, resp.OptimalRoute)
}

func TestService_Solve_UnsupportedMode(t *testing.T) {
	svc := NewService(&stubGraphs{g: testGraph()})

	_, err := svc.Solve(context.Background(), SolveRequest{Tasks: nearbyTasks(), Mode: "hovercraft"})

	require.Error(t, err)
	var modeErr *transport.UnsupportedModeError
	assert.ErrorAs(t, err, &modeErr)
}

func TestService_Solve_ModeAlias(t *testing.T) {
	svc := NewService(&stubGraphs{g: testGraph()})

	resp, err := svc.Solve(context.Background(), SolveRequest{Tasks: nearbyTasks(), Mode: "car"})

	require.NoError(t, err)
	assert.Equal(t, "driving", resp.Mode)
}

func TestService_Solve_InvalidCoordinates(t *testing.T) {
	svc := NewService(&stubGraphs{g: testGraph()})
	tasks := nearbyTasks()
	tasks[1].Latitude = 95

	_, err := svc.Solve(context.Background(), SolveRequest{Tasks: tasks})

	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestService_Solve_InconsistentPairing(t *testing.T) {
	svc := NewService(&stubGraphs{g: testGraph()})
	tasks := []Task{
		{Latitude: 40.700, Longitude: -74.0, TaskType: TaskCurrent},
		{Latitude: 40.703, Longitude: -74.0, TaskType: TaskDelivery, PackageID: "A"},
	}

	_, err := svc.Solve(context.Background(), SolveRequest{Tasks: tasks})

	assert.ErrorIs(t, err, common.ErrInconsistentPDP)
}

func TestRegionFor(t *testing.T) {
	lat, lon, radius := regionFor(nearbyTasks())

	assert.InDelta(t, 40.7013, lat, 0.001)
	assert.InDelta(t, -74.0, lon, 0.001)
	// Tight clusters get the minimum radius.
	assert.Equal(t, 5.0, radius)
}

func TestRegionFor_WideSpread(t *testing.T) {
	tasks := []Task{
		{Latitude: 40.70, Longitude: -74.0, TaskType: TaskCurrent},
		{Latitude: 40.90, Longitude: -74.0, TaskType: TaskPickup, PackageID: "A"},
	}

	_, _, radius := regionFor(tasks)

	// About 11 km from centroid to either end, plus the 2 km buffer.
	assert.InDelta(t, 14, radius, 1.5)
}
