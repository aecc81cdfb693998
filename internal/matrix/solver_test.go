package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/pkg/common"
)

// manualMatrix builds a matrix with explicit distances for ordering tests.
func manualMatrix(tasks []Task, dist [][]float64) *Matrix {
	m := newMatrix(tasks, SourceGraph)
	for i := range dist {
		for j := range dist[i] {
			m.DistancesKm[i][j] = dist[i][j]
			m.Durations[i][j] = dist[i][j] * 60 // arbitrary but positive
		}
	}
	return m
}

func TestValidateTasks_RequiresCurrent(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskDelivery, PackageID: "A"},
	}

	err := ValidateTasks(tasks)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestValidateTasks_RejectsTwoCurrents(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskCurrent},
	}

	assert.ErrorIs(t, ValidateTasks(tasks), common.ErrValidation)
}

func TestValidateTasks_DeliveryWithoutPickup(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskDelivery, PackageID: "A"},
	}

	assert.ErrorIs(t, ValidateTasks(tasks), common.ErrInconsistentPDP)
}

func TestValidateTasks_DuplicatePickup(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskDelivery, PackageID: "A"},
	}

	assert.ErrorIs(t, ValidateTasks(tasks), common.ErrInconsistentPDP)
}

func TestValidateTasks_MissingPackageID(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup},
	}

	assert.ErrorIs(t, ValidateTasks(tasks), common.ErrInconsistentPDP)
}

func TestValidateTasks_InvalidTaskType(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: "detour"},
	}

	assert.ErrorIs(t, ValidateTasks(tasks), common.ErrValidation)
}

func TestValidateTasks_PickupWithoutDeliveryIsAllowed(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup, PackageID: "A"},
	}

	assert.NoError(t, ValidateTasks(tasks))
}

func TestSolve_NearestNeighborOrder(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskPickup, PackageID: "B"},
	}
	// From start, B (index 2) is closer than A (index 1).
	m := manualMatrix(tasks, [][]float64{
		{0, 10, 2},
		{10, 0, 5},
		{2, 5, 0},
	})

	solution, err := Solve(m, tasks)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, solution.Order)
	assert.InDelta(t, 7, solution.DistanceKm, 0.001)
}

func TestSolve_TieBreaksOnSmallerIndex(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskPickup, PackageID: "B"},
	}
	m := manualMatrix(tasks, [][]float64{
		{0, 3, 3},
		{3, 0, 3},
		{3, 3, 0},
	})

	solution, err := Solve(m, tasks)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, solution.Order)
}

func TestSolve_DeliveryWaitsForPickup(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskDelivery, PackageID: "A"},
	}
	// The delivery is nearest to the start but cannot be visited first.
	m := manualMatrix(tasks, [][]float64{
		{0, 9, 1},
		{9, 0, 4},
		{1, 4, 0},
	})

	solution, err := Solve(m, tasks)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, solution.Order)
}

func TestSolve_ForcedLegWhenOnlyRepairedCandidates(t *testing.T) {
	tasks := []Task{
		{Latitude: 40.70, Longitude: -74.0, TaskType: TaskCurrent},
		{Latitude: 40.71, Longitude: -74.0, TaskType: TaskPickup, PackageID: "A"},
		{Latitude: 40.75, Longitude: -74.0, TaskType: TaskPickup, PackageID: "B"},
	}
	m := manualMatrix(tasks, [][]float64{
		{0, 2, 6},
		{2, 0, 5},
		{6, 5, 0},
	})
	// Pickup B sits on an island the graph cannot reach.
	m.Repaired[0][2] = true
	m.Repaired[1][2] = true
	m.Repaired[2][0] = true
	m.Repaired[2][1] = true

	solution, err := Solve(m, tasks)

	require.NoError(t, err)
	require.Len(t, solution.Legs, 2)
	assert.Equal(t, []int{0, 1, 2}, solution.Order)
	assert.False(t, solution.Legs[0].Forced)
	assert.True(t, solution.Legs[1].Forced)
	assert.Equal(t, 1, solution.ForcedLegs)
	// Forced legs are priced by great-circle at 20 km/h with congestion.
	wantSeconds := solution.Legs[1].DistanceKm / 20.0 * 3600 * 1.4
	assert.InDelta(t, wantSeconds, solution.Legs[1].Seconds, 0.5)
}

func TestSolve_DisconnectedMatrix(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskCurrent},
		{TaskType: TaskPickup, PackageID: "A"},
	}
	m := manualMatrix(tasks, [][]float64{
		{0, 5},
		{5, 0},
	})
	for i := 0; i < m.Size; i++ {
		for j := 0; j < m.Size; j++ {
			if i != j {
				m.Repaired[i][j] = true
			}
		}
	}

	_, err := Solve(m, tasks)

	assert.ErrorIs(t, err, common.ErrDisconnected)
}

func TestSolve_GreatCircleMatrixStillOrders(t *testing.T) {
	tasks := []Task{
		{Latitude: 40.70, Longitude: -74.00, TaskType: TaskCurrent},
		{Latitude: 40.80, Longitude: -74.00, TaskType: TaskPickup, PackageID: "A"},
		{Latitude: 40.71, Longitude: -74.00, TaskType: TaskPickup, PackageID: "B"},
	}
	m := BuildGreatCircle(tasks)

	solution, err := Solve(m, tasks)

	require.NoError(t, err)
	// Nearest neighbor, not index order: B first.
	assert.Equal(t, []int{0, 2, 1}, solution.Order)
	assert.Zero(t, solution.ForcedLegs)
}

func TestSolve_StartsAtCurrentRegardlessOfPosition(t *testing.T) {
	tasks := []Task{
		{TaskType: TaskPickup, PackageID: "A"},
		{TaskType: TaskCurrent},
	}
	m := manualMatrix(tasks, [][]float64{
		{0, 4},
		{4, 0},
	})

	solution, err := Solve(m, tasks)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, solution.Order)
}
