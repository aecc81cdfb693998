package matrix

import (
	"fmt"

	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/geo"
)

// fallbackSpeedKmh prices forced legs when no graph-connected candidate is
// available; the congestion factor still applies but intersection penalties
// do not, since no real path is known.
const fallbackSpeedKmh = 20.0

// Leg is one traversed edge of the solution in visit order.
type Leg struct {
	From       int
	To         int
	DistanceKm float64
	Seconds    float64
	Forced     bool
}

// Solution is an ordered visit plan over the matrix indices.
type Solution struct {
	Order      []int
	Legs       []Leg
	DistanceKm float64
	Seconds    float64
	ForcedLegs int
}

// ValidateTasks enforces the pickup/delivery contract: exactly one "current"
// task, package IDs on every pickup and delivery, at most one pickup and one
// delivery per package, and no delivery whose package lacks a pickup.
// Waypoints carry no constraint.
func ValidateTasks(tasks []Task) error {
	if len(tasks) < 2 {
		return common.NewValidationError("at least 2 tasks are required")
	}

	currents := 0
	pickups := make(map[string]int)
	deliveries := make(map[string]int)

	for i, task := range tasks {
		switch task.TaskType {
		case TaskCurrent:
			currents++
		case TaskPickup:
			if task.PackageID == "" {
				return common.NewInconsistentPDPError(fmt.Sprintf("pickup task %d is missing package_id", i))
			}
			if _, dup := pickups[task.PackageID]; dup {
				return common.NewInconsistentPDPError(fmt.Sprintf("package %q has multiple pickups", task.PackageID))
			}
			pickups[task.PackageID] = i
		case TaskDelivery:
			if task.PackageID == "" {
				return common.NewInconsistentPDPError(fmt.Sprintf("delivery task %d is missing package_id", i))
			}
			if _, dup := deliveries[task.PackageID]; dup {
				return common.NewInconsistentPDPError(fmt.Sprintf("package %q has multiple deliveries", task.PackageID))
			}
			deliveries[task.PackageID] = i
		case TaskWaypoint:
		default:
			return common.NewValidationError(fmt.Sprintf("task %d has invalid task_type %q", i, task.TaskType))
		}
	}

	if currents != 1 {
		return common.NewValidationError("exactly one task with task_type \"current\" is required")
	}
	for pkg := range deliveries {
		if _, ok := pickups[pkg]; !ok {
			return common.NewInconsistentPDPError(fmt.Sprintf("package %q has a delivery but no pickup", pkg))
		}
	}
	return nil
}

// Solve orders the tasks by greedy nearest neighbor starting from the
// "current" task. Deliveries only become eligible once their pickup is
// visited. When every remaining eligible candidate is graph-disconnected,
// the lowest-index one is forced and priced by great-circle estimate.
func Solve(m *Matrix, tasks []Task) (*Solution, error) {
	if err := ValidateTasks(tasks); err != nil {
		return nil, err
	}
	if m.Source == SourceGraph && allRepaired(m) {
		return nil, common.NewDisconnectedError("no pair of locations is connected by the road network")
	}

	start := 0
	for i, task := range tasks {
		if task.TaskType == TaskCurrent {
			start = i
			break
		}
	}

	visited := make([]bool, m.Size)
	visited[start] = true
	pickedUp := make(map[string]bool)

	solution := &Solution{Order: []int{start}}
	current := start

	for len(solution.Order) < m.Size {
		next, forced := pickNext(m, tasks, current, visited, pickedUp)
		if next < 0 {
			// Remaining tasks are all gated deliveries; validation rules
			// this out, so treat it as a pairing defect.
			return nil, common.NewInconsistentPDPError("no eligible task remains; pickup/delivery pairing is inconsistent")
		}

		leg := Leg{From: current, To: next, Forced: forced}
		if forced {
			leg.DistanceKm = geo.Haversine(
				tasks[current].Latitude, tasks[current].Longitude,
				tasks[next].Latitude, tasks[next].Longitude,
			)
			leg.Seconds = geo.TravelSeconds(leg.DistanceKm, fallbackSpeedKmh) * congestionFactor
			solution.ForcedLegs++
		} else {
			leg.DistanceKm = m.DistancesKm[current][next]
			leg.Seconds = m.Durations[current][next]
		}
		solution.DistanceKm += leg.DistanceKm
		solution.Seconds += leg.Seconds
		solution.Legs = append(solution.Legs, leg)

		visited[next] = true
		if tasks[next].TaskType == TaskPickup {
			pickedUp[tasks[next].PackageID] = true
		}
		solution.Order = append(solution.Order, next)
		current = next
	}

	return solution, nil
}

// pickNext returns the nearest eligible unvisited index. Graph-connected
// candidates always win over repaired ones; among equals the smaller index
// is kept. When only repaired candidates remain, the smallest eligible index
// is forced (second return true).
func pickNext(m *Matrix, tasks []Task, current int, visited []bool, pickedUp map[string]bool) (int, bool) {
	bestConnected := -1
	bestDist := 0.0
	firstEligible := -1

	for j := 0; j < m.Size; j++ {
		if visited[j] {
			continue
		}
		if tasks[j].TaskType == TaskDelivery && !pickedUp[tasks[j].PackageID] {
			continue
		}
		if firstEligible < 0 {
			firstEligible = j
		}
		// On a graph-backed matrix, repaired pairs are a last resort; on a
		// pure great-circle matrix every pair is an estimate, so all compete.
		if m.Source == SourceGraph && m.Repaired[current][j] {
			continue
		}
		if bestConnected < 0 || m.DistancesKm[current][j] < bestDist {
			bestConnected = j
			bestDist = m.DistancesKm[current][j]
		}
	}

	if bestConnected >= 0 {
		return bestConnected, false
	}
	if firstEligible >= 0 {
		return firstEligible, true
	}
	return -1, false
}

func allRepaired(m *Matrix) bool {
	for i := 0; i < m.Size; i++ {
		for j := 0; j < m.Size; j++ {
			if i != j && !m.Repaired[i][j] {
				return false
			}
		}
	}
	return m.Size > 1
}
