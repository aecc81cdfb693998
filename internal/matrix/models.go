package matrix

import (
	"fmt"

	"github.com/waygrid/wayfinder/pkg/geo"
)

// Task types accepted by the solver.
const (
	TaskCurrent  = "current"
	TaskPickup   = "pickup"
	TaskDelivery = "delivery"
	TaskWaypoint = "waypoint"
)

// Task is one stop in a solve request. The "current" task is the vehicle's
// position and always starts the route; pickup and delivery tasks are paired
// through PackageID; waypoints carry no ordering constraint.
type Task struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	TaskType   string  `json:"task_type" binding:"required"`
	LocationID string  `json:"location_id,omitempty"`
	PackageID  string  `json:"package_id,omitempty"`
}

// Label renders the node name used in responses. A client-supplied
// location_id wins; otherwise "Start", "Pickup_<pkg>", "Delivery_<pkg>",
// or "Stop_<index>" for unpaired stops.
func (t Task) Label(index int) string {
	switch t.TaskType {
	case TaskCurrent:
		return "Start"
	case TaskPickup:
		if t.LocationID != "" {
			return t.LocationID
		}
		return "Pickup_" + t.PackageID
	case TaskDelivery:
		if t.LocationID != "" {
			return t.LocationID
		}
		if t.PackageID != "" {
			return "Delivery_" + t.PackageID
		}
	default:
		if t.LocationID != "" {
			return t.LocationID
		}
	}
	return fmt.Sprintf("Stop_%d", index)
}

// LatLng is a spelled-out coordinate pair in calculate requests.
type LatLng struct {
	Latitude  geo.Coord `json:"latitude"`
	Longitude geo.Coord `json:"longitude"`
}

// Location is one stop in a calculate request. Type and LocationID are
// required in PDP mode; plain distance-matrix requests may omit them.
type Location struct {
	Latitude   geo.Coord `json:"latitude"`
	Longitude  geo.Coord `json:"longitude"`
	Type       string    `json:"type,omitempty"`
	LocationID string    `json:"location_id,omitempty"`
	PackageID  string    `json:"package_id,omitempty"`
}

// CalculateRequest is the body of POST /api/matrix/calculate. The current
// location always heads the route; PDP toggles pickup/delivery ordering.
type CalculateRequest struct {
	CurrentLocation LatLng     `json:"current_location" binding:"required"`
	Locations       []Location `json:"locations" binding:"required"`
	PDP             bool       `json:"pdp"`
	Mode            string     `json:"transport_mode,omitempty"`
}

// Tasks converts the wire shape into the solver's task list. In PDP mode
// each location must carry a type and location_id; otherwise every stop is
// an unordered waypoint.
func (r CalculateRequest) Tasks() ([]Task, error) {
	tasks := make([]Task, 0, len(r.Locations)+1)
	tasks = append(tasks, Task{
		Latitude:  r.CurrentLocation.Latitude.Float(),
		Longitude: r.CurrentLocation.Longitude.Float(),
		TaskType:  TaskCurrent,
	})

	for i, loc := range r.Locations {
		if r.PDP {
			if loc.Type == "" || loc.LocationID == "" {
				return nil, fmt.Errorf("location %d must have type and location_id in pdp mode", i)
			}
			tasks = append(tasks, Task{
				Latitude:   loc.Latitude.Float(),
				Longitude:  loc.Longitude.Float(),
				TaskType:   loc.Type,
				LocationID: loc.LocationID,
				PackageID:  loc.PackageID,
			})
			continue
		}
		tasks = append(tasks, Task{
			Latitude:   loc.Latitude.Float(),
			Longitude:  loc.Longitude.Float(),
			TaskType:   TaskWaypoint,
			LocationID: loc.LocationID,
		})
	}
	return tasks, nil
}

// SolveRequest is the solver's input; handlers build it from the wire
// shapes above.
type SolveRequest struct {
	Tasks []Task `json:"tasks" binding:"required"`
	Mode  string `json:"mode,omitempty"`
}

// SegmentDetail describes one leg of the optimized route.
type SegmentDetail struct {
	PackageID       string  `json:"package_id,omitempty"`
	DistanceKm      float64 `json:"distance_km"`
	Segment         string  `json:"segment"`
	DurationSegment string  `json:"duration_segment"`
}

// SolveResponse is the optimization result.
type SolveResponse struct {
	OptimalRoute            []string        `json:"optimal_route"`
	MinimumDistanceKm       float64         `json:"minimum_distance_km"`
	TravelTimeSeconds       int             `json:"estimated_travel_time_seconds"`
	TravelTime              string          `json:"estimated_travel_time"`
	OptimalRouteCoordinates [][2]float64    `json:"optimal_route_coordinates"`
	Waypoints               [][2]float64    `json:"waypoints"`
	SegmentDetails          []SegmentDetail `json:"segment_details"`
	Mode                    string          `json:"transport_mode"`
	MatrixSource            string          `json:"matrix_source"`
}

// FormatDuration renders seconds as "1h 5m 12s" or "5m 12s" when under an
// hour.
func FormatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}
