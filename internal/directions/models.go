package directions

import (
	"github.com/waygrid/wayfinder/internal/matrix"
	"github.com/waygrid/wayfinder/pkg/geo"
)

// Route sources reported to clients.
const (
	SourceOSRM          = "osrm"
	SourceGraphFallback = "graph_fallback"
)

// Coordinate is a spelled-out lat/lng pair, used on the PDP surface.
type Coordinate struct {
	Latitude  geo.Coord `json:"latitude" binding:"required"`
	Longitude geo.Coord `json:"longitude" binding:"required"`
}

// LatLng is the short-form pair used by /route and /simple waypoints.
type LatLng struct {
	Lat geo.Coord `json:"lat"`
	Lng geo.Coord `json:"lng"`
}

// RouteRequest asks for turn-by-turn directions through at least two
// waypoints, visited in order unless OptimizeRoute reorders them.
// UseFallback routes on the local street graph without trying OSRM.
type RouteRequest struct {
	Waypoints     []LatLng `json:"waypoints" binding:"required"`
	Mode          string   `json:"transport_mode,omitempty"`
	OptimizeRoute bool     `json:"optimize_route,omitempty"`
	UseFallback   bool     `json:"use_osmnx_fallback,omitempty"`
}

// SimpleRequest is the condensed origin/destination form.
type SimpleRequest struct {
	Origin       LatLng `json:"origin" binding:"required"`
	Destination  LatLng `json:"destination" binding:"required"`
	Mode         string `json:"transport_mode,omitempty"`
	Alternatives bool   `json:"alternatives,omitempty"`
}

// Maneuver describes the turn at the start of a step.
type Maneuver struct {
	Type          string     `json:"type"`
	Modifier      string     `json:"modifier,omitempty"`
	BearingBefore int        `json:"bearing_before"`
	BearingAfter  int        `json:"bearing_after"`
	Location      [2]float64 `json:"location"` // lng, lat
}

// Step is one turn-by-turn instruction.
type Step struct {
	Name     string   `json:"name"`
	Distance float64  `json:"distance"` // meters
	Duration float64  `json:"duration"` // seconds
	Maneuver Maneuver `json:"maneuver"`
}

// Waypoint is a snapped stop on the final route.
type Waypoint struct {
	Name     string     `json:"name"`
	Location [2]float64 `json:"location"` // lng, lat
}

// Metadata carries provenance for a computed route.
type Metadata struct {
	Provider    string  `json:"provider"`
	Profile     string  `json:"profile"`
	Cached      bool    `json:"cached"`
	ExecutionMs float64 `json:"execution_ms"`
}

// RouteResponse is the full directions payload. Geometry follows the
// GeoJSON convention (lng,lat) while DecodedPolyline is (lat,lng) for map
// SDKs that expect that order; Polyline is the encoded form of the same
// line.
type RouteResponse struct {
	Status          string       `json:"status"`
	Source          string       `json:"source"`
	Mode            string       `json:"transport_mode"`
	DistanceKm      float64      `json:"distance"`
	DurationSec     float64      `json:"duration"`
	DurationStr     string       `json:"duration_str"`
	Steps           []Step       `json:"steps"`
	Geometry        [][2]float64 `json:"geometry"`
	DecodedPolyline [][2]float64 `json:"decoded_polyline"`
	Polyline        string       `json:"polyline"`
	Waypoints       []Waypoint   `json:"waypoints"`
	Metadata        Metadata     `json:"metadata"`
}

// SimpleRouteResponse is the condensed variant served on POST /simple.
type SimpleRouteResponse struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationSec float64 `json:"duration_seconds"`
	Duration    string  `json:"duration"`
	Polyline    string  `json:"polyline"`
	Mode        string  `json:"transport_mode"`
	Source      string  `json:"source"`
}

// PDPRequest combines route optimization with directions for the resulting
// order. Every location needs a type and location_id; pickups and
// deliveries are paired through package_id.
type PDPRequest struct {
	CurrentLocation Coordinate        `json:"current_location" binding:"required"`
	Locations       []matrix.Location `json:"locations" binding:"required"`
	Mode            string            `json:"transport_mode,omitempty"`
}

// PDPResponse is the combined payload. On full success Directions is set;
// when optimization succeeded but the directions leg failed, Status is
// "partial_success" and DirectionsError explains why.
type PDPResponse struct {
	Status            string                `json:"status"`
	MatrixCalculation string                `json:"matrix_calculation"`
	Optimization      *matrix.SolveResponse `json:"optimization"`
	Directions        *RouteResponse        `json:"directions,omitempty"`
	DirectionsError   string                `json:"directions_error,omitempty"`
}

// ModesResponse lists accepted transport modes.
type ModesResponse struct {
	Modes   []string            `json:"supported_modes"`
	Aliases map[string][]string `json:"aliases"`
	Default string              `json:"default"`
}
