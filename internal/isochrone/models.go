package isochrone

import "github.com/waygrid/wayfinder/pkg/geo"

// Request asks for reachability contours around a center. TravelTimes are
// cutoffs in minutes, at most ten, each between 1 and 120; an empty list
// defaults to 5, 10, and 15 minutes.
type Request struct {
	Latitude    geo.Coord `json:"latitude"`
	Longitude   geo.Coord `json:"longitude"`
	TravelTimes []float64 `json:"travel_times,omitempty"`
	Mode        string    `json:"travel_mode,omitempty"`
	ToleranceM  float64   `json:"simplify_tolerance,omitempty"`
}

// Contour is one reachability polygon. The ring is (lng,lat), GeoJSON
// order, and closed: the first and last vertices are equal.
type Contour struct {
	TravelTimeMin  float64      `json:"travel_time_minutes"`
	ReachableNodes int          `json:"reachable_nodes"`
	AreaKm2        float64      `json:"area_km2"`
	Ring           [][2]float64 `json:"polygon"`
	Skipped        bool         `json:"skipped,omitempty"`
	SkipReason     string       `json:"skip_reason,omitempty"`
}

// Response is the /calculate payload.
type Response struct {
	Center     [2]float64 `json:"center"` // lat, lng
	Mode       string     `json:"transport_mode"`
	GraphKey   string     `json:"graph_key"`
	GraphNodes int        `json:"graph_nodes"`
	Contours   []Contour  `json:"contours"`
}

// CompareRequest computes one cutoff across up to three modes.
type CompareRequest struct {
	Latitude   geo.Coord `json:"latitude"`
	Longitude  geo.Coord `json:"longitude"`
	TravelTime float64   `json:"travel_time" binding:"required"`
	Modes      []string  `json:"travel_modes" binding:"required"`
}

// CompareEntry is one mode's outcome in a comparison.
type CompareEntry struct {
	Mode     string    `json:"mode"`
	Contours []Contour `json:"contours,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// CompareResponse groups per-mode results.
type CompareResponse struct {
	Center  [2]float64     `json:"center"`
	Minutes float64        `json:"travel_time_minutes"`
	Results []CompareEntry `json:"results"`
}

// BatchRequest bundles up to ten isochrone requests.
type BatchRequest struct {
	Requests []Request `json:"requests" binding:"required"`
}

// BatchEntry is one request's outcome in a batch.
type BatchEntry struct {
	Index  int       `json:"index"`
	Result *Response `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// ContourStats summarizes one contour.
type ContourStats struct {
	TravelTimeMin  float64 `json:"travel_time_minutes"`
	AreaKm2        float64 `json:"area_km2"`
	VertexCount    int     `json:"vertex_count"`
	ReachableNodes int     `json:"reachable_nodes"`
}

// Bounds is a bounding box with (lat,lng) corners.
type Bounds struct {
	Southwest [2]float64 `json:"southwest"`
	Northeast [2]float64 `json:"northeast"`
}

// StatsResponse carries per-cutoff contour statistics, the box enclosing
// all contours, and the graph that served them.
type StatsResponse struct {
	Center     [2]float64     `json:"center"`
	Mode       string         `json:"travel_mode"`
	GraphKey   string         `json:"graph_key"`
	GraphNodes int            `json:"graph_nodes"`
	Bounds     *Bounds        `json:"bounds,omitempty"`
	Statistics []ContourStats `json:"statistics"`
}

// PreloadRequest warms one region in the background, or the default city
// set when no coordinates are given.
type PreloadRequest struct {
	Latitude   *geo.Coord `json:"latitude,omitempty"`
	Longitude  *geo.Coord `json:"longitude,omitempty"`
	TravelTime float64    `json:"travel_time,omitempty"`
	Mode       string     `json:"travel_mode,omitempty"`
}
