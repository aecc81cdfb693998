package usage

import (
	"time"

	"github.com/google/uuid"
)

// Record is one tracked API call. UserID is uuid.Nil for anonymous calls.
type Record struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id,omitempty"`
	APIKind      string    `json:"api_kind"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	StatusCode   int       `json:"status_code"`
	ClientIP     string    `json:"client_ip"`
	UserAgent    string    `json:"user_agent"`
	RequestSize  int       `json:"request_size"`
	ResponseSize int       `json:"response_size"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	ResponseMs   int64     `json:"response_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Analytics is the extracted route-level detail for a successful,
// authenticated call. Optional fields stay nil when the api_kind's
// extractor does not produce them.
type Analytics struct {
	ID             uuid.UUID `json:"id"`
	RecordID       uuid.UUID `json:"record_id"`
	UserID         uuid.UUID `json:"user_id"`
	APIKind        string    `json:"api_kind"`
	RouteType      string    `json:"route_type,omitempty"`
	StartLat       *float64  `json:"start_lat,omitempty"`
	StartLng       *float64  `json:"start_lng,omitempty"`
	EndLat         *float64  `json:"end_lat,omitempty"`
	EndLng         *float64  `json:"end_lng,omitempty"`
	WaypointsCount int       `json:"waypoints_count"`
	DistanceM      *float64  `json:"distance_m,omitempty"`
	DurationS      *float64  `json:"duration_s,omitempty"`
	Polyline       string    `json:"polyline,omitempty"`
	Address        string    `json:"address,omitempty"`
	FormattedAddr  string    `json:"formatted_address,omitempty"`
	PlaceID        string    `json:"place_id,omitempty"`
	LocationType   string    `json:"location_type,omitempty"`
	DemandCell     string    `json:"demand_cell,omitempty"`
	RawRequest     string    `json:"raw_request_blob,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EndpointCount is one endpoint's share of a usage summary.
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	APIKind  string `json:"api_kind"`
	Count    int64  `json:"count"`
}

// DemandCellCount is one H3 cell's share of route starts.
type DemandCellCount struct {
	Cell  string `json:"cell"`
	Count int64  `json:"count"`
}

// Summary aggregates a user's tracked calls.
type Summary struct {
	TotalRequests int64             `json:"total_requests"`
	AvgResponseMs float64           `json:"avg_response_ms"`
	ErrorRate     float64           `json:"error_rate"`
	ByEndpoint    []EndpointCount   `json:"by_endpoint"`
	DemandCells   []DemandCellCount `json:"demand_cells"`
}

// RecordsResponse is the paginated /records payload.
type RecordsResponse struct {
	Records []Record `json:"records"`
	Total   int64    `json:"total"`
}
