package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecordedData is emitted after a tracked API call is persisted.
// Consumers aggregate these into billing and demand dashboards.
type UsageRecordedData struct {
	RecordID     uuid.UUID `json:"record_id"`
	UserID       uuid.UUID `json:"user_id"`
	APIKind      string    `json:"api_kind"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	StatusCode   int       `json:"status_code"`
	ResponseMs   int64     `json:"response_ms"`
	RequestSize  int       `json:"request_size"`
	ResponseSize int       `json:"response_size"`
	DemandCell   string    `json:"demand_cell,omitempty"` // H3 cell of the route start
	RecordedAt   time.Time `json:"recorded_at"`
}

// GraphLoadedData is emitted when a region graph enters the memory cache.
type GraphLoadedData struct {
	GraphKey  string    `json:"graph_key"`
	Profile   string    `json:"profile"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	FromDisk  bool      `json:"from_disk"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// GraphEvictedData is emitted when the LRU drops a graph from memory.
type GraphEvictedData struct {
	GraphKey  string    `json:"graph_key"`
	EvictedAt time.Time `json:"evicted_at"`
}

// RouteComputedData is emitted after a successful route or matrix solve.
type RouteComputedData struct {
	Source      string    `json:"source"` // "osrm" or "graph_fallback"
	Profile     string    `json:"profile"`
	DistanceKm  float64   `json:"distance_km"`
	DurationSec float64   `json:"duration_sec"`
	Waypoints   int       `json:"waypoints"`
	ComputedAt  time.Time `json:"computed_at"`
}

// RouteUnavailableData is emitted when neither the upstream nor the local
// graph could produce a route.
type RouteUnavailableData struct {
	Profile    string    `json:"profile"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
