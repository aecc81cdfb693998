package usage

import (
	"encoding/json"
	"fmt"
	"strconv"

	h3 "github.com/uber/h3-go/v4"
)

// API kinds bound at route registration.
const (
	KindRouting   = "routing"
	KindMatrix    = "matrix"
	KindGeocoding = "geocoding"
	KindIsochrone = "isochrone"
)

const (
	// demandCellResolution is H3 resolution 8 (~460 m hexagons), fine
	// enough to group route starts by neighborhood.
	demandCellResolution = 8

	// maxPolylineChars caps serialized geometry stored per analytics row.
	maxPolylineChars = 4096

	// maxRawRequestChars caps the raw request blob kept per analytics row.
	maxRawRequestChars = 4096
)

// envelope is the standard success wrapper around handler payloads.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// extractAnalytics builds the route-level detail for a tracked call by
// dispatching on the bound api_kind. An unknown kind yields nil without
// error; malformed bodies return an error the tracker logs and ignores.
func extractAnalytics(apiKind string, requestBody, responseBody []byte) (*Analytics, error) {
	var env envelope
	if len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, &env); err != nil {
			return nil, fmt.Errorf("unparseable response body: %w", err)
		}
	}

	var (
		a       *Analytics
		extract error
	)
	switch apiKind {
	case KindRouting:
		a, extract = extractRouting(requestBody, env.Data)
	case KindMatrix:
		a, extract = extractMatrix(requestBody, env.Data)
	case KindGeocoding:
		a, extract = extractGeocoding(requestBody, env.Data)
	case KindIsochrone:
		a, extract = extractIsochrone(requestBody, env.Data)
	default:
		return nil, nil
	}
	if extract != nil || a == nil {
		return nil, extract
	}

	a.RawRequest = capString(string(requestBody), maxRawRequestChars)
	return a, nil
}

func extractRouting(requestBody, data []byte) (*Analytics, error) {
	type shortPoint struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	var req struct {
		Waypoints   []shortPoint `json:"waypoints"`
		Origin      *shortPoint  `json:"origin"`
		Destination *shortPoint  `json:"destination"`
		Current     *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"current_location"`
		Locations []json.RawMessage `json:"locations"`
		Mode      string            `json:"transport_mode"`
	}
	if err := json.Unmarshal(requestBody, &req); err != nil {
		return nil, fmt.Errorf("unparseable routing request: %w", err)
	}

	a := &Analytics{APIKind: KindRouting, RouteType: req.Mode}
	switch {
	case len(req.Waypoints) >= 2:
		first, last := req.Waypoints[0], req.Waypoints[len(req.Waypoints)-1]
		a.StartLat = ptr(first.Lat)
		a.StartLng = ptr(first.Lng)
		a.EndLat = ptr(last.Lat)
		a.EndLng = ptr(last.Lng)
		a.WaypointsCount = len(req.Waypoints)
		a.DemandCell = demandCell(first.Lat, first.Lng)
	case req.Origin != nil && req.Destination != nil:
		a.StartLat = ptr(req.Origin.Lat)
		a.StartLng = ptr(req.Origin.Lng)
		a.EndLat = ptr(req.Destination.Lat)
		a.EndLng = ptr(req.Destination.Lng)
		a.WaypointsCount = 2
		a.DemandCell = demandCell(req.Origin.Lat, req.Origin.Lng)
	case req.Current != nil:
		a.StartLat = ptr(req.Current.Latitude)
		a.StartLng = ptr(req.Current.Longitude)
		a.WaypointsCount = len(req.Locations) + 1
		a.DemandCell = demandCell(req.Current.Latitude, req.Current.Longitude)
	}

	var resp struct {
		DistanceKm  float64 `json:"distance"`
		DurationSec float64 `json:"duration"`
		Polyline    string  `json:"polyline"`
	}
	if len(data) > 0 && json.Unmarshal(data, &resp) == nil {
		a.DistanceM = ptr(resp.DistanceKm * 1000)
		a.DurationS = ptr(resp.DurationSec)
		a.Polyline = capString(resp.Polyline, maxPolylineChars)
	}
	return a, nil
}

func extractMatrix(requestBody, data []byte) (*Analytics, error) {
	var req struct {
		Current struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"current_location"`
		Locations []json.RawMessage `json:"locations"`
		PDP       bool              `json:"pdp"`
	}
	if err := json.Unmarshal(requestBody, &req); err != nil {
		return nil, fmt.Errorf("unparseable matrix request: %w", err)
	}

	a := &Analytics{
		APIKind:        KindMatrix,
		RouteType:      "tsp",
		WaypointsCount: len(req.Locations) + 1,
		StartLat:       ptr(req.Current.Latitude),
		StartLng:       ptr(req.Current.Longitude),
		DemandCell:     demandCell(req.Current.Latitude, req.Current.Longitude),
	}
	if req.PDP {
		a.RouteType = "pdp"
	}

	var resp struct {
		MinimumDistanceKm float64      `json:"minimum_distance_km"`
		TravelTimeSeconds float64      `json:"estimated_travel_time_seconds"`
		Coordinates       [][2]float64 `json:"optimal_route_coordinates"`
	}
	if len(data) > 0 && json.Unmarshal(data, &resp) == nil {
		a.DistanceM = ptr(resp.MinimumDistanceKm * 1000)
		a.DurationS = ptr(resp.TravelTimeSeconds)
		if len(resp.Coordinates) > 0 {
			last := resp.Coordinates[len(resp.Coordinates)-1]
			a.EndLat = ptr(last[0])
			a.EndLng = ptr(last[1])
		}
		if coords, err := json.Marshal(resp.Coordinates); err == nil {
			a.Polyline = capString(string(coords), maxPolylineChars)
		}
	}
	return a, nil
}

func extractGeocoding(requestBody, data []byte) (*Analytics, error) {
	var req struct {
		Address   string   `json:"address"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(requestBody, &req); err != nil && len(requestBody) > 0 {
		return nil, fmt.Errorf("unparseable geocoding request: %w", err)
	}

	a := &Analytics{APIKind: KindGeocoding, Address: req.Address}
	if req.Latitude != nil && req.Longitude != nil {
		a.StartLat = req.Latitude
		a.StartLng = req.Longitude
	}

	// Single result, or the first entry of a batch. Resolved coordinates
	// are the call's start point unless the request already carried one
	// (reverse lookups).
	var resp struct {
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		DisplayName string   `json:"display_name"`
		Address     string   `json:"address"`
		PlaceID     int64    `json:"place_id"`
		Results     []struct {
			Result *struct {
				Latitude    float64 `json:"latitude"`
				Longitude   float64 `json:"longitude"`
				DisplayName string  `json:"display_name"`
				PlaceID     int64   `json:"place_id"`
			} `json:"result"`
		} `json:"results"`
	}
	if len(data) > 0 && json.Unmarshal(data, &resp) == nil {
		switch {
		case resp.Latitude != nil && resp.Longitude != nil:
			if a.StartLat == nil {
				a.StartLat = resp.Latitude
				a.StartLng = resp.Longitude
			}
			a.FormattedAddr = resp.DisplayName
		case len(resp.Results) > 0 && resp.Results[0].Result != nil:
			first := resp.Results[0].Result
			if a.StartLat == nil {
				a.StartLat = ptr(first.Latitude)
				a.StartLng = ptr(first.Longitude)
			}
			a.FormattedAddr = first.DisplayName
			resp.PlaceID = first.PlaceID
		case resp.Address != "":
			a.FormattedAddr = resp.Address
		}
		if resp.PlaceID != 0 {
			a.PlaceID = strconv.FormatInt(resp.PlaceID, 10)
		}
		a.LocationType = locationType(resp.DisplayName, resp.Address)
	}
	return a, nil
}

func extractIsochrone(requestBody, data []byte) (*Analytics, error) {
	var req struct {
		Latitude    float64   `json:"latitude"`
		Longitude   float64   `json:"longitude"`
		TravelTimes []float64 `json:"travel_times"`
		Mode        string    `json:"travel_mode"`
	}
	if err := json.Unmarshal(requestBody, &req); err != nil {
		return nil, fmt.Errorf("unparseable isochrone request: %w", err)
	}

	a := &Analytics{
		APIKind:        KindIsochrone,
		RouteType:      req.Mode,
		StartLat:       ptr(req.Latitude),
		StartLng:       ptr(req.Longitude),
		WaypointsCount: len(req.TravelTimes),
		DemandCell:     demandCell(req.Latitude, req.Longitude),
	}

	var maxMinutes float64
	for _, t := range req.TravelTimes {
		if t > maxMinutes {
			maxMinutes = t
		}
	}
	if maxMinutes > 0 {
		a.DurationS = ptr(maxMinutes * 60)
	}

	var resp struct {
		Contours []struct {
			Ring json.RawMessage `json:"polygon"`
		} `json:"contours"`
	}
	if len(data) > 0 && json.Unmarshal(data, &resp) == nil && len(resp.Contours) > 0 {
		last := resp.Contours[len(resp.Contours)-1]
		a.Polyline = capString(string(last.Ring), maxPolylineChars)
	}
	return a, nil
}

// demandCell maps a route start onto an H3 hexagon for demand grouping.
// Invalid coordinates yield an empty cell rather than an error.
func demandCell(lat, lng float64) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), demandCellResolution)
	if err != nil {
		return ""
	}
	return cell.String()
}

// locationType labels a geocoding result by specificity.
func locationType(displayName, address string) string {
	switch {
	case displayName != "":
		return "resolved"
	case address != "":
		return "reverse"
	}
	return ""
}

func capString(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func ptr(v float64) *float64 {
	return &v
}
