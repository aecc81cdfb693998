package geocoding

import (
	"encoding/json"

	"github.com/waygrid/wayfinder/pkg/geo"
)

// GeocodeRequest resolves a free-form address to coordinates.
type GeocodeRequest struct {
	Address string `json:"address" binding:"required"`
}

// GeocodeResult is a resolved address. Raw carries the upstream payload
// untouched for clients that need address components.
type GeocodeResult struct {
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	DisplayName string          `json:"display_name"`
	PlaceID     int64           `json:"place_id,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// ReverseRequest resolves coordinates to an address.
type ReverseRequest struct {
	Latitude  geo.Coord `json:"latitude"`
	Longitude geo.Coord `json:"longitude"`
}

// ReverseResult is a resolved coordinate pair.
type ReverseResult struct {
	Address string          `json:"address"`
	PlaceID int64           `json:"place_id,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// BatchRequest geocodes up to 100 addresses in one call.
type BatchRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
}

// BatchEntry is one address's outcome, success or failure.
type BatchEntry struct {
	Address string         `json:"address"`
	Result  *GeocodeResult `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// BatchResponse groups per-address results in request order.
type BatchResponse struct {
	Results []BatchEntry `json:"results"`
}

// PlaceDetails is the upstream place lookup passed through as-is.
type PlaceDetails struct {
	PlaceID int64           `json:"place_id"`
	Raw     json.RawMessage `json:"raw"`
}
