package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/httpclient"
	"github.com/waygrid/wayfinder/pkg/resilience"
)

// nominatimClient is a thin wrapper over the Nominatim HTTP API. The OSM
// usage policy requires an identifying User-Agent on every request.
type nominatimClient struct {
	client  *httpclient.Client
	breaker *resilience.CircuitBreaker
}

func newNominatimClient(cfg config.NominatimConfig, breaker *resilience.CircuitBreaker) *nominatimClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &nominatimClient{
		client: httpclient.NewClient(cfg.BaseURL, timeout,
			httpclient.WithDefaultRetry(),
			httpclient.WithUserAgent(cfg.UserAgent),
		),
		breaker: breaker,
	}
}

// nominatimPlace is one entry of a /search response. Coordinates arrive as
// strings.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves an address to its best match.
func (c *nominatimClient) Search(ctx context.Context, address string) (*GeocodeResult, error) {
	path := "/search?" + url.Values{
		"q":              {address},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}.Encode()

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, common.NewUpstreamUnavailableError("geocoding upstream returned malformed data", err)
	}
	if len(places) == 0 {
		return nil, common.NewNotFoundError("location not found", nil)
	}

	place := places[0]
	lat, errLat := strconv.ParseFloat(place.Lat, 64)
	lon, errLon := strconv.ParseFloat(place.Lon, 64)
	if errLat != nil || errLon != nil {
		return nil, common.NewUpstreamUnavailableError("geocoding upstream returned malformed coordinates", nil)
	}

	var raw json.RawMessage
	if items := []json.RawMessage{}; json.Unmarshal(body, &items) == nil && len(items) > 0 {
		raw = items[0]
	}

	return &GeocodeResult{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: place.DisplayName,
		PlaceID:     place.PlaceID,
		Raw:         raw,
	}, nil
}

// Reverse resolves coordinates to the containing address. Nominatim reports
// "no result" as a 200 with an error field.
func (c *nominatimClient) Reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	path := "/reverse?" + url.Values{
		"lat":    {fmt.Sprintf("%.6f", lat)},
		"lon":    {fmt.Sprintf("%.6f", lon)},
		"format": {"jsonv2"},
	}.Encode()

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Error       string `json:"error"`
		PlaceID     int64  `json:"place_id"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, common.NewUpstreamUnavailableError("geocoding upstream returned malformed data", err)
	}
	if resp.Error != "" || resp.DisplayName == "" {
		return nil, common.NewNotFoundError("address not found for these coordinates", nil)
	}

	return &ReverseResult{
		Address: resp.DisplayName,
		PlaceID: resp.PlaceID,
		Raw:     json.RawMessage(body),
	}, nil
}

// Details fetches the full place record by upstream ID.
func (c *nominatimClient) Details(ctx context.Context, placeID int64) (*PlaceDetails, error) {
	path := "/details?" + url.Values{
		"place_id": {strconv.FormatInt(placeID, 10)},
		"format":   {"json"},
	}.Encode()

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, common.NewUpstreamUnavailableError("geocoding upstream returned malformed data", err)
	}
	if probe.Error != "" {
		return nil, common.NewNotFoundError("place not found", nil)
	}

	return &PlaceDetails{PlaceID: placeID, Raw: json.RawMessage(body)}, nil
}

func (c *nominatimClient) get(ctx context.Context, path string) ([]byte, error) {
	do := func(ctx context.Context) (interface{}, error) {
		return c.client.Get(ctx, path, nil)
	}

	var body interface{}
	var err error
	if c.breaker != nil {
		body, err = c.breaker.Execute(ctx, do)
	} else {
		body, err = do(ctx)
	}
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == 404 {
			return nil, common.NewNotFoundError("place not found", nil)
		}
		return nil, common.NewUpstreamUnavailableError("geocoding upstream unavailable", err)
	}
	return body.([]byte), nil
}
