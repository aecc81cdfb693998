package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/httpclient"
	"github.com/waygrid/wayfinder/pkg/resilience"
)

// osrmPathProfile maps canonical modes to the profile segment in OSRM route
// URLs. The demo servers are built per profile, so the segment is mostly
// cosmetic, but the conventional names keep logs readable.
var osrmPathProfile = map[string]string{
	transport.ModeDriving: "driving",
	transport.ModeWalking: "foot",
	transport.ModeCycling: "bike",
}

// osrmClient talks to per-profile OSRM servers through the shared HTTP
// client and an optional circuit breaker.
type osrmClient struct {
	clients map[string]*httpclient.Client
	breaker *resilience.CircuitBreaker
}

func newOSRMClient(cfg config.OSRMConfig, breaker *resilience.CircuitBreaker) *osrmClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clients := make(map[string]*httpclient.Client, 3)
	for _, mode := range transport.Modes() {
		clients[mode] = httpclient.NewClient(cfg.BaseURLFor(mode), timeout,
			httpclient.WithDefaultRetry(),
			httpclient.WithUserAgent("wayfinder/1.0"),
		)
	}
	return &osrmClient{clients: clients, breaker: breaker}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []struct {
				Name     string  `json:"name"`
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
				Maneuver struct {
					Type          string     `json:"type"`
					Modifier      string     `json:"modifier"`
					BearingBefore int        `json:"bearing_before"`
					BearingAfter  int        `json:"bearing_after"`
					Location      [2]float64 `json:"location"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
	Waypoints []struct {
		Name     string     `json:"name"`
		Location [2]float64 `json:"location"`
	} `json:"waypoints"`
}

// osrmRoute is the parsed result handed back to the service layer.
type osrmRoute struct {
	DistanceM   float64
	DurationSec float64
	Geometry    [][2]float64 // lng, lat
	Steps       []Step
	Waypoints   []Waypoint
}

// Route requests a full-geometry route through the given points, in visit
// order. Points are (lat, lng).
func (c *osrmClient) Route(ctx context.Context, profile string, points [][2]float64) (*osrmRoute, error) {
	client, ok := c.clients[profile]
	if !ok {
		return nil, fmt.Errorf("no OSRM server configured for profile %q", profile)
	}

	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p[1], p[0])
	}
	path := fmt.Sprintf("/route/v1/%s/%s?overview=full&geometries=geojson&steps=true&alternatives=false",
		osrmPathProfile[profile], strings.Join(coords, ";"))

	do := func(ctx context.Context) (interface{}, error) {
		return client.Get(ctx, path, nil)
	}

	var body interface{}
	var err error
	if c.breaker != nil {
		body, err = c.breaker.Execute(ctx, do)
	} else {
		body, err = do(ctx)
	}
	if err != nil {
		return nil, common.NewUpstreamUnavailableError("routing upstream unavailable", err)
	}

	var resp osrmResponse
	if err := json.Unmarshal(body.([]byte), &resp); err != nil {
		return nil, common.NewUpstreamUnavailableError("routing upstream returned malformed data", err)
	}

	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		if resp.Code == "NoRoute" {
			return nil, common.NewRouteUnavailableError("no route found between the given points", nil)
		}
		return nil, common.NewUpstreamUnavailableError(
			fmt.Sprintf("routing upstream rejected the request: %s", resp.Code), nil)
	}

	route := resp.Routes[0]
	result := &osrmRoute{
		DistanceM:   route.Distance,
		DurationSec: route.Duration,
		Geometry:    route.Geometry.Coordinates,
	}

	for _, leg := range route.Legs {
		for _, s := range leg.Steps {
			result.Steps = append(result.Steps, Step{
				Name:     s.Name,
				Distance: s.Distance,
				Duration: s.Duration,
				Maneuver: Maneuver{
					Type:          s.Maneuver.Type,
					Modifier:      s.Maneuver.Modifier,
					BearingBefore: s.Maneuver.BearingBefore,
					BearingAfter:  s.Maneuver.BearingAfter,
					Location:      s.Maneuver.Location,
				},
			})
		}
	}
	for _, wp := range resp.Waypoints {
		result.Waypoints = append(result.Waypoints, Waypoint{Name: wp.Name, Location: wp.Location})
	}
	return result, nil
}
