package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/geo"
	"github.com/waygrid/wayfinder/pkg/httpclient"
	"github.com/waygrid/wayfinder/pkg/logger"
	"github.com/waygrid/wayfinder/pkg/resilience"
	"go.uber.org/zap"
)

// Loader fetches street networks from an Overpass endpoint and assembles
// routable graphs out of the raw ways and nodes.
type Loader struct {
	client   *httpclient.Client
	breaker  *resilience.CircuitBreaker
	maxNodes int
}

// NewLoader builds a loader against the configured Overpass URL. The breaker
// is optional.
func NewLoader(cfg config.GraphConfig, breaker *resilience.CircuitBreaker) *Loader {
	timeout := time.Duration(cfg.FetchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Loader{
		client: httpclient.NewClient(cfg.OverpassURL, timeout,
			httpclient.WithDefaultRetry(),
			httpclient.WithUserAgent("wayfinder/1.0"),
		),
		breaker:  breaker,
		maxNodes: cfg.MaxNodes,
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// FetchRadius downloads the drivable network within radiusKm of the center
// and returns it as an annotated graph keyed by RegionKey.
func (l *Loader) FetchRadius(ctx context.Context, lat, lon, radiusKm float64, profile string) (*Graph, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:%d];(way["highway"](around:%.0f,%.6f,%.6f);>;);out body;`,
		overpassServerTimeout, radiusKm*1000, lat, lon,
	)
	return l.fetch(ctx, query, RegionKey(lat, lon, radiusKm, profile), profile)
}

// FetchBBox downloads the drivable network inside the bounding box.
func (l *Loader) FetchBBox(ctx context.Context, south, west, north, east float64, profile string) (*Graph, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:%d];(way["highway"](%.6f,%.6f,%.6f,%.6f);>;);out body;`,
		overpassServerTimeout, south, west, north, east,
	)
	return l.fetch(ctx, query, BBoxKey(south, west, north, east, profile), profile)
}

const overpassServerTimeout = 30

func (l *Loader) fetch(ctx context.Context, query, key, profile string) (*Graph, error) {
	started := time.Now()

	body, err := l.post(ctx, query)
	if err != nil {
		return nil, common.NewUpstreamUnavailableError("street network provider unavailable", err)
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, common.NewUpstreamUnavailableError("street network provider returned malformed data", err)
	}

	g, err := l.assemble(resp.Elements, key, profile)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "fetched street network",
		zap.String("key", key),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return g, nil
}

func (l *Loader) post(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}

	do := func(ctx context.Context) (interface{}, error) {
		return l.client.PostForm(ctx, "", form, nil)
	}

	var result interface{}
	var err error
	if l.breaker != nil {
		result, err = l.breaker.Execute(ctx, do)
	} else {
		result, err = do(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// assemble turns raw Overpass elements into an adjacency-list graph. Only
// nodes referenced by highway ways survive; each consecutive node pair on a
// way becomes one edge per direction unless the way is tagged oneway.
func (l *Loader) assemble(elements []overpassElement, key, profile string) (*Graph, error) {
	coords := make(map[int64]Node)
	var ways []overpassElement
	for _, el := range elements {
		switch el.Type {
		case "node":
			coords[el.ID] = Node{ID: el.ID, Lat: el.Lat, Lon: el.Lon}
		case "way":
			if el.Tags["highway"] != "" {
				ways = append(ways, el)
			}
		}
	}

	g := NewGraph(key, profile)
	for _, way := range ways {
		highway := way.Tags["highway"]
		maxSpeed := ParseMaxSpeed(way.Tags["maxspeed"])
		forward, backward := onewayDirections(way.Tags["oneway"])

		for i := 0; i+1 < len(way.Nodes); i++ {
			a, okA := coords[way.Nodes[i]]
			b, okB := coords[way.Nodes[i+1]]
			if !okA || !okB {
				continue
			}

			g.AddNode(a)
			g.AddNode(b)

			length := geo.HaversineMeters(a.Lat, a.Lon, b.Lat, b.Lon)
			if forward {
				g.AddEdge(a.ID, Edge{To: b.ID, LengthM: length, Highway: highway, MaxSpeed: maxSpeed})
			}
			if backward {
				g.AddEdge(b.ID, Edge{To: a.ID, LengthM: length, Highway: highway, MaxSpeed: maxSpeed})
			}
		}
	}

	if g.NodeCount() == 0 {
		return nil, common.NewUnavailableRegionError("no road network found for the requested region", nil)
	}
	if l.maxNodes > 0 && g.NodeCount() > l.maxNodes {
		return nil, common.NewUnavailableRegionError(
			fmt.Sprintf("region too large: %d nodes exceeds limit of %d", g.NodeCount(), l.maxNodes), nil)
	}

	AnnotateTravelTimes(g)
	return g, nil
}

func onewayDirections(tag string) (forward, backward bool) {
	switch tag {
	case "yes", "true", "1":
		return true, false
	case "-1", "reverse":
		return false, true
	default:
		return true, true
	}
}
