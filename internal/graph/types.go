package graph

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Node is a street-network vertex keyed by its OSM node ID.
type Node struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Edge is a directed connection between two nodes. LengthM is the great-circle
// length of the segment; TravelTime carries precomputed seconds per profile.
type Edge struct {
	To         int64              `json:"to"`
	LengthM    float64            `json:"length_m"`
	Highway    string             `json:"highway"`
	MaxSpeed   float64            `json:"max_speed,omitempty"` // km/h, 0 when untagged
	TravelTime map[string]float64 `json:"travel_time"`         // seconds, keyed by profile
}

// Graph is an in-memory street network for one cached region. Edges are
// stored as adjacency lists keyed by the source node ID.
type Graph struct {
	Key     string           `json:"key"`
	Profile string           `json:"profile"`
	Nodes   map[int64]Node   `json:"nodes"`
	Edges   map[int64][]Edge `json:"edges"`
}

// NewGraph allocates an empty graph for the given region key and profile.
func NewGraph(key, profile string) *Graph {
	return &Graph{
		Key:     key,
		Profile: profile,
		Nodes:   make(map[int64]Node),
		Edges:   make(map[int64][]Edge),
	}
}

// NodeCount returns the number of vertices.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, adj := range g.Edges {
		count += len(adj)
	}
	return count
}

// AddNode inserts or replaces a vertex.
func (g *Graph) AddNode(n Node) {
	g.Nodes[n.ID] = n
}

// AddEdge appends a directed edge from the given node.
func (g *Graph) AddEdge(from int64, e Edge) {
	g.Edges[from] = append(g.Edges[from], e)
}

// Clip returns the subgraph inside the (south, west, north, east) box.
// Edges survive only when both endpoints do.
func (g *Graph) Clip(south, west, north, east float64) *Graph {
	sub := NewGraph(g.Key, g.Profile)
	for _, n := range g.Nodes {
		if n.Lat >= south && n.Lat <= north && n.Lon >= west && n.Lon <= east {
			sub.AddNode(n)
		}
	}
	for from, adj := range g.Edges {
		if _, ok := sub.Nodes[from]; !ok {
			continue
		}
		for _, e := range adj {
			if _, ok := sub.Nodes[e.To]; ok {
				sub.AddEdge(from, e)
			}
		}
	}
	return sub
}

// RegionKey identifies a circular fetch region: coordinates rounded to three
// decimals, radius floored to whole kilometres, and the profile the graph
// was annotated for. Example: "40.713_-74.006_5km_driving".
func RegionKey(lat, lon float64, radiusKm float64, profile string) string {
	return fmt.Sprintf("%.3f_%.3f_%dkm_%s", lat, lon, int(math.Floor(radiusKm)), profile)
}

// BBoxKey identifies a rectangular fetch region by hashing its bounds, which
// keeps filenames short regardless of precision. Bounds are rounded to five
// decimals first so float noise does not split the cache.
func BBoxKey(south, west, north, east float64, profile string) string {
	raw := fmt.Sprintf("%.5f_%.5f_%.5f_%.5f_%s", south, west, north, east, profile)
	sum := md5.Sum([]byte(raw))
	return "bbox_" + hex.EncodeToString(sum[:])[:10] + "_" + profile
}

// CountryKey identifies a disk-provisioned country-wide graph.
func CountryKey(country, profile string) string {
	return fmt.Sprintf("country_%s_%s", strings.ToLower(strings.TrimSpace(country)), profile)
}

// SanitizeKey converts a region key into a filesystem-safe name: dots become
// underscores and a leading minus becomes "neg" so negative coordinates do
// not read as option flags.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "neg")
	return key
}
