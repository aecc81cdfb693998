package graph

import (
	"strconv"
	"strings"
)

const (
	// DefaultRoadSpeedKmh applies when a way carries no usable highway or
	// maxspeed tag.
	DefaultRoadSpeedKmh = 50.0

	milesToKm = 1.60934
)

// Profile speeds in km/h used for non-driving annotation and for great-circle
// repairs where no road data exists.
const (
	DrivingSpeedKmh = 50.0
	WalkingSpeedKmh = 5.0
	CyclingSpeedKmh = 15.0
)

// highwaySpeeds maps OSM highway classes to assumed free-flow driving speeds
// in km/h.
var highwaySpeeds = map[string]float64{
	"motorway":      120,
	"trunk":         100,
	"primary":       90,
	"secondary":     80,
	"tertiary":      60,
	"residential":   40,
	"service":       30,
	"living_street": 20,
	"pedestrian":    5,
	"track":         30,
	"unclassified":  50,
}

// HighwaySpeed returns the assumed driving speed for a highway class,
// falling back to DefaultRoadSpeedKmh for unknown classes. Composite values
// like "motorway_link" inherit the base class speed.
func HighwaySpeed(highway string) float64 {
	highway = strings.ToLower(strings.TrimSpace(highway))
	if speed, ok := highwaySpeeds[highway]; ok {
		return speed
	}
	if base, ok := strings.CutSuffix(highway, "_link"); ok {
		if speed, ok := highwaySpeeds[base]; ok {
			return speed
		}
	}
	return DefaultRoadSpeedKmh
}

// ParseMaxSpeed interprets an OSM maxspeed tag value as km/h. Plain numbers
// are km/h; "NN mph" is converted. Returns 0 when the tag is absent or not
// numeric (e.g. "signals", "none").
func ParseMaxSpeed(tag string) float64 {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return 0
	}

	// Multi-valued tags like "50; 30" take the first component.
	if idx := strings.IndexAny(tag, ";,"); idx >= 0 {
		tag = strings.TrimSpace(tag[:idx])
	}

	factor := 1.0
	if rest, ok := strings.CutSuffix(tag, "mph"); ok {
		tag = strings.TrimSpace(rest)
		factor = milesToKm
	} else if rest, ok := strings.CutSuffix(tag, "km/h"); ok {
		tag = strings.TrimSpace(rest)
	}

	value, err := strconv.ParseFloat(tag, 64)
	if err != nil || value <= 0 {
		return 0
	}
	return value * factor
}

// EdgeSpeed returns the driving speed for an edge: a tagged maxspeed wins,
// otherwise the highway class speed.
func EdgeSpeed(highway string, maxSpeed float64) float64 {
	if maxSpeed > 0 {
		return maxSpeed
	}
	return HighwaySpeed(highway)
}

// ProfileSpeed returns the flat travel speed for a profile, used when
// annotating walking and cycling edges and for great-circle estimates.
func ProfileSpeed(profile string) float64 {
	switch profile {
	case "walking":
		return WalkingSpeedKmh
	case "cycling":
		return CyclingSpeedKmh
	default:
		return DrivingSpeedKmh
	}
}

// AnnotateTravelTimes fills in per-profile traversal seconds on every edge.
// Driving uses the road speed model; walking and cycling move at flat
// profile speeds regardless of road class.
func AnnotateTravelTimes(g *Graph) {
	for from, adj := range g.Edges {
		for i := range adj {
			edge := &adj[i]
			if edge.TravelTime == nil {
				edge.TravelTime = make(map[string]float64, 3)
			}
			edge.TravelTime["driving"] = travelSeconds(edge.LengthM, EdgeSpeed(edge.Highway, edge.MaxSpeed))
			edge.TravelTime["walking"] = travelSeconds(edge.LengthM, WalkingSpeedKmh)
			edge.TravelTime["cycling"] = travelSeconds(edge.LengthM, CyclingSpeedKmh)
		}
		g.Edges[from] = adj
	}
}

func travelSeconds(lengthM, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultRoadSpeedKmh
	}
	return lengthM / (speedKmh * 1000.0 / 3600.0)
}
