package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighwaySpeed_KnownClasses(t *testing.T) {
	assert.Equal(t, 120.0, HighwaySpeed("motorway"))
	assert.Equal(t, 100.0, HighwaySpeed("trunk"))
	assert.Equal(t, 90.0, HighwaySpeed("primary"))
	assert.Equal(t, 80.0, HighwaySpeed("secondary"))
	assert.Equal(t, 60.0, HighwaySpeed("tertiary"))
	assert.Equal(t, 40.0, HighwaySpeed("residential"))
	assert.Equal(t, 30.0, HighwaySpeed("service"))
	assert.Equal(t, 20.0, HighwaySpeed("living_street"))
	assert.Equal(t, 5.0, HighwaySpeed("pedestrian"))
	assert.Equal(t, 30.0, HighwaySpeed("track"))
	assert.Equal(t, 50.0, HighwaySpeed("unclassified"))
}

func TestHighwaySpeed_UnknownFallsBack(t *testing.T) {
	assert.Equal(t, DefaultRoadSpeedKmh, HighwaySpeed("busway"))
	assert.Equal(t, DefaultRoadSpeedKmh, HighwaySpeed(""))
}

func TestHighwaySpeed_LinkInheritsBase(t *testing.T) {
	assert.Equal(t, 120.0, HighwaySpeed("motorway_link"))
	assert.Equal(t, 90.0, HighwaySpeed("primary_link"))
}

func TestParseMaxSpeed(t *testing.T) {
	assert.Equal(t, 50.0, ParseMaxSpeed("50"))
	assert.Equal(t, 30.5, ParseMaxSpeed(" 30.5 "))
	assert.InDelta(t, 48.28, ParseMaxSpeed("30 mph"), 0.01)
	assert.InDelta(t, 96.56, ParseMaxSpeed("60mph"), 0.01)
	assert.Equal(t, 80.0, ParseMaxSpeed("80 km/h"))
}

func TestParseMaxSpeed_NonNumericIsZero(t *testing.T) {
	assert.Zero(t, ParseMaxSpeed(""))
	assert.Zero(t, ParseMaxSpeed("signals"))
	assert.Zero(t, ParseMaxSpeed("none"))
	assert.Zero(t, ParseMaxSpeed("-20"))
}

func TestParseMaxSpeed_MultiValueTakesFirst(t *testing.T) {
	assert.Equal(t, 50.0, ParseMaxSpeed("50; 30"))
}

func TestEdgeSpeed_TaggedWinsOverClass(t *testing.T) {
	assert.Equal(t, 70.0, EdgeSpeed("motorway", 70))
	assert.Equal(t, 120.0, EdgeSpeed("motorway", 0))
}

func TestProfileSpeed(t *testing.T) {
	assert.Equal(t, 50.0, ProfileSpeed("driving"))
	assert.Equal(t, 5.0, ProfileSpeed("walking"))
	assert.Equal(t, 15.0, ProfileSpeed("cycling"))
	assert.Equal(t, 50.0, ProfileSpeed("unknown"))
}

func TestAnnotateTravelTimes(t *testing.T) {
	g := NewGraph("test", "driving")
	g.AddNode(Node{ID: 1, Lat: 0, Lon: 0})
	g.AddNode(Node{ID: 2, Lat: 0, Lon: 0.01})
	g.AddEdge(1, Edge{To: 2, LengthM: 1000, Highway: "residential"})

	AnnotateTravelTimes(g)

	edge := g.Edges[1][0]
	// 1 km at 40 km/h is 90 seconds.
	assert.InDelta(t, 90, edge.TravelTime["driving"], 0.01)
	// 1 km at 5 km/h is 720 seconds.
	assert.InDelta(t, 720, edge.TravelTime["walking"], 0.01)
	// 1 km at 15 km/h is 240 seconds.
	assert.InDelta(t, 240, edge.TravelTime["cycling"], 0.01)
}
