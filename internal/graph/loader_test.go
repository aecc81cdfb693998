package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/pkg/common"
)

func overpassFixture() []overpassElement {
	return []overpassElement{
		{Type: "node", ID: 1, Lat: 40.7100, Lon: -74.0000},
		{Type: "node", ID: 2, Lat: 40.7110, Lon: -74.0000},
		{Type: "node", ID: 3, Lat: 40.7120, Lon: -74.0000},
		{Type: "way", ID: 100, Nodes: []int64{1, 2, 3}, Tags: map[string]string{"highway": "residential"}},
	}
}

func TestAssemble_BuildsBidirectionalEdges(t *testing.T) {
	l := &Loader{}

	g, err := l.assemble(overpassFixture(), "test", "driving")

	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	// Two segments, one edge each way.
	assert.Equal(t, 4, g.EdgeCount())
	assert.Positive(t, g.Edges[1][0].TravelTime["driving"])
	assert.Positive(t, g.Edges[1][0].LengthM)
}

func TestAssemble_OnewayForwardOnly(t *testing.T) {
	elements := overpassFixture()
	elements[3].Tags["oneway"] = "yes"
	l := &Loader{}

	g, err := l.assemble(elements, "test", "driving")

	require.NoError(t, err)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Len(t, g.Edges[1], 1)
	assert.Empty(t, g.Edges[3])
}

func TestAssemble_OnewayReverse(t *testing.T) {
	elements := overpassFixture()
	elements[3].Tags["oneway"] = "-1"
	l := &Loader{}

	g, err := l.assemble(elements, "test", "driving")

	require.NoError(t, err)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Empty(t, g.Edges[1])
	assert.Len(t, g.Edges[3], 1)
}

func TestAssemble_SkipsWaysWithoutHighwayTag(t *testing.T) {
	elements := []overpassElement{
		{Type: "node", ID: 1, Lat: 40.71, Lon: -74.00},
		{Type: "node", ID: 2, Lat: 40.72, Lon: -74.00},
		{Type: "way", ID: 100, Nodes: []int64{1, 2}, Tags: map[string]string{"waterway": "river"}},
	}
	l := &Loader{}

	_, err := l.assemble(elements, "test", "driving")

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailableRegion)
}

func TestAssemble_EmptyRegion(t *testing.T) {
	l := &Loader{}

	_, err := l.assemble(nil, "test", "driving")

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailableRegion)
}

func TestAssemble_RegionTooLarge(t *testing.T) {
	l := &Loader{maxNodes: 2}

	_, err := l.assemble(overpassFixture(), "test", "driving")

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailableRegion)
}

func TestAssemble_MaxSpeedTagged(t *testing.T) {
	elements := overpassFixture()
	elements[3].Tags["maxspeed"] = "30 mph"
	l := &Loader{}

	g, err := l.assemble(elements, "test", "driving")

	require.NoError(t, err)
	assert.InDelta(t, 48.28, g.Edges[1][0].MaxSpeed, 0.01)
}

func TestOnewayDirections(t *testing.T) {
	forward, backward := onewayDirections("yes")
	assert.True(t, forward)
	assert.False(t, backward)

	forward, backward = onewayDirections("-1")
	assert.False(t, forward)
	assert.True(t, backward)

	forward, backward = onewayDirections("")
	assert.True(t, forward)
	assert.True(t, backward)

	forward, backward = onewayDirections("no")
	assert.True(t, forward)
	assert.True(t, backward)
}
