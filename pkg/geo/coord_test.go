package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoord_UnmarshalNumber(t *testing.T) {
	var c Coord
	require.NoError(t, json.Unmarshal([]byte(`40.7128`), &c))
	assert.Equal(t, 40.7128, c.Float())
}

func TestCoord_UnmarshalString(t *testing.T) {
	var c Coord
	require.NoError(t, json.Unmarshal([]byte(`"-74.006"`), &c))
	assert.Equal(t, -74.006, c.Float())
}

func TestCoord_UnmarshalNull(t *testing.T) {
	var c Coord = 1
	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.Zero(t, c.Float())
}

func TestCoord_UnmarshalGarbage(t *testing.T) {
	var c Coord
	assert.Error(t, json.Unmarshal([]byte(`"north"`), &c))
}

func TestCoord_MarshalsAsNumber(t *testing.T) {
	out, err := json.Marshal(struct {
		Lat Coord `json:"lat"`
	}{Lat: 40.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":40.5}`, string(out))
}
