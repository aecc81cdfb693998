package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Canonical(t *testing.T) {
	for _, mode := range Modes() {
		got, err := Normalize(mode)
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
}

func TestNormalize_Aliases(t *testing.T) {
	cases := map[string]string{
		"car":        ModeDriving,
		"auto":       ModeDriving,
		"drive":      ModeDriving,
		"walk":       ModeWalking,
		"pedestrian": ModeWalking,
		"foot":       ModeWalking,
		"bike":       ModeCycling,
		"cycle":      ModeCycling,
		"bicycle":    ModeCycling,
		"  Car  ":    ModeDriving,
		"WALKING":    ModeWalking,
	}

	for input, want := range cases {
		got, err := Normalize(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestNormalize_EmptyDefaultsToDriving(t *testing.T) {
	got, err := Normalize("")
	require.NoError(t, err)
	assert.Equal(t, ModeDriving, got)
}

func TestNormalize_Unknown(t *testing.T) {
	_, err := Normalize("teleport")

	require.Error(t, err)
	var modeErr *UnsupportedModeError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, "teleport", modeErr.Mode)
}

func TestAliases_GroupedByMode(t *testing.T) {
	grouped := Aliases()

	assert.ElementsMatch(t, []string{"auto", "car", "drive"}, grouped[ModeDriving])
	assert.ElementsMatch(t, []string{"foot", "pedestrian", "walk"}, grouped[ModeWalking])
	assert.ElementsMatch(t, []string{"bicycle", "bike", "cycle"}, grouped[ModeCycling])
}
