package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ValidateCoordinates
// ---------------------------------------------------------------------------

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name      string
		latitude  float64
		longitude float64
		expectErr bool
		errSubstr string
	}{
		{"valid origin", 0, 0, false, ""},
		{"valid NYC", 40.7128, -74.0060, false, ""},
		{"valid max latitude", 90, 0, false, ""},
		{"valid min latitude", -90, 0, false, ""},
		{"valid max longitude", 0, 180, false, ""},
		{"valid min longitude", 0, -180, false, ""},
		{"valid boundary corners", 90, 180, false, ""},
		{"lat too high", 90.1, 0, true, "latitude"},
		{"lat too low", -90.1, 0, true, "latitude"},
		{"lon too high", 0, 180.1, true, "longitude"},
		{"lon too low", 0, -180.1, true, "longitude"},
		{"both invalid", 100, 200, true, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.latitude, tt.longitude)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CoerceFloat
// ---------------------------------------------------------------------------

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		expected  float64
		expectErr bool
	}{
		{"float64", 41.99, 41.99, false},
		{"int", 42, 42.0, false},
		{"numeric string", "41.99", 41.99, false},
		{"negative string", "-74.006", -74.006, false},
		{"string with spaces", " 21.43 ", 21.43, false},
		{"integer string", "120", 120.0, false},
		{"non-numeric string", "ufo", 0, true},
		{"empty string", "", 0, true},
		{"bool", true, 0, true},
		{"nil", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceFloat(tt.value)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ValidateTravelTimes
// ---------------------------------------------------------------------------

func TestValidateTravelTimes(t *testing.T) {
	tests := []struct {
		name      string
		times     []float64
		expectErr bool
	}{
		{"single cutoff", []float64{10}, false},
		{"sorted list", []float64{5, 10, 15}, false},
		{"max cutoff", []float64{120}, false},
		{"ten entries", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, false},
		{"empty", []float64{}, true},
		{"zero cutoff", []float64{0}, true},
		{"negative cutoff", []float64{-5}, true},
		{"over two hours", []float64{121}, true},
		{"eleven entries", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTravelTimes(tt.times)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ValidateWaypoints
// ---------------------------------------------------------------------------

func TestValidateWaypoints(t *testing.T) {
	tests := []struct {
		name      string
		points    [][2]float64
		expectErr bool
	}{
		{"two valid points", [][2]float64{{41.12, 20.80}, {41.99, 21.43}}, false},
		{"many points", [][2]float64{{41.12, 20.80}, {41.99, 21.43}, {41.99, 21.46}}, false},
		{"single point", [][2]float64{{41.12, 20.80}}, true},
		{"empty", [][2]float64{}, true},
		{"out of range latitude", [][2]float64{{91, 0}, {41.99, 21.43}}, true},
		{"out of range longitude", [][2]float64{{41.12, 181}, {41.99, 21.43}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWaypoints(tt.points)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ValidationError methods
// ---------------------------------------------------------------------------

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{
		Errors: map[string]string{
			"latitude": "must be between -90 and 90",
		},
	}

	assert.Contains(t, ve.Error(), "latitude: must be between -90 and 90")
}

func TestValidationError_Error_MultipleFields(t *testing.T) {
	ve := &ValidationError{
		Errors: map[string]string{
			"latitude":     "must be between -90 and 90",
			"travel_times": "at most 10 travel times are allowed",
		},
	}

	errStr := ve.Error()
	assert.Contains(t, errStr, "latitude: must be between -90 and 90")
	assert.Contains(t, errStr, "travel_times: at most 10 travel times are allowed")
}

func TestValidationError_AddError_NilMap(t *testing.T) {
	ve := &ValidationError{Errors: nil}
	ve.AddError("field", "message")

	assert.NotNil(t, ve.Errors)
	assert.Equal(t, "message", ve.Errors["field"])
}

func TestValidationError_HasErrors(t *testing.T) {
	ve := &ValidationError{Errors: make(map[string]string)}
	assert.False(t, ve.HasErrors())

	ve.AddError("x", "y")
	assert.True(t, ve.HasErrors())
}

func TestValidationError_GetFieldError(t *testing.T) {
	ve := &ValidationError{
		Errors: map[string]string{"center": "center is required"},
	}

	msg, exists := ve.GetFieldError("center")
	assert.True(t, exists)
	assert.Equal(t, "center is required", msg)

	_, exists = ve.GetFieldError("missing")
	assert.False(t, exists)
}

// ---------------------------------------------------------------------------
// ValidateStruct – custom tags
// ---------------------------------------------------------------------------

type testLocation struct {
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

type testIsochroneRequest struct {
	TravelTime float64 `validate:"travel_time"`
}

type testTask struct {
	Type string `validate:"required,task_type"`
}

func TestValidateStruct_Location_Valid(t *testing.T) {
	req := testLocation{Latitude: 40.7128, Longitude: -74.0060}
	assert.NoError(t, ValidateStruct(&req))
}

func TestValidateStruct_Location_InvalidLatitude(t *testing.T) {
	req := testLocation{Latitude: 91.0, Longitude: -74.0060}
	err := ValidateStruct(&req)
	assert.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	_, exists := vErr.GetFieldError("latitude")
	assert.True(t, exists)
}

func TestValidateStruct_TravelTime_Boundaries(t *testing.T) {
	assert.NoError(t, ValidateStruct(&testIsochroneRequest{TravelTime: 1}))
	assert.NoError(t, ValidateStruct(&testIsochroneRequest{TravelTime: 120}))
	assert.Error(t, ValidateStruct(&testIsochroneRequest{TravelTime: 0}))
	assert.Error(t, ValidateStruct(&testIsochroneRequest{TravelTime: 121}))
}

func TestValidateStruct_TaskType(t *testing.T) {
	for _, valid := range []string{"current", "pickup", "delivery"} {
		t.Run("valid_"+valid, func(t *testing.T) {
			assert.NoError(t, ValidateStruct(&testTask{Type: valid}))
		})
	}

	err := ValidateStruct(&testTask{Type: "dropoff"})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// contains helper
// ---------------------------------------------------------------------------

func TestContains(t *testing.T) {
	tests := []struct {
		name   string
		slice  []string
		item   string
		expect bool
	}{
		{"found exact", []string{"a", "b", "c"}, "b", true},
		{"found case insensitive", []string{"Pickup", "Delivery"}, "pickup", true},
		{"not found", []string{"a", "b"}, "c", false},
		{"empty slice", []string{}, "a", false},
		{"with whitespace", []string{"current", "pickup"}, " current ", true},
		{"empty item", []string{"a"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, contains(tt.slice, tt.item))
		})
	}
}
