package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// NewEvent
// ---------------------------------------------------------------------------

func TestNewEvent_Success(t *testing.T) {
	data := map[string]string{"record_id": "abc"}

	event, err := NewEvent("usage.recorded", "wayfinder", data)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, "usage.recorded", event.Type)
	assert.Equal(t, "wayfinder", event.Source)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	// ID should be a valid UUID
	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)

	// Data should be valid JSON
	var decoded map[string]string
	err = json.Unmarshal(event.Data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded["record_id"])
}

func TestNewEvent_NilData(t *testing.T) {
	event, err := NewEvent("test.event", "test-source", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), event.Data)
}

func TestNewEvent_ComplexData(t *testing.T) {
	data := UsageRecordedData{
		RecordID:     uuid.New(),
		UserID:       uuid.New(),
		APIKind:      "routing",
		Endpoint:     "route",
		Method:       "POST",
		StatusCode:   200,
		ResponseMs:   42,
		RequestSize:  180,
		ResponseSize: 2048,
		DemandCell:   "8928308280fffff",
		RecordedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	event, err := NewEvent(SubjectUsageRecorded, "wayfinder", data)
	require.NoError(t, err)

	var decoded UsageRecordedData
	err = json.Unmarshal(event.Data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, data.RecordID, decoded.RecordID)
	assert.Equal(t, data.UserID, decoded.UserID)
	assert.Equal(t, data.APIKind, decoded.APIKind)
	assert.Equal(t, data.StatusCode, decoded.StatusCode)
	assert.Equal(t, data.ResponseMs, decoded.ResponseMs)
	assert.Equal(t, data.DemandCell, decoded.DemandCell)
	assert.Equal(t, data.RecordedAt, decoded.RecordedAt)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	// Channels cannot be marshaled to JSON
	event, err := NewEvent("test", "src", make(chan int))
	assert.Error(t, err)
	assert.Nil(t, event)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		event, err := NewEvent("test", "src", nil)
		require.NoError(t, err)
		assert.False(t, ids[event.ID], "duplicate event ID generated")
		ids[event.ID] = true
	}
}

func TestNewEvent_TimestampIsUTC(t *testing.T) {
	event, err := NewEvent("test", "src", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

// ---------------------------------------------------------------------------
// Event JSON serialization round-trip
// ---------------------------------------------------------------------------

func TestEvent_JSONRoundTrip(t *testing.T) {
	original, err := NewEvent("routes.computed", "wayfinder", map[string]int{"waypoints": 4})
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Event
	err = json.Unmarshal(data, &restored)
	require.NoError(t, err)

	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Type, restored.Type)
	assert.Equal(t, original.Source, restored.Source)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
}

// ---------------------------------------------------------------------------
// Subject constants
// ---------------------------------------------------------------------------

func TestSubjectConstants(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		expected string
	}{
		{"UsageRecorded", SubjectUsageRecorded, "usage.recorded"},
		{"GraphLoaded", SubjectGraphLoaded, "graphs.loaded"},
		{"GraphEvicted", SubjectGraphEvicted, "graphs.evicted"},
		{"RouteComputed", SubjectRouteComputed, "routes.computed"},
		{"RouteUnavailable", SubjectRouteUnavailable, "routes.unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.subject)
		})
	}
}

// ---------------------------------------------------------------------------
// DefaultConfig
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, "wayfinder", cfg.Name)
	assert.Equal(t, "WAYFINDER", cfg.StreamName)
}

// ---------------------------------------------------------------------------
// Config struct
// ---------------------------------------------------------------------------

func TestConfig_Fields(t *testing.T) {
	cfg := Config{
		URL:        "nats://custom:4222",
		Name:       "my-service",
		StreamName: "MYSTREAM",
	}

	assert.Equal(t, "nats://custom:4222", cfg.URL)
	assert.Equal(t, "my-service", cfg.Name)
	assert.Equal(t, "MYSTREAM", cfg.StreamName)
}

// ---------------------------------------------------------------------------
// HandlerFunc type
// ---------------------------------------------------------------------------

func TestHandlerFunc_Invocation(t *testing.T) {
	var called bool
	var receivedEvent *Event

	handler := HandlerFunc(func(ctx context.Context, event *Event) error {
		called = true
		receivedEvent = event
		return nil
	})

	event, _ := NewEvent("test.event", "test", map[string]string{"key": "value"})
	err := handler(context.Background(), event)

	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, event.ID, receivedEvent.ID)
}

func TestHandlerFunc_ReturnsError(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, event *Event) error {
		return assert.AnError
	})

	event, _ := NewEvent("test", "src", nil)
	err := handler(context.Background(), event)

	assert.ErrorIs(t, err, assert.AnError)
}

// ---------------------------------------------------------------------------
// Event data types – serialization
// ---------------------------------------------------------------------------

func TestUsageRecordedData_OmitsEmptyDemandCell(t *testing.T) {
	data := UsageRecordedData{
		RecordID:   uuid.New(),
		UserID:     uuid.New(),
		APIKind:    "geocoding",
		Endpoint:   "geocode",
		Method:     "POST",
		StatusCode: 200,
		RecordedAt: time.Now().UTC(),
	}

	b, err := json.Marshal(data)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "demand_cell")
}

func TestGraphLoadedData_Serialization(t *testing.T) {
	data := GraphLoadedData{
		GraphKey:  "40.713_-74.006_5km_driving",
		Profile:   "driving",
		NodeCount: 15230,
		EdgeCount: 38112,
		FromDisk:  true,
		LoadedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	b, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded GraphLoadedData
	err = json.Unmarshal(b, &decoded)
	require.NoError(t, err)

	assert.Equal(t, data.GraphKey, decoded.GraphKey)
	assert.Equal(t, data.NodeCount, decoded.NodeCount)
	assert.True(t, decoded.FromDisk)
}

func TestRouteComputedData_Serialization(t *testing.T) {
	data := RouteComputedData{
		Source:      "graph_fallback",
		Profile:     "cycling",
		DistanceKm:  12.34,
		DurationSec: 2958,
		Waypoints:   3,
		ComputedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	b, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded RouteComputedData
	err = json.Unmarshal(b, &decoded)
	require.NoError(t, err)

	assert.Equal(t, data.Source, decoded.Source)
	assert.Equal(t, data.DistanceKm, decoded.DistanceKm)
	assert.Equal(t, data.Waypoints, decoded.Waypoints)
}

// ---------------------------------------------------------------------------
// Bus struct – nil-safety of Connected()
// ---------------------------------------------------------------------------

func TestBus_Connected_NilConn(t *testing.T) {
	bus := &Bus{}
	assert.False(t, bus.Connected())
}

// ---------------------------------------------------------------------------
// Bus struct – Close with empty subs
// ---------------------------------------------------------------------------

func TestBus_Close_NoSubs(t *testing.T) {
	bus := &Bus{}
	// Should not panic
	bus.Close()
}

// ---------------------------------------------------------------------------
// Event struct – zero value
// ---------------------------------------------------------------------------

func TestEvent_ZeroValue(t *testing.T) {
	var event Event
	assert.Empty(t, event.ID)
	assert.Empty(t, event.Type)
	assert.Empty(t, event.Source)
	assert.True(t, event.Timestamp.IsZero())
	assert.Nil(t, event.Data)
}
