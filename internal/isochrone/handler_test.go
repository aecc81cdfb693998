package isochrone

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/pkg/config"
)

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func testRouter(t *testing.T, graphs GraphCache) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := NewService(config.IsochroneConfig{ResultCacheSize: 16}, graphs)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api")
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func TestHandler_Calculate(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/calculate",
		jsonBody(`{"latitude":40.700,"longitude":-74.000,"travel_times":[1,2],"travel_mode":"car"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool     `json:"success"`
		Data    Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "driving", body.Data.Mode)
	assert.Len(t, body.Data.Contours, 2)
}

func TestHandler_Calculate_DefaultTravelTimes(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/calculate",
		jsonBody(`{"latitude":40.700,"longitude":-74.000}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Contours, 3)
}

func TestHandler_Calculate_UnsupportedMode(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/calculate",
		jsonBody(`{"latitude":40.700,"longitude":-74.000,"travel_times":[5],"travel_mode":"rocket"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "supported_modes")
}

func TestHandler_GeoJSON(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/geojson",
		jsonBody(`{"latitude":40.700,"longitude":-74.000,"travel_times":[2]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"FeatureCollection"`)
	assert.Contains(t, w.Body.String(), `"travel_time_minutes"`)
}

func TestHandler_Stats(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/stats",
		jsonBody(`{"latitude":40.700,"longitude":-74.000,"travel_times":[1,2]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 9, body.Data.GraphNodes)
	require.Len(t, body.Data.Statistics, 2)
	assert.Equal(t, 1.0, body.Data.Statistics[0].TravelTimeMin)
	assert.Positive(t, body.Data.Statistics[1].VertexCount)
	require.NotNil(t, body.Data.Bounds)
	assert.LessOrEqual(t, body.Data.Bounds.Southwest[0], body.Data.Bounds.Northeast[0])
}

func TestHandler_Stats_InvalidLatitude(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/stats",
		jsonBody(`{"latitude":95.0,"longitude":-74.000,"travel_times":[5]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "latitude")
}

func TestHandler_CacheStatusAndClear(t *testing.T) {
	graphs := &stubGraphCache{g: diamondGraph()}
	r := testRouter(t, graphs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/isochrone/cache/status", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "result_cache_entries")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/isochrone/cache/clear", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, graphs.purged)

	graphs.pruned = 3
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/isochrone/cache/clear?scope=old", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed_files":3`)
}

func TestHandler_Preload(t *testing.T) {
	r := testRouter(t, &stubGraphCache{preloadOK: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/preload",
		jsonBody(`{"latitude":40.700,"longitude":-74.000,"travel_time":15}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":1`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/isochrone/preload", jsonBody(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":15`)
}

func TestHandler_Batch(t *testing.T) {
	r := testRouter(t, &stubGraphCache{g: diamondGraph()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/isochrone/batch",
		jsonBody(`{"requests":[{"latitude":40.700,"longitude":-74.000,"travel_times":[1]}]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results"`)
}
