package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waygrid/wayfinder/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	return c, w
}

func TestHandleServiceError_NilError(t *testing.T) {
	c, w := setupTestContext()

	handled := common.HandleServiceError(c, nil, "should not appear")

	assert.False(t, handled)
	assert.Empty(t, w.Body.String())
}

func TestHandleServiceError_AppError(t *testing.T) {
	c, w := setupTestContext()

	handled := common.HandleServiceError(c, common.NewRouteUnavailableError("no route between points", nil), "fallback")

	assert.True(t, handled)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "no route between points", resp.Error.Message)
}

func TestHandleServiceError_WrappedAppError(t *testing.T) {
	c, w := setupTestContext()

	appErr := common.NewUnavailableRegionError("graph fetch failed", errors.New("overpass timeout"))
	wrapped := &wrapError{cause: appErr}

	handled := common.HandleServiceError(c, wrapped, "fallback")

	assert.True(t, handled)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleServiceError_UnknownError(t *testing.T) {
	c, w := setupTestContext()

	handled := common.HandleServiceError(c, errors.New("boom"), "failed to compute matrix")

	assert.True(t, handled)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed to compute matrix", resp.Error.Message)
}

func TestAppErrorKinds_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *common.AppError
		status int
	}{
		{"bad request", common.NewBadRequestError("bad", nil), http.StatusBadRequest},
		{"unauthorized", common.NewUnauthorizedError("no identity"), http.StatusUnauthorized},
		{"forbidden", common.NewForbiddenError("not allowed"), http.StatusForbidden},
		{"unavailable region", common.NewUnavailableRegionError("no graph", nil), http.StatusServiceUnavailable},
		{"upstream unavailable", common.NewUpstreamUnavailableError("overpass down", nil), http.StatusBadGateway},
		{"route unavailable", common.NewRouteUnavailableError("no route", nil), http.StatusNotFound},
		{"disconnected", common.NewDisconnectedError("all pairs unreachable"), http.StatusUnprocessableEntity},
		{"inconsistent pdp", common.NewInconsistentPDPError("delivery before pickup"), http.StatusUnprocessableEntity},
		{"internal", common.NewInternalError("oops", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Code)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := common.NewInconsistentPDPError("delivery before pickup")
	assert.True(t, errors.Is(err, common.ErrInconsistentPDP))
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		lat   float64
		lng   float64
		valid bool
	}{
		{"valid", 41.12, 20.80, true},
		{"lat too high", 91, 0, false},
		{"lat too low", -90.5, 0, false},
		{"lng too high", 0, 180.1, false},
		{"lng too low", 0, -181, false},
		{"boundary", 90, -180, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTestContext()

			ok := common.ValidateCoordinate(c, tt.lat, tt.lng, "origin")

			assert.Equal(t, tt.valid, ok)
			if !tt.valid {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

type wrapError struct {
	cause error
}

func (w *wrapError) Error() string { return "wrapped: " + w.cause.Error() }
func (w *wrapError) Unwrap() error { return w.cause }
