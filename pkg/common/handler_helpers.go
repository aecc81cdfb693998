package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/waygrid/wayfinder/pkg/logger"
	"go.uber.org/zap"
)

// HandleServiceError handles service errors with consistent patterns.
// Returns true if an error was handled (and a response was sent).
//
// Usage:
//
//	result, err := h.service.Solve(ctx, req)
//	if common.HandleServiceError(c, err, "failed to solve route") {
//	    return
//	}
func HandleServiceError(c *gin.Context, err error, fallbackMessage string) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		AppErrorResponse(c, appErr)
		return true
	}

	logger.ErrorContext(c.Request.Context(), fallbackMessage, zap.Error(err))
	ErrorResponse(c, http.StatusInternalServerError, fallbackMessage)
	return true
}

// BindJSON binds a JSON request body and sends an error response on failure.
// Returns true on success.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ValidateLatitude sends a 400 and returns false when lat is out of range.
func ValidateLatitude(c *gin.Context, lat float64, fieldName string) bool {
	if lat < -90 || lat > 90 {
		ErrorResponse(c, http.StatusBadRequest, fieldName+" must be between -90 and 90, got "+strconv.FormatFloat(lat, 'f', -1, 64))
		return false
	}
	return true
}

// ValidateLongitude sends a 400 and returns false when lng is out of range.
func ValidateLongitude(c *gin.Context, lng float64, fieldName string) bool {
	if lng < -180 || lng > 180 {
		ErrorResponse(c, http.StatusBadRequest, fieldName+" must be between -180 and 180, got "+strconv.FormatFloat(lng, 'f', -1, 64))
		return false
	}
	return true
}

// ValidateCoordinate validates a lat/lng pair; the field name prefixes the
// error message ("origin latitude must be...").
func ValidateCoordinate(c *gin.Context, lat, lng float64, fieldName string) bool {
	if !ValidateLatitude(c, lat, fieldName+" latitude") {
		return false
	}
	return ValidateLongitude(c, lng, fieldName+" longitude")
}
