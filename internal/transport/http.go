package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waygrid/wayfinder/pkg/common"
)

// HandleModeError sends a 400 listing the supported modes and their aliases
// when err is an UnsupportedModeError. Returns true when a response was
// written.
func HandleModeError(c *gin.Context, err error) bool {
	var modeErr *UnsupportedModeError
	if !errors.As(err, &modeErr) {
		return false
	}

	common.ErrorResponseWithDetails(c, http.StatusBadRequest, modeErr.Error(), gin.H{
		"supported_modes": Modes(),
		"aliases":         Aliases(),
	})
	return true
}
