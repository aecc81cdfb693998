package geocoding

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/waygrid/wayfinder/pkg/common"
)

// Handler exposes geocoding endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new geocoding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers geocoding routes under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/geocoding")
	{
		g.POST("/geocode", h.Geocode)
		g.POST("/reverse", h.Reverse)
		g.POST("/batch", h.Batch)
		g.GET("/details/:place_id", h.Details)
	}
}

// Geocode resolves an address to coordinates.
func (h *Handler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Geocode(c.Request.Context(), req.Address)
	if err != nil {
		common.HandleServiceError(c, err, "failed to geocode address")
		return
	}

	common.SuccessResponse(c, result)
}

// Reverse resolves coordinates to an address.
func (h *Handler) Reverse(c *gin.Context) {
	var req ReverseRequest
	if !common.BindJSON(c, &req) {
		return
	}
	lat, lng := req.Latitude.Float(), req.Longitude.Float()
	if !common.ValidateCoordinate(c, lat, lng, "location") {
		return
	}

	result, err := h.service.ReverseGeocode(c.Request.Context(), lat, lng)
	if err != nil {
		common.HandleServiceError(c, err, "failed to reverse geocode")
		return
	}

	common.SuccessResponse(c, result)
}

// Batch geocodes up to 100 addresses in one call.
func (h *Handler) Batch(c *gin.Context) {
	var req BatchRequest
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Batch(c.Request.Context(), req.Addresses)
	if err != nil {
		common.HandleServiceError(c, err, "failed to geocode batch")
		return
	}

	common.SuccessResponse(c, resp)
}

// Details fetches the full upstream record for a place ID.
func (h *Handler) Details(c *gin.Context) {
	placeID, err := strconv.ParseInt(c.Param("place_id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "place_id must be an integer")
		return
	}

	result, svcErr := h.service.Details(c.Request.Context(), placeID)
	if svcErr != nil {
		common.HandleServiceError(c, svcErr, "failed to load place details")
		return
	}

	common.SuccessResponse(c, result)
}
