package directions

import (
	"github.com/gin-gonic/gin"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
)

// Handler exposes directions endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new directions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers directions routes under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	d := rg.Group("/directions")
	{
		d.POST("/route", h.Route)
		d.POST("/simple", h.Simple)
		d.GET("/modes", h.Modes)
		d.POST("/route_pdp", h.RoutePDP)
	}
}

// Route returns turn-by-turn directions.
func (h *Handler) Route(c *gin.Context) {
	var req RouteRequest
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Route(c.Request.Context(), req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to compute route")
		return
	}

	common.SuccessResponse(c, resp)
}

// Simple returns a condensed route between an origin and a destination.
// The alternatives flag is accepted for wire compatibility; the condensed
// payload always carries the primary route.
func (h *Handler) Simple(c *gin.Context) {
	var req SimpleRequest
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Route(c.Request.Context(), RouteRequest{
		Waypoints: []LatLng{req.Origin, req.Destination},
		Mode:      req.Mode,
	})
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to compute route")
		return
	}

	common.SuccessResponse(c, SimpleRouteResponse{
		DistanceKm:  resp.DistanceKm,
		DurationSec: resp.DurationSec,
		Duration:    resp.DurationStr,
		Polyline:    resp.Polyline,
		Mode:        resp.Mode,
		Source:      resp.Source,
	})
}

// Modes lists the accepted transport modes and aliases.
func (h *Handler) Modes(c *gin.Context) {
	common.SuccessResponse(c, h.service.Modes())
}

// RoutePDP optimizes a pickup/delivery sequence and routes the result.
func (h *Handler) RoutePDP(c *gin.Context) {
	var req PDPRequest
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.PDP(c.Request.Context(), req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to compute optimized route")
		return
	}

	common.SuccessResponse(c, resp)
}
