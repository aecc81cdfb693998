package matrix

import (
	"github.com/gin-gonic/gin"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
)

// Handler exposes the route solver over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new matrix handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers matrix routes under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	m := rg.Group("/matrix")
	{
		m.POST("/calculate", h.Calculate)
	}
}

// Calculate optimizes a pickup/delivery route.
func (h *Handler) Calculate(c *gin.Context) {
	var req CalculateRequest
	if !common.BindJSON(c, &req) {
		return
	}

	tasks, err := req.Tasks()
	if err != nil {
		common.HandleServiceError(c, common.NewValidationError(err.Error()), "invalid matrix request")
		return
	}

	resp, err := h.service.Solve(c.Request.Context(), SolveRequest{Tasks: tasks, Mode: req.Mode})
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to solve route")
		return
	}

	common.SuccessResponse(c, resp)
}
