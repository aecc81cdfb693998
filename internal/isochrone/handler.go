package isochrone

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waygrid/wayfinder/internal/transport"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/middleware"
)

// Handler exposes isochrone endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new isochrone handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers isochrone routes under the given group. Compare
// and batch carry their own request timeouts; the service enforces matching
// context deadlines internally.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	compareTimeout := time.Duration(h.service.cfg.CompareTimeout) * time.Second
	batchTimeout := time.Duration(h.service.cfg.BatchTimeout) * time.Second

	iso := rg.Group("/isochrone")
	{
		iso.POST("/calculate", h.Calculate)
		iso.POST("/geojson", h.GeoJSON)
		iso.POST("/compare", middleware.RequestTimeout(compareTimeout), h.Compare)
		iso.POST("/stats", h.Stats)
		iso.POST("/batch", middleware.RequestTimeout(batchTimeout), h.Batch)
		iso.GET("/cache/status", h.CacheStatus)
		iso.POST("/cache/clear", h.CacheClear)
		iso.POST("/preload", h.Preload)
	}
}

// Calculate returns reachability contours for one center.
func (h *Handler) Calculate(c *gin.Context) {
	var req Request
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Calculate(c.Request.Context(), req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to calculate isochrone")
		return
	}

	common.SuccessResponse(c, resp)
}

// GeoJSON returns the contours as a FeatureCollection for direct map use.
func (h *Handler) GeoJSON(c *gin.Context) {
	var req Request
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Calculate(c.Request.Context(), req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to calculate isochrone")
		return
	}

	c.JSON(http.StatusOK, ToGeoJSON(resp))
}

// Compare runs one cutoff across up to three modes.
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Compare(c.Request.Context(), req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to compare isochrones")
		return
	}

	common.SuccessResponse(c, resp)
}

// Stats returns per-cutoff contour statistics with the enclosing bounds.
func (h *Handler) Stats(c *gin.Context) {
	var req Request
	if !common.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Stats(c.Request.Context(), req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to load graph stats")
		return
	}

	common.SuccessResponse(c, resp)
}

// Batch runs up to ten isochrone requests in one call.
func (h *Handler) Batch(c *gin.Context) {
	var req BatchRequest
	if !common.BindJSON(c, &req) {
		return
	}

	entries, err := h.service.Batch(c.Request.Context(), req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to run isochrone batch")
		return
	}

	common.SuccessResponse(c, gin.H{"results": entries})
}

// CacheStatus reports graph cache layers and result memo size.
func (h *Handler) CacheStatus(c *gin.Context) {
	status, err := h.service.Status()
	if err != nil {
		common.HandleServiceError(c, err, "failed to read cache status")
		return
	}

	common.SuccessResponse(c, status)
}

// CacheClear drops in-memory graphs and memoized results. With ?scope=old
// it instead prunes disk graphs older than thirty days.
func (h *Handler) CacheClear(c *gin.Context) {
	if c.Query("scope") == "old" {
		removed, err := h.service.PruneOldGraphs()
		if err != nil {
			common.HandleServiceError(c, err, "failed to prune old graphs")
			return
		}
		common.SuccessResponse(c, gin.H{"cleared": true, "removed_files": removed})
		return
	}

	h.service.ClearCache()
	common.SuccessResponse(c, gin.H{"cleared": true})
}

// Preload queues background fetches: one region when coordinates are
// given, the default city set otherwise.
func (h *Handler) Preload(c *gin.Context) {
	var req PreloadRequest
	if !common.BindJSON(c, &req) {
		return
	}

	queued, err := h.service.Preload(req)
	if err != nil {
		if transport.HandleModeError(c, err) {
			return
		}
		common.HandleServiceError(c, err, "failed to queue preload")
		return
	}

	common.SuccessResponse(c, gin.H{"queued": queued})
}
