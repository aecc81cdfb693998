package usage

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/waygrid/wayfinder/pkg/cache"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/middleware"
	"github.com/waygrid/wayfinder/pkg/pagination"
)

// Reader is the query side of the usage store.
type Reader interface {
	ListRecords(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Record, int64, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

// Handler exposes usage introspection endpoints. Routes require auth; the
// identity scopes every query.
type Handler struct {
	store Reader
	cache *cache.Manager
}

// NewHandler creates a new usage handler.
func NewHandler(store Reader, cacheManager *cache.Manager) *Handler {
	return &Handler{store: store, cache: cacheManager}
}

// RegisterRoutes registers usage routes under the given group. The group is
// expected to carry the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	u := rg.Group("/usage")
	{
		u.GET("/records", h.Records)
		u.GET("/summary", h.Summary)
	}
}

// Records returns the caller's tracked API calls, newest first.
func (h *Handler) Records(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.RespondWithError(c, common.NewUnauthorizedError("authentication required"))
		return
	}

	params := pagination.ParseParams(c)

	records, total, err := h.store.ListRecords(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list usage records")
		return
	}
	if records == nil {
		records = []Record{}
	}

	common.SuccessResponseWithMeta(c, RecordsResponse{Records: records, Total: total},
		pagination.BuildMeta(params.Limit, params.Offset, total))
}

// Summary returns aggregated usage for the caller, cached briefly.
func (h *Handler) Summary(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.RespondWithError(c, common.NewUnauthorizedError("authentication required"))
		return
	}

	ctx := c.Request.Context()
	key := cache.Keys.UsageSummary(userID.String())

	if h.cache != nil {
		var cached Summary
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			common.SuccessResponse(c, &cached)
			return
		}
	}

	summary, err := h.store.GetSummary(ctx, userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to build usage summary")
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, key, summary, cache.TTL.Short())
	}
	common.SuccessResponse(c, summary)
}
