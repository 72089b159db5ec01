package handler

import (
	"net/http"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/apierror"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics service.AnalyticsService
	filters   service.FilterService
}

func NewAnalyticsHandler(analytics service.AnalyticsService, filters service.FilterService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, filters: filters}
}

// Summary godoc
// @Summary      Sales summary
// @Description  Aggregated sales over time buckets, served from pre-computed rollups. Filters must reference values observed in committed invoices.
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        store_id    query string false "Store id"
// @Param        cashier_id  query string false "Cashier id"
// @Param        sku         query string false "SKU (switches to per-item aggregates)"
// @Param        from        query string false "RFC 3339 start (default: start of today)"
// @Param        to          query string false "RFC 3339 end (default: start of tomorrow)"
// @Param        granularity query string false "hour | day | month (default day)"
// @Success      200         {object} dto.SummaryResponse
// @Failure      422         {object} apierror.APIError "unknown filter value"
// @Router       /v1/admin/analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	var filter dto.SummaryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(&filter); err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("invalid granularity"))
		return
	}
	resp, err := h.analytics.Query(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Filters godoc
// @Summary      Filter catalog
// @Description  The queryable dimensions and every value observed so far.
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.FilterCatalogResponse
// @Router       /v1/admin/filters [get]
func (h *AnalyticsHandler) Filters(c *gin.Context) {
	c.JSON(http.StatusOK, h.filters.ListDimensions())
}

// Rebuild godoc
// @Summary      Rebuild rollups
// @Description  Truncates the bucket table, replays all committed invoices in commit order and verifies the result. Admin only; intended for recovery.
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.RebuildResponse
// @Failure      500 {object} apierror.APIError "verification failed"
// @Router       /v1/admin/analytics/rebuild [post]
func (h *AnalyticsHandler) Rebuild(c *gin.Context) {
	resp, err := h.analytics.Rebuild(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
