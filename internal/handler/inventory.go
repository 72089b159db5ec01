package handler

import (
	"net/http"
	"strconv"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Restock godoc
// @Summary      Restock a SKU
// @Description  Appends a positive delta to the stock ledger.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RestockRequest true "SKU and quantity"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventory/restock [post]
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req dto.RestockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Restock(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Adjust godoc
// @Summary      Adjust stock
// @Description  Signed correction after a physical count. Refused if it would drive stock negative.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.AdjustStockRequest true "Signed delta with note"
// @Success      204
// @Failure      409 {object} apierror.APIError "would go negative"
// @Router       /v1/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Adjust(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDeltas godoc
// @Summary      Stock movement log
// @Description  Paginated view of the append-only delta ledger.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        sku    query string false "Filter by SKU"
// @Param        reason query string false "restock | sale | adjustment | void"
// @Param        page   query int    false "Page (default 1)"
// @Param        limit  query int    false "Rows per page (default 100)"
// @Success      200    {object} dto.DeltaListResponse
// @Router       /v1/inventory/deltas [get]
func (h *InventoryHandler) ListDeltas(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter := repository.DeltaFilter{
		SKU:    c.Query("sku"),
		Reason: c.Query("reason"),
		Page:   page,
		Limit:  limit,
	}
	resp, err := h.svc.ListDeltas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Alerts godoc
// @Summary      Low stock alerts
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.StockAlertResponse
// @Router       /v1/inventory/alerts [get]
func (h *InventoryHandler) Alerts(c *gin.Context) {
	resp, err := h.svc.LowStockAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Verify godoc
// @Summary      Verify stock integrity
// @Description  Folds the delta ledger for one SKU and compares it to the cached on-hand count.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        sku path string true "SKU"
// @Success      200 {object} map[string]bool
// @Failure      500 {object} apierror.APIError "ledger diverged"
// @Router       /v1/inventory/verify/{sku} [get]
func (h *InventoryHandler) Verify(c *gin.Context) {
	if err := h.svc.VerifyStock(c.Request.Context(), c.Param("sku")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consistent": true})
}
