package handler

import (
	"net/http"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/apierror"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/middleware"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type POSHandler struct{ svc service.InvoiceService }

func NewPOSHandler(svc service.InvoiceService) *POSHandler { return &POSHandler{svc: svc} }

// Scan godoc
// @Summary      Scan an item
// @Description  Looks up the SKU, reserves stock and returns the priced cart line. The reservation expires unless committed or released.
// @Tags         pos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ScanRequest true "SKU and quantity"
// @Success      200  {object} dto.ScanResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError "insufficient stock"
// @Router       /v1/pos/scan [post]
func (h *POSHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Scan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReleaseReservation godoc
// @Summary      Release a reservation
// @Description  Frees the held stock when an item is removed from the cart.
// @Tags         pos
// @Security     BearerAuth
// @Param        id path string true "Reservation UUID"
// @Success      204
// @Failure      409 {object} apierror.APIError "reservation already gone"
// @Router       /v1/pos/reservations/{id} [delete]
func (h *POSHandler) ReleaseReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.ReleaseReservation(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateInvoice godoc
// @Summary      Commit an invoice
// @Description  Converts the cart's reservations into a committed sale: invoice, lines and stock deltas land atomically, then analytics and receipt jobs are dispatched.
// @Tags         pos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateInvoiceRequest true "Cart lines"
// @Success      201  {object} dto.InvoiceResponse
// @Failure      409  {object} apierror.APIError "stale reservation or insufficient stock"
// @Router       /v1/pos/invoices [post]
func (h *POSHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Create(c.Request.Context(), req, claims.UserID, claims.StoreID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// VoidInvoice godoc
// @Summary      Void an invoice
// @Description  Reverses a committed invoice: stock is restored via compensating deltas and the analytics contribution is negated. History is preserved.
// @Tags         pos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "Invoice UUID"
// @Param        body body dto.VoidInvoiceRequest true "Void reason"
// @Success      200  {object} dto.InvoiceResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError "already voided"
// @Router       /v1/pos/invoices/{id} [delete]
func (h *POSHandler) VoidInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.VoidInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Void(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetInvoice godoc
// @Summary      Get invoice
// @Tags         pos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Invoice UUID"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pos/invoices/{id} [get]
func (h *POSHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListInvoices godoc
// @Summary      List invoices
// @Description  Paginated list filtered by date (default today), status and store.
// @Tags         pos
// @Produce      json
// @Security     BearerAuth
// @Param        date     query string false "YYYY-MM-DD (default: today)"
// @Param        status   query string false "committed | voided | all"
// @Param        store_id query string false "Store id"
// @Param        page     query int    false "Page (default 1)"
// @Param        limit    query int    false "Rows per page (default 50)"
// @Success      200      {object} dto.InvoiceListResponse
// @Router       /v1/pos/invoices [get]
func (h *POSHandler) ListInvoices(c *gin.Context) {
	var filter dto.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
