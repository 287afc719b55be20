package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/gateway/middleware"
	"lecoq-erp/internal/services/maquila"
)

type MaquilaHTTPHandler struct {
	maquila *maquila.Service
}

func NewMaquilaHTTPHandler(maquilaSvc *maquila.Service) *MaquilaHTTPHandler {
	return &MaquilaHTTPHandler{maquila: maquilaSvc}
}

type MaquilaDetailRequest struct {
	ProductID    int64           `json:"product_id" binding:"required"`
	RequestedQty int             `json:"requested_qty" binding:"required,gt=0"`
	UnitCost     decimal.Decimal `json:"unit_cost" binding:"required"`
}

type CreateMaquilaRequest struct {
	SupplierName      string                 `json:"supplier_name" binding:"required"`
	SupplierTaxID     string                 `json:"supplier_tax_id"`
	SupplierContact   string                 `json:"supplier_contact"`
	SupplierPhone     string                 `json:"supplier_phone"`
	CostTotal         decimal.Decimal        `json:"cost_total"`
	OrderDate         *time.Time             `json:"order_date"`
	EstimatedDelivery *time.Time             `json:"estimated_delivery"`
	Notes             string                 `json:"notes"`
	Details           []MaquilaDetailRequest `json:"details"`
}

type UpdateMaquilaRequest struct {
	SupplierName      string     `json:"supplier_name" binding:"required"`
	SupplierTaxID     string     `json:"supplier_tax_id"`
	SupplierContact   string     `json:"supplier_contact"`
	SupplierPhone     string     `json:"supplier_phone"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             string     `json:"notes"`
}

type ReceivedQuantityRequest struct {
	DetailID    int64 `json:"detail_id" binding:"required"`
	ReceivedQty int   `json:"received_qty"`
}

type UpdateReceivedRequest struct {
	Details []ReceivedQuantityRequest `json:"details" binding:"required,min=1,dive"`
}

func (h *MaquilaHTTPHandler) ListMaquilaOrders(c *gin.Context) {
	list, err := h.maquila.FindAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila orders retrieved", list))
}

func (h *MaquilaHTTPHandler) ListMaquilaOrdersByStatus(c *gin.Context) {
	list, err := h.maquila.FindByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila orders retrieved", list))
}

func (h *MaquilaHTTPHandler) SearchMaquilaOrdersBySupplier(c *gin.Context) {
	name := c.Query("nombre")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Missing nombre query parameter"))
		return
	}
	list, err := h.maquila.SearchBySupplier(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila orders retrieved", list))
}

func (h *MaquilaHTTPHandler) ListMaquilaOrdersByDateRange(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("inicio"), c.Query("fin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid date range, expected YYYY-MM-DD"))
		return
	}
	list, err := h.maquila.FindByDateRange(c.Request.Context(), from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila orders retrieved", list))
}

func (h *MaquilaHTTPHandler) ListActiveMaquilaOrders(c *gin.Context) {
	list, err := h.maquila.FindByStatusIn(c.Request.Context(), []string{
		string(models.MaquilaPending),
		string(models.MaquilaEnProcess),
		string(models.MaquilaFinalized),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Active maquila orders retrieved", list))
}

func (h *MaquilaHTTPHandler) GetMaquilaOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}

	order, err := h.maquila.FindByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila order retrieved", order))
}

func (h *MaquilaHTTPHandler) GetMaquilaOrderByNumber(c *gin.Context) {
	order, err := h.maquila.FindByOrderNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila order retrieved", order))
}

func (h *MaquilaHTTPHandler) GetMaquilaDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}
	details, err := h.maquila.FindDetails(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila details retrieved", details))
}

func (h *MaquilaHTTPHandler) CreateMaquilaOrder(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing user identity"))
		return
	}

	var req CreateMaquilaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	order := models.MaquilaOrder{
		SupplierName:      req.SupplierName,
		SupplierTaxID:     req.SupplierTaxID,
		SupplierContact:   req.SupplierContact,
		SupplierPhone:     req.SupplierPhone,
		CostTotal:         req.CostTotal,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	}
	if req.OrderDate != nil {
		order.OrderDate = *req.OrderDate
	}
	for _, d := range req.Details {
		order.Details = append(order.Details, models.MaquilaDetail{
			ProductID:    d.ProductID,
			RequestedQty: d.RequestedQty,
			UnitCost:     d.UnitCost,
		})
	}

	if err := h.maquila.Create(c.Request.Context(), &order, userID); err != nil {
		middleware.RecordWorkflowOperation("maquila", "create", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("maquila", "create", true)
	c.JSON(http.StatusCreated, successResponse("Maquila order created", order))
}

func (h *MaquilaHTTPHandler) UpdateMaquilaOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}

	var req UpdateMaquilaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	order, err := h.maquila.Update(c.Request.Context(), id, models.MaquilaOrder{
		SupplierName:      req.SupplierName,
		SupplierTaxID:     req.SupplierTaxID,
		SupplierContact:   req.SupplierContact,
		SupplierPhone:     req.SupplierPhone,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Maquila order updated", order))
}

func (h *MaquilaHTTPHandler) ChangeMaquilaStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	order, err := h.maquila.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		middleware.RecordWorkflowOperation("maquila", "change_status", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("maquila", "change_status", true)
	c.JSON(http.StatusOK, successResponse("Maquila order status updated", order))
}

func (h *MaquilaHTTPHandler) UpdateReceivedQuantities(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}

	var req UpdateReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	updates := make([]maquila.DetailUpdate, 0, len(req.Details))
	for _, d := range req.Details {
		updates = append(updates, maquila.DetailUpdate{
			DetailID:    d.DetailID,
			ReceivedQty: d.ReceivedQty,
		})
	}

	order, err := h.maquila.UpdateReceivedQuantities(c.Request.Context(), id, updates)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Received quantities updated", order))
}

func (h *MaquilaHTTPHandler) ReceiveMaquilaOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}

	order, err := h.maquila.Receive(c.Request.Context(), id)
	if err != nil {
		middleware.RecordWorkflowOperation("maquila", "receive", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("maquila", "receive", true)
	c.JSON(http.StatusOK, successResponse("Maquila order received", order))
}

func (h *MaquilaHTTPHandler) MarkEnProcess(c *gin.Context) {
	h.mark(c, "start_process", h.maquila.MarkEnProcess)
}

func (h *MaquilaHTTPHandler) MarkFinalized(c *gin.Context) {
	h.mark(c, "finalize", h.maquila.MarkFinalized)
}

func (h *MaquilaHTTPHandler) MarkCancelled(c *gin.Context) {
	h.mark(c, "cancel", h.maquila.MarkCancelled)
}

func (h *MaquilaHTTPHandler) mark(c *gin.Context, operation string, fn func(context.Context, int64) (*models.MaquilaOrder, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}

	order, err := fn(c.Request.Context(), id)
	if err != nil {
		middleware.RecordWorkflowOperation("maquila", operation, false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("maquila", operation, true)
	c.JSON(http.StatusOK, successResponse("Maquila order status updated", order))
}

func (h *MaquilaHTTPHandler) DeleteMaquilaOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid maquila order ID"))
		return
	}
	if err := h.maquila.Delete(c.Request.Context(), id); err != nil {
		middleware.RecordWorkflowOperation("maquila", "delete", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("maquila", "delete", true)
	c.JSON(http.StatusOK, successResponse("Maquila order deleted", nil))
}
