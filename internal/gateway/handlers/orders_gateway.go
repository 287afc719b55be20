package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/gateway/middleware"
	"lecoq-erp/internal/services/orders"
)

type OrderHTTPHandler struct {
	orders *orders.Service
}

func NewOrderHTTPHandler(orderSvc *orders.Service) *OrderHTTPHandler {
	return &OrderHTTPHandler{orders: orderSvc}
}

type OrderDetailRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	CustomerName      string               `json:"customer_name" binding:"required"`
	CustomerTaxID     string               `json:"customer_tax_id"`
	CustomerAddress   string               `json:"customer_address"`
	CustomerPhone     string               `json:"customer_phone"`
	Total             decimal.Decimal      `json:"total"`
	OrderDate         *time.Time           `json:"order_date"`
	EstimatedDelivery *time.Time           `json:"estimated_delivery"`
	Notes             string               `json:"notes"`
	Details           []OrderDetailRequest `json:"details"`
}

type UpdateOrderRequest struct {
	CustomerName      string     `json:"customer_name" binding:"required"`
	CustomerTaxID     string     `json:"customer_tax_id"`
	CustomerAddress   string     `json:"customer_address"`
	CustomerPhone     string     `json:"customer_phone"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             string     `json:"notes"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *OrderHTTPHandler) ListOrders(c *gin.Context) {
	list, err := h.orders.FindAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
}

func (h *OrderHTTPHandler) ListOrdersByStatus(c *gin.Context) {
	list, err := h.orders.FindByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
}

func (h *OrderHTTPHandler) SearchOrdersByCustomer(c *gin.Context) {
	name := c.Query("nombre")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Missing nombre query parameter"))
		return
	}
	list, err := h.orders.SearchByCustomer(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
}

func (h *OrderHTTPHandler) ListOrdersByDateRange(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("inicio"), c.Query("fin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid date range, expected YYYY-MM-DD"))
		return
	}
	list, err := h.orders.FindByDateRange(c.Request.Context(), from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
}

func (h *OrderHTTPHandler) ListActiveOrders(c *gin.Context) {
	list, err := h.orders.FindByStatusIn(c.Request.Context(), []string{
		string(models.OrderPending),
		string(models.OrderConfirmed),
		string(models.OrderInPreparation),
		string(models.OrderShipped),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Active orders retrieved", list))
}

func (h *OrderHTTPHandler) ListMyOrders(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing user identity"))
		return
	}
	list, err := h.orders.FindByUser(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Orders retrieved", list))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	order, err := h.orders.FindByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order retrieved", order))
}

func (h *OrderHTTPHandler) GetOrderByNumber(c *gin.Context) {
	order, err := h.orders.FindByOrderNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order retrieved", order))
}

func (h *OrderHTTPHandler) GetOrderDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}
	details, err := h.orders.FindDetails(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order details retrieved", details))
}

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing user identity"))
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	order := models.Order{
		CustomerName:      req.CustomerName,
		CustomerTaxID:     req.CustomerTaxID,
		CustomerAddress:   req.CustomerAddress,
		CustomerPhone:     req.CustomerPhone,
		Total:             req.Total,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	}
	if req.OrderDate != nil {
		order.OrderDate = *req.OrderDate
	}
	for _, d := range req.Details {
		order.Details = append(order.Details, models.OrderDetail{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
		})
	}

	if err := h.orders.Create(c.Request.Context(), &order, userID); err != nil {
		middleware.RecordWorkflowOperation("order", "create", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("order", "create", true)
	c.JSON(http.StatusCreated, successResponse("Order created", order))
}

func (h *OrderHTTPHandler) UpdateOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	order, err := h.orders.Update(c.Request.Context(), id, models.Order{
		CustomerName:      req.CustomerName,
		CustomerTaxID:     req.CustomerTaxID,
		CustomerAddress:   req.CustomerAddress,
		CustomerPhone:     req.CustomerPhone,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order updated", order))
}

func (h *OrderHTTPHandler) ChangeOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	order, err := h.orders.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		middleware.RecordWorkflowOperation("order", "change_status", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("order", "change_status", true)
	c.JSON(http.StatusOK, successResponse("Order status updated", order))
}

func (h *OrderHTTPHandler) DeleteOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		middleware.RecordWorkflowOperation("order", "delete", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("order", "delete", true)
	c.JSON(http.StatusOK, successResponse("Order deleted", nil))
}
