package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/gateway/middleware"
	"lecoq-erp/internal/services/distribution"
)

type DistributionHTTPHandler struct {
	distribution *distribution.Service
}

func NewDistributionHTTPHandler(distributionSvc *distribution.Service) *DistributionHTTPHandler {
	return &DistributionHTTPHandler{distribution: distributionSvc}
}

type CreateDeliveryRequest struct {
	OrderID         int64      `json:"order_id" binding:"required"`
	DeliveryAddress string     `json:"delivery_address" binding:"required"`
	DriverName      string     `json:"driver_name" binding:"required"`
	DriverPhone     string     `json:"driver_phone"`
	VehiclePlate    string     `json:"vehicle_plate" binding:"required"`
	VehicleModel    string     `json:"vehicle_model"`
	DepartureDate   *time.Time `json:"departure_date"`
	Notes           string     `json:"notes"`
}

type UpdateDeliveryRequest struct {
	DeliveryAddress string     `json:"delivery_address" binding:"required"`
	DriverName      string     `json:"driver_name" binding:"required"`
	DriverPhone     string     `json:"driver_phone"`
	VehiclePlate    string     `json:"vehicle_plate" binding:"required"`
	VehicleModel    string     `json:"vehicle_model"`
	DepartureDate   *time.Time `json:"departure_date"`
	Notes           string     `json:"notes"`
}

func (h *DistributionHTTPHandler) ListDeliveries(c *gin.Context) {
	list, err := h.distribution.FindAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Deliveries retrieved", list))
}

func (h *DistributionHTTPHandler) ListDeliveriesByStatus(c *gin.Context) {
	list, err := h.distribution.FindByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Deliveries retrieved", list))
}

func (h *DistributionHTTPHandler) SearchDeliveriesByDriver(c *gin.Context) {
	name := c.Query("nombre")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Missing nombre query parameter"))
		return
	}
	list, err := h.distribution.SearchByDriver(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Deliveries retrieved", list))
}

func (h *DistributionHTTPHandler) ListDeliveriesByPlate(c *gin.Context) {
	list, err := h.distribution.FindByVehiclePlate(c.Request.Context(), c.Param("plate"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Deliveries retrieved", list))
}

func (h *DistributionHTTPHandler) ListDeliveriesByDateRange(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("inicio"), c.Query("fin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid date range, expected YYYY-MM-DD"))
		return
	}
	list, err := h.distribution.FindByDateRange(c.Request.Context(), from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Deliveries retrieved", list))
}

func (h *DistributionHTTPHandler) ListActiveDeliveries(c *gin.Context) {
	list, err := h.distribution.FindByStatusIn(c.Request.Context(), []string{
		string(models.DeliveryScheduled),
		string(models.DeliveryInTransit),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Active deliveries retrieved", list))
}

func (h *DistributionHTTPHandler) GetDelivery(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}

	delivery, err := h.distribution.FindByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Delivery retrieved", delivery))
}

func (h *DistributionHTTPHandler) GetDeliveryByOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	delivery, err := h.distribution.FindByOrder(c.Request.Context(), orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Delivery retrieved", delivery))
}

func (h *DistributionHTTPHandler) CreateDelivery(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing user identity"))
		return
	}

	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	delivery := models.Delivery{
		DeliveryAddress: req.DeliveryAddress,
		DriverName:      req.DriverName,
		DriverPhone:     req.DriverPhone,
		VehiclePlate:    req.VehiclePlate,
		VehicleModel:    req.VehicleModel,
		Notes:           req.Notes,
	}
	if req.DepartureDate != nil {
		delivery.DepartureDate = *req.DepartureDate
	}

	if err := h.distribution.Create(c.Request.Context(), &delivery, req.OrderID, userID); err != nil {
		middleware.RecordWorkflowOperation("delivery", "create", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("delivery", "create", true)
	c.JSON(http.StatusCreated, successResponse("Delivery created", delivery))
}

func (h *DistributionHTTPHandler) UpdateDelivery(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}

	var req UpdateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	updated := models.Delivery{
		DeliveryAddress: req.DeliveryAddress,
		DriverName:      req.DriverName,
		DriverPhone:     req.DriverPhone,
		VehiclePlate:    req.VehiclePlate,
		VehicleModel:    req.VehicleModel,
		Notes:           req.Notes,
	}
	if req.DepartureDate != nil {
		updated.DepartureDate = *req.DepartureDate
	}

	delivery, err := h.distribution.Update(c.Request.Context(), id, updated)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Delivery updated", delivery))
}

func (h *DistributionHTTPHandler) ChangeDeliveryStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	delivery, err := h.distribution.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		middleware.RecordWorkflowOperation("delivery", "change_status", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("delivery", "change_status", true)
	c.JSON(http.StatusOK, successResponse("Delivery status updated", delivery))
}

func (h *DistributionHTTPHandler) MarkDelivered(c *gin.Context) {
	h.mark(c, "deliver", h.distribution.MarkDelivered)
}

func (h *DistributionHTTPHandler) MarkInTransit(c *gin.Context) {
	h.mark(c, "in_transit", h.distribution.MarkInTransit)
}

func (h *DistributionHTTPHandler) MarkFailed(c *gin.Context) {
	h.mark(c, "fail", h.distribution.MarkFailed)
}

func (h *DistributionHTTPHandler) mark(c *gin.Context, operation string, fn func(context.Context, int64) (*models.Delivery, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}

	delivery, err := fn(c.Request.Context(), id)
	if err != nil {
		middleware.RecordWorkflowOperation("delivery", operation, false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("delivery", operation, true)
	c.JSON(http.StatusOK, successResponse("Delivery status updated", delivery))
}

func (h *DistributionHTTPHandler) DeleteDelivery(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}
	if err := h.distribution.Delete(c.Request.Context(), id); err != nil {
		middleware.RecordWorkflowOperation("delivery", "delete", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("delivery", "delete", true)
	c.JSON(http.StatusOK, successResponse("Delivery deleted", nil))
}
