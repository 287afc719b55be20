package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/gateway/middleware"
	"lecoq-erp/internal/services/inventory"
)

type InventoryHTTPHandler struct {
	inventory *inventory.Service
}

func NewInventoryHTTPHandler(inventorySvc *inventory.Service) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{inventory: inventorySvc}
}

type ProductRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Presentation string          `json:"presentation"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	Stock        int             `json:"stock"`
	MinimumStock int             `json:"minimum_stock"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *InventoryHTTPHandler) ListProducts(c *gin.Context) {
	var (
		list []models.Product
		err  error
	)
	if c.Query("activos") == "true" {
		list, err = h.inventory.ListActiveProducts(c.Request.Context())
	} else {
		list, err = h.inventory.ListProducts(c.Request.Context())
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Products retrieved", list))
}

func (h *InventoryHTTPHandler) SearchProducts(c *gin.Context) {
	name := c.Query("nombre")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Missing nombre query parameter"))
		return
	}
	list, err := h.inventory.SearchProductsByName(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Products retrieved", list))
}

func (h *InventoryHTTPHandler) ListLowStock(c *gin.Context) {
	list, err := h.inventory.ListLowStock(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Low stock products retrieved", list))
}

func (h *InventoryHTTPHandler) ListInStock(c *gin.Context) {
	list, err := h.inventory.ListInStock(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Products in stock retrieved", list))
}

func (h *InventoryHTTPHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	product, err := h.inventory.GetProduct(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product retrieved", product))
}

func (h *InventoryHTTPHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	product := models.Product{
		Name:         req.Name,
		Description:  req.Description,
		Presentation: req.Presentation,
		Price:        req.Price,
		Stock:        req.Stock,
		MinimumStock: req.MinimumStock,
		IsActive:     true,
	}
	if err := h.inventory.CreateProduct(c.Request.Context(), &product); err != nil {
		middleware.RecordWorkflowOperation("product", "create", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("product", "create", true)
	c.JSON(http.StatusCreated, successResponse("Product created", product))
}

func (h *InventoryHTTPHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	product, err := h.inventory.UpdateProduct(c.Request.Context(), id, models.Product{
		Name:         req.Name,
		Description:  req.Description,
		Presentation: req.Presentation,
		Price:        req.Price,
		Stock:        req.Stock,
		MinimumStock: req.MinimumStock,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product updated", product))
}

func (h *InventoryHTTPHandler) AdjustStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	product, err := h.inventory.AdjustStockByID(c.Request.Context(), id, req.Delta)
	if err != nil {
		middleware.RecordWorkflowOperation("product", "adjust_stock", false)
		abortWithError(c, err)
		return
	}
	middleware.RecordWorkflowOperation("product", "adjust_stock", true)
	c.JSON(http.StatusOK, successResponse("Stock adjusted", product))
}

func (h *InventoryHTTPHandler) ActivateProduct(c *gin.Context)   { h.setActive(c, true) }
func (h *InventoryHTTPHandler) DeactivateProduct(c *gin.Context) { h.setActive(c, false) }

func (h *InventoryHTTPHandler) setActive(c *gin.Context, active bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}
	if err := h.inventory.SetProductActive(c.Request.Context(), id, active); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product updated", nil))
}

func (h *InventoryHTTPHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}
	if err := h.inventory.DeleteProduct(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product deleted", nil))
}
