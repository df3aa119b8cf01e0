// internal/interfaces/http/handlers/warehouse.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// WarehouseHandler handles warehouse and SKU master data endpoints
type WarehouseHandler struct {
	warehouseService *warehouse.Service
	config           *config.Config
}

// NewWarehouseHandler creates a new warehouse handler
func NewWarehouseHandler(db *gorm.DB, cfg *config.Config) *WarehouseHandler {
	return &WarehouseHandler{
		warehouseService: warehouse.NewService(db, cfg),
		config:           cfg,
	}
}

// CreateWarehouse handles POST /admin/warehouses
func (h *WarehouseHandler) CreateWarehouse(c *gin.Context) {
	var req warehouse.CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	wh, err := h.warehouseService.CreateWarehouse(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Warehouse created successfully",
		"data":    wh,
	})
}

// GetWarehouses handles GET /warehouses
func (h *WarehouseHandler) GetWarehouses(c *gin.Context) {
	warehouses, err := h.warehouseService.GetWarehouses()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve warehouses",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Warehouses retrieved successfully",
		"data":    warehouses,
	})
}

// CreateSKU handles POST /admin/skus
func (h *WarehouseHandler) CreateSKU(c *gin.Context) {
	var req warehouse.CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sku, err := h.warehouseService.CreateSKU(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "SKU created successfully",
		"data":    sku,
	})
}

// GetSKUs handles GET /skus
func (h *WarehouseHandler) GetSKUs(c *gin.Context) {
	skus, err := h.warehouseService.GetSKUs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve SKUs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "SKUs retrieved successfully",
		"data":    skus,
	})
}

// CreateCartonConfig handles POST /admin/carton-configs
func (h *WarehouseHandler) CreateCartonConfig(c *gin.Context) {
	var req warehouse.CreateCartonConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cfg, err := h.warehouseService.CreateCartonConfig(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Carton configuration created successfully",
		"data":    cfg,
	})
}

// GetCartonConfigs handles GET /admin/carton-configs/:warehouseId/:skuId
func (h *WarehouseHandler) GetCartonConfigs(c *gin.Context) {
	warehouseID, err := strconv.ParseUint(c.Param("warehouseId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid warehouse ID",
		})
		return
	}

	skuID, err := strconv.ParseUint(c.Param("skuId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid SKU ID",
		})
		return
	}

	configs, err := h.warehouseService.GetCartonConfigs(uint(warehouseID), uint(skuID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve carton configs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Carton configurations retrieved successfully",
		"data":    configs,
	})
}
