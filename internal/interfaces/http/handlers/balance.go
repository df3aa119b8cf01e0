// internal/interfaces/http/handlers/balance.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/ledger"
	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// BalanceHandler handles derived inventory balance endpoints. Balances are
// always projected from the transaction ledger on demand; there is no stored
// counter behind these endpoints.
type BalanceHandler struct {
	projector     *ledger.Projector
	ledgerService *ledger.Service
	config        *config.Config
}

// NewBalanceHandler creates a new balance handler
func NewBalanceHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) *BalanceHandler {
	return &BalanceHandler{
		projector:     ledger.NewProjector(db, warehouse.NewService(db, cfg)),
		ledgerService: ledger.NewService(db, cfg, redisClient, logger),
		config:        cfg,
	}
}

// GetBalances handles GET /inventory/balances
func (h *BalanceHandler) GetBalances(c *gin.Context) {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	cutoff, err := parseCutoff(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	includeZero := c.Query("include_zero") == "true"

	balances, err := h.projector.ProjectAll(*filter, cutoff, includeZero)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to project balances",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Balances projected successfully",
		"data":    balances,
		"cutoff":  cutoff,
	})
}

// GetBalance handles GET /inventory/balances/:warehouseId/:skuId
func (h *BalanceHandler) GetBalance(c *gin.Context) {
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

	batchLot := c.DefaultQuery("batch_lot", ledger.DefaultBatchLot)

	cutoff, err := parseCutoff(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	balance, err := h.projector.Project(uint(warehouseID), uint(skuID), batchLot, cutoff)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Balance projected successfully",
		"data":    balance,
		"cutoff":  cutoff,
	})
}

// GetLedger handles GET /inventory/ledger — the per-key history with running
// balances.
func (h *BalanceHandler) GetLedger(c *gin.Context) {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	if filter.WarehouseID == 0 || filter.SKUID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "warehouse_id and sku_id are required",
		})
		return
	}

	batchLot := filter.BatchLot
	if batchLot == "" {
		batchLot = ledger.DefaultBatchLot
	}

	entries, err := h.ledgerService.GetLedger(filter.WarehouseID, filter.SKUID, batchLot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve ledger",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ledger retrieved successfully",
		"data":    entries,
	})
}

// parseCutoff reads the optional cutoff query parameter, defaulting to now.
// A bare date is treated as end-of-day so the whole business day is included.
func parseCutoff(c *gin.Context) (time.Time, error) {
	v := c.Query("cutoff")
	if v == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidQuery("cutoff")
}
