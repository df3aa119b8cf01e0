// internal/interfaces/http/handlers/ledger.go
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
	"github.com/your-org/wms-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// LedgerHandler handles stock transaction endpoints
type LedgerHandler struct {
	ledgerService *ledger.Service
	config        *config.Config
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledger.NewService(db, cfg, redisClient, logger),
		config:        cfg,
	}
}

// CreateTransaction handles POST /transactions
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req ledger.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	txn, err := h.ledgerService.CreateTransaction(c.Request.Context(), &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Transaction recorded successfully",
		"data":    txn,
	})
}

// GetTransactions handles GET /transactions
func (h *LedgerHandler) GetTransactions(c *gin.Context) {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	newestFirst := c.DefaultQuery("order", "desc") != "asc"
	limit := parseIntQuery(c, "limit", 50)
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}

	txs, total, err := h.ledgerService.GetTransactions(*filter, newestFirst, limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve transactions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data":    txs,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetTransaction handles GET /transactions/:id
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	txn, err := h.ledgerService.GetTransaction(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction retrieved successfully",
		"data":    txn,
	})
}

// TransactionImmutable handles PUT/PATCH/DELETE on transactions. The ledger
// is append-only: every mutation attempt is rejected regardless of payload,
// and callers are pointed at the adjustment flow.
func (h *LedgerHandler) TransactionImmutable(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Transactions cannot be updated or deleted. Create an ADJUST_IN or ADJUST_OUT transaction to correct inventory.",
	})
}

// parseTransactionFilter builds a ledger filter from query parameters
func parseTransactionFilter(c *gin.Context) (*ledger.TransactionFilter, error) {
	filter := &ledger.TransactionFilter{
		BatchLot:        c.Query("batch_lot"),
		TransactionType: ledger.TransactionType(c.Query("type")),
	}

	if v := c.Query("warehouse_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errInvalidQuery("warehouse_id")
		}
		filter.WarehouseID = uint(id)
	}
	if v := c.Query("sku_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errInvalidQuery("sku_id")
		}
		filter.SKUID = uint(id)
	}
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, errInvalidQuery("date_from")
		}
		filter.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, errInvalidQuery("date_to")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}

	return filter, nil
}

type queryError string

func (e queryError) Error() string { return "invalid query parameter: " + string(e) }

func errInvalidQuery(param string) error { return queryError(param) }

// parseIntQuery reads an integer query parameter with a default
func parseIntQuery(c *gin.Context, name string, defaultValue int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
