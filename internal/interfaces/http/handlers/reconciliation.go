// internal/interfaces/http/handlers/reconciliation.go
package handlers

import (
	"net/http"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/reconciliation"
	"github.com/your-org/wms-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// ReconciliationHandler handles reconciliation run endpoints
type ReconciliationHandler struct {
	service *reconciliation.Service
	config  *config.Config
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(db *gorm.DB, cfg *config.Config, locker *redislock.Client, logger *logrus.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: reconciliation.NewService(db, cfg, locker, logger),
		config:  cfg,
	}
}

// Run handles POST /reconciliation/run
func (h *ReconciliationHandler) Run(c *gin.Context) {
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	report, err := h.service.Run(c.Request.Context(), actorID)
	if err != nil {
		// A failed scan still produced a report row; return it alongside the
		// error status so the operator can inspect the captured message.
		if report != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Reconciliation run failed",
				"data":  report,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation run completed",
		"data":    report,
	})
}

// GetReports handles GET /reconciliation/reports
func (h *ReconciliationHandler) GetReports(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}

	reports, total, err := h.service.GetReports(limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve reports",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reports retrieved successfully",
		"data":    reports,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetReport handles GET /reconciliation/reports/:id
func (h *ReconciliationHandler) GetReport(c *gin.Context) {
	report, err := h.service.GetReport(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Report retrieved successfully",
		"data":    report,
	})
}
