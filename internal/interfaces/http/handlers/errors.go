// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/wms-backend/internal/domain/ledger"
	"github.com/your-org/wms-backend/internal/domain/reconciliation"
)

// respondError maps domain errors onto HTTP statuses. Lock timeouts and
// duplicate submissions are conflicts the client may retry or treat as
// already applied; validation failures carry enough detail to self-correct.
func respondError(c *gin.Context, err error) {
	var insufficientErr *ledger.InsufficientInventoryError
	if errors.As(err, &insufficientErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficientErr.Error(),
			"available": insufficientErr.Available,
			"requested": insufficientErr.Requested,
		})
		return
	}

	var backdatedErr *ledger.BackdatedTransactionError
	if errors.As(err, &backdatedErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       backdatedErr.Error(),
			"latest_date": backdatedErr.Latest.Format("2006-01-02"),
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, ledger.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Duplicate transaction submitted within the anti-double-submit window",
		})
	case errors.Is(err, ledger.ErrLockTimeout), errors.Is(err, ledger.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Concurrent modification in progress, please retry",
			"retryable": true,
		})
	case errors.Is(err, reconciliation.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
