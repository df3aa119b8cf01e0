// internal/interfaces/http/handlers/errors_test.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/wms-backend/internal/domain/ledger"
	"github.com/your-org/wms-backend/internal/domain/reconciliation"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("bad: %w", ledger.ErrValidation), http.StatusBadRequest},
		{"not found", &ledger.NotFoundError{Entity: "SKU", ID: 9}, http.StatusNotFound},
		{"duplicate", ledger.ErrDuplicate, http.StatusConflict},
		{"lock timeout", ledger.ErrLockTimeout, http.StatusConflict},
		{"id conflict", fmt.Errorf("taken: %w", ledger.ErrConflict), http.StatusConflict},
		{"run in progress", reconciliation.ErrRunInProgress, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := respond(tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRespondError_RetryableConflicts(t *testing.T) {
	// Lock timeouts and sequence-number collisions are transient: both must
	// tell the client the same submission can simply be retried.
	for _, err := range []error{ledger.ErrLockTimeout, ledger.ErrConflict} {
		w := respond(err)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), `"retryable":true`)
	}
}

func TestRespondError_InsufficientInventoryCarriesFigures(t *testing.T) {
	w := respond(&ledger.InsufficientInventoryError{Available: 5, Requested: 10, BatchLot: "LOT-1"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"available":5`)
	assert.Contains(t, w.Body.String(), `"requested":10`)
}

func TestTransactionImmutable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &LedgerHandler{}

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(method, "/transactions/LHR-RCV-20240614-0001", nil)

		h.TransactionImmutable(c)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Contains(t, w.Body.String(), "ADJUST_IN", "the response points at the adjustment flow")
	}
}
