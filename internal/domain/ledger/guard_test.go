// internal/domain/ledger/guard_test.go
package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestStockLockKey_Deterministic(t *testing.T) {
	// The key must be stable across processes: any two writers hashing the
	// same stock tuple have to land on the same advisory lock.
	first := StockLockKey(1, 42, "LOT-2024-001")
	second := StockLockKey(1, 42, "LOT-2024-001")

	assert.Equal(t, first, second)
}

func TestStockLockKey_NonNegative(t *testing.T) {
	keys := []int64{
		StockLockKey(1, 1, DefaultBatchLot),
		StockLockKey(999999, 999999, "LOT-XYZ"),
		StockLockKey(0, 0, ""),
		StockLockKey(7, 13, "batch/with:odd*chars"),
	}

	for _, key := range keys {
		assert.GreaterOrEqual(t, key, int64(0))
	}
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", unique)), "wrapped errors must still match")
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "55P03"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(nil))
}

func TestStockLockKey_DistinguishesTupleFields(t *testing.T) {
	base := StockLockKey(1, 42, "LOT-A")

	assert.NotEqual(t, base, StockLockKey(2, 42, "LOT-A"), "warehouse must contribute to the key")
	assert.NotEqual(t, base, StockLockKey(1, 43, "LOT-A"), "SKU must contribute to the key")
	assert.NotEqual(t, base, StockLockKey(1, 42, "LOT-B"), "batch lot must contribute to the key")
}
