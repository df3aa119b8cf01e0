// internal/domain/ledger/guard.go
package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATEs the writer recognizes: lock_not_available, raised when
// lock_timeout expires while waiting on the advisory lock, and
// unique_violation, raised when two writers mint the same transaction ID.
const (
	lockSQLStateTimeout     = "55P03"
	sqlStateUniqueViolation = "23505"
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

// StockLockKey derives the deterministic 63-bit advisory-lock key for a stock
// position. The tuple is hashed so arbitrary batch labels map onto the integer
// space Postgres advisory locks require; the sign bit is cleared to keep the
// key non-negative.
func StockLockKey(warehouseID, skuID uint, batchLot string) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("stock:%d:%d:%s", warehouseID, skuID, batchLot)))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

// Locker serializes mutations to a single stock key. The default
// implementation uses Postgres transaction-scoped advisory locks so mutual
// exclusion holds across processes; tests substitute an in-process fake.
type Locker interface {
	// Acquire takes the lock inside tx. It is released automatically when the
	// enclosing transaction commits or rolls back.
	Acquire(tx *gorm.DB, key int64) error
}

// AdvisoryLocker acquires pg_advisory_xact_lock with a bounded wait.
type AdvisoryLocker struct {
	Timeout time.Duration
}

// Acquire sets a local lock_timeout and takes the transaction-scoped advisory
// lock. A timeout surfaces as ErrLockTimeout so callers can retry.
func (l *AdvisoryLocker) Acquire(tx *gorm.DB, key int64) error {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// SET LOCAL scopes the timeout to the enclosing transaction. The value
	// cannot be bound as a parameter in Postgres, so it is formatted in; it is
	// always a server-side integer, never user input.
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error; err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockSQLStateTimeout {
			return ErrLockTimeout
		}
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	return nil
}
