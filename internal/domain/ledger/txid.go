// internal/domain/ledger/txid.go
package ledger

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FormatTransactionID builds the human-readable ledger identifier:
// warehouse code, movement abbreviation, business date, and a
// per-warehouse-per-day sequence number, e.g. "LHR-RCV-20240115-0003".
func FormatTransactionID(warehouseCode string, txType TransactionType, date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%s-%04d", warehouseCode, txType.Abbrev(), date.Format("20060102"), seq)
}

// nextTransactionID allocates the next identifier for a warehouse and business
// date. The sequence is the count of existing same-day transactions plus one;
// callers run this inside the write transaction while holding the stock lock,
// and the unique index on transaction_id backstops the rare cross-key race.
func nextTransactionID(tx *gorm.DB, warehouseID uint, warehouseCode string, txType TransactionType, date time.Time) (string, error) {
	dayStart := startOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := tx.Model(&StockTransaction{}).
		Where("warehouse_id = ?", warehouseID).
		Where("transaction_date >= ? AND transaction_date < ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("failed to count same-day transactions: %w", err)
	}

	return FormatTransactionID(warehouseCode, txType, date, int(count)+1), nil
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay returns the last instant of t's day, the granularity at which the
// future-date check operates.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
