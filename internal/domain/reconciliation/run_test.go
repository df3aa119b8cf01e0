// internal/domain/reconciliation/run_test.go
package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/audit"
	"github.com/your-org/wms-backend/internal/domain/ledger"
	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// In-memory SQLite is per-connection; a single-connection pool keeps
	// every query on the migrated schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&warehouse.Warehouse{},
		&warehouse.SKU{},
		&warehouse.CartonConfig{},
		&ledger.StockTransaction{},
		&Report{},
		&Discrepancy{},
		&audit.Entry{},
	))

	require.NoError(t, db.Create(&warehouse.Warehouse{ID: 1, Name: "London Heathrow", Code: "LHR", IsActive: true}).Error)
	require.NoError(t, db.Create(&warehouse.SKU{ID: 42, Code: "SKU-42", UnitsPerCarton: 12, IsActive: true}).Error)
	return db
}

func newRunService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	cfg := &config.Config{
		Reconciliation: config.ReconciliationConfig{
			RunLockTTL: 10 * time.Minute,
			SampleSize: 10,
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &Service{
		db:       db,
		config:   cfg,
		logger:   logger,
		notifier: NewLogNotifier(logger),
		auditor:  audit.NewRecorder(db, logger),
		now: func() time.Time {
			return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
		},
	}
}

func appendLedgerRow(t *testing.T, db *gorm.DB, id string, txType ledger.TransactionType, cartons int, date time.Time) {
	t.Helper()

	row := ledger.StockTransaction{
		TransactionID:   id,
		WarehouseID:     1,
		SKUID:           42,
		BatchLot:        "LOT-A",
		TransactionType: txType,
		TransactionDate: date,
	}
	if txType.IsInbound() {
		row.CartonsIn = cartons
	} else {
		row.CartonsOut = cartons
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestRun_SameDayPairBalancesToZero(t *testing.T) {
	// GIVEN: a RECEIVE timestamped late today and a SHIP timestamped this
	// morning, with the run landing between the two
	// THEN: the run replays the full history and reports no discrepancy
	// instead of fabricating one from a torn same-day view
	db := newTestDB(t)
	s := newRunService(t, db)

	appendLedgerRow(t, db, "LHR-SHP-20240615-0001", ledger.TransactionTypeShip, 100,
		time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC))
	appendLedgerRow(t, db, "LHR-RCV-20240615-0002", ledger.TransactionTypeReceive, 100,
		time.Date(2024, time.June, 15, 23, 0, 0, 0, time.UTC))

	report, err := s.Run(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 0, report.TotalDiscrepancies)

	var rows int64
	require.NoError(t, db.Model(&Discrepancy{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}

func TestRun_FlagsNegativeBalance(t *testing.T) {
	db := newTestDB(t)
	s := newRunService(t, db)

	appendLedgerRow(t, db, "LHR-SHP-20240601-0001", ledger.TransactionTypeShip, 150,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	report, err := s.Run(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 1, report.TotalDiscrepancies)
	assert.Equal(t, 1, report.CriticalDiscrepancies)
	assert.Equal(t, 1, report.TotalWarehouses)
	assert.Equal(t, 1, report.TotalSKUs)
	require.NotNil(t, report.CompletedAt)

	var d Discrepancy
	require.NoError(t, db.Where("report_id = ?", report.ID).First(&d).Error)
	assert.Equal(t, uint(1), d.WarehouseID)
	assert.Equal(t, uint(42), d.SKUID)
	assert.Equal(t, "LOT-A", d.BatchLot)
	assert.Equal(t, -150, d.CurrentCartons)
	assert.Equal(t, SeverityCritical, d.Severity)
	assert.Contains(t, d.Details, "LHR-SHP-20240601-0001", "the trailing sample names the offending entries")
}

func TestRun_RetiredSKUStillScans(t *testing.T) {
	// A soft-deleted SKU master must not fail the whole run; its keys keep
	// projecting and the run completes.
	db := newTestDB(t)
	s := newRunService(t, db)

	appendLedgerRow(t, db, "LHR-SHP-20240601-0001", ledger.TransactionTypeShip, 5,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, db.Delete(&warehouse.SKU{}, 42).Error)

	report, err := s.Run(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	require.Equal(t, 1, report.TotalDiscrepancies)

	var d Discrepancy
	require.NoError(t, db.Where("report_id = ?", report.ID).First(&d).Error)
	assert.Equal(t, SeverityLow, d.Severity)
	assert.Equal(t, -5, d.CurrentCartons)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	db := newTestDB(t)
	s := newRunService(t, db)

	require.NoError(t, db.Create(&Report{
		ID:         "11111111-1111-1111-1111-111111111111",
		ReportType: ReportTypeInventory,
		Status:     StatusInProgress,
		StartedAt:  time.Date(2024, time.June, 15, 11, 0, 0, 0, time.UTC),
		Summary:    "null",
	}).Error)

	_, err := s.Run(context.Background(), 7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunInProgress))
}

func TestRun_RepeatedRunsAgree(t *testing.T) {
	// Projection is a pure fold over an append-only ledger: two runs against
	// the same history must flag the same keys with the same balances.
	db := newTestDB(t)
	s := newRunService(t, db)

	appendLedgerRow(t, db, "LHR-RCV-20240601-0001", ledger.TransactionTypeReceive, 10,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	appendLedgerRow(t, db, "LHR-SHP-20240602-0002", ledger.TransactionTypeShip, 40,
		time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))

	first, err := s.Run(context.Background(), 7)
	require.NoError(t, err)
	second, err := s.Run(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, first.TotalDiscrepancies, second.TotalDiscrepancies)

	var a, b Discrepancy
	require.NoError(t, db.Where("report_id = ?", first.ID).First(&a).Error)
	require.NoError(t, db.Where("report_id = ?", second.ID).First(&b).Error)
	assert.Equal(t, a.CurrentCartons, b.CurrentCartons)
	assert.Equal(t, a.Severity, b.Severity)
	assert.Equal(t, a.BatchLot, b.BatchLot)
}
