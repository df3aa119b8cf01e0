// internal/domain/ledger/service_db_test.go
package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/audit"
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

	// Every connection to an in-memory SQLite database gets its own database;
	// pin the pool to one connection so all queries see the same schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&warehouse.Warehouse{},
		&warehouse.SKU{},
		&warehouse.CartonConfig{},
		&StockTransaction{},
		&audit.Entry{},
	))
	return db
}

func seedMasterData(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&warehouse.Warehouse{ID: 1, Name: "London Heathrow", Code: "LHR", IsActive: true}).Error)
	require.NoError(t, db.Create(&warehouse.SKU{ID: 42, Code: "SKU-42", UnitsPerCarton: 12, IsActive: true}).Error)
	require.NoError(t, db.Create(&warehouse.CartonConfig{
		WarehouseID:              1,
		SKUID:                    42,
		StorageCartonsPerPallet:  48,
		ShippingCartonsPerPallet: 40,
		EffectiveDate:            day(2020, time.January, 1),
	}).Error)
}

// recordingLocker captures acquired keys; err, when set, stands in for a
// lock wait that timed out.
type recordingLocker struct {
	keys []int64
	err  error
}

func (l *recordingLocker) Acquire(_ *gorm.DB, key int64) error {
	if l.err != nil {
		return l.err
	}
	l.keys = append(l.keys, key)
	return nil
}

func newDBService(t *testing.T, db *gorm.DB) (*Service, *recordingLocker) {
	t.Helper()

	cfg := &config.Config{
		Ledger: config.LedgerConfig{
			LockTimeout:     5 * time.Second,
			DuplicateWindow: 60 * time.Second,
			MaxCartons:      99999,
			MaxPallets:      9999,
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	locker := &recordingLocker{}

	svc := &Service{
		db:      db,
		config:  cfg,
		logger:  logger,
		auditor: audit.NewRecorder(db, logger),
		locker:  locker,
		now: func() time.Time {
			return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
		},
	}
	return svc, locker
}

func countTransactions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&StockTransaction{}).Count(&n).Error)
	return n
}

func TestCreateTransaction_AppendsAndProjects(t *testing.T) {
	// GIVEN: a seeded warehouse, SKU master and packing configuration
	// WHEN: a RECEIVE is written and the key is projected back
	// THEN: the record carries the captured snapshot and the balance agrees,
	// with every query running against the migrated schema's real columns
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)

	txn, err := s.CreateTransaction(context.Background(), validRequest(), 7)
	require.NoError(t, err)

	assert.Equal(t, "LHR-RCV-20240614-0001", txn.TransactionID)
	assert.Equal(t, 100, txn.CartonsIn)
	assert.Equal(t, 0, txn.CartonsOut)
	require.NotNil(t, txn.UnitsPerCarton)
	assert.Equal(t, 12, *txn.UnitsPerCarton)
	require.NotNil(t, txn.StorageCartonsPerPallet)
	assert.Equal(t, 48, *txn.StorageCartonsPerPallet)
	assert.Equal(t, 3, txn.StoragePalletsIn, "100 cartons at 48/pallet occupy 3 pallets")

	projector := NewProjector(db, warehouse.NewService(db, s.config))
	balance, err := projector.Project(1, 42, "LOT-2024-001", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, "SKU-42", balance.SKUCode)
	assert.Equal(t, 100, balance.CurrentCartons)
	assert.Equal(t, 1200, balance.CurrentUnits)
	assert.Equal(t, 3, balance.CurrentPallets)
	assert.Equal(t, 1, balance.TransactionCount)
}

func TestCreateTransaction_InsufficientInventoryRejected(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	ctx := context.Background()

	receive := validRequest()
	receive.Cartons = 60
	_, err := s.CreateTransaction(ctx, receive, 7)
	require.NoError(t, err)

	ship := validRequest()
	ship.TransactionType = TransactionTypeShip
	ship.Cartons = 100
	_, err = s.CreateTransaction(ctx, ship, 7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientInventory))
	var insErr *InsufficientInventoryError
	require.True(t, errors.As(err, &insErr))
	assert.Equal(t, 60, insErr.Available)
	assert.Equal(t, 100, insErr.Requested)

	// The rejected movement must leave no trace in the ledger.
	assert.Equal(t, int64(1), countTransactions(t, db))
}

func TestCreateTransaction_SequentialShipsDrainBalance(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	ctx := context.Background()

	receive := validRequest()
	receive.Cartons = 60
	_, err := s.CreateTransaction(ctx, receive, 7)
	require.NoError(t, err)

	ship := func(cartons int) (*StockTransaction, error) {
		req := validRequest()
		req.TransactionType = TransactionTypeShip
		req.Cartons = cartons
		return s.CreateTransaction(ctx, req, 7)
	}

	first, err := ship(40)
	require.NoError(t, err)
	assert.Equal(t, "LHR-SHP-20240614-0002", first.TransactionID)
	assert.Equal(t, 1, first.ShippingPalletsOut, "40 cartons at 40/pallet")

	_, err = ship(40)
	require.Error(t, err)
	var insErr *InsufficientInventoryError
	require.True(t, errors.As(err, &insErr))
	assert.Equal(t, 20, insErr.Available, "the availability check sees the prior ship")

	last, err := ship(20)
	require.NoError(t, err)
	assert.Equal(t, "LHR-SHP-20240614-0003", last.TransactionID, "the failed attempt consumed no sequence number")

	projector := NewProjector(db, warehouse.NewService(db, s.config))
	balance, err := projector.Project(1, 42, "LOT-2024-001", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, balance.CurrentCartons)
}

func TestCreateTransaction_BackdatedRejected(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	ctx := context.Background()

	_, err := s.CreateTransaction(ctx, validRequest(), 7)
	require.NoError(t, err)

	backdated := validRequest()
	backdated.TransactionDate = day(2024, time.June, 10)
	_, err = s.CreateTransaction(ctx, backdated, 7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackdatedTransaction))
	var bdErr *BackdatedTransactionError
	require.True(t, errors.As(err, &bdErr))
	assert.Equal(t, day(2024, time.June, 14), startOfDay(bdErr.Latest))
	assert.Equal(t, int64(1), countTransactions(t, db))

	// Same-day entries remain legal: the ban operates at day granularity.
	sameDay := validRequest()
	sameDay.Cartons = 5
	_, err = s.CreateTransaction(ctx, sameDay, 7)
	require.NoError(t, err)
}

func TestCreateTransaction_AcquiresPerKeyAdvisoryLock(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, locker := newDBService(t, db)

	_, err := s.CreateTransaction(context.Background(), validRequest(), 7)
	require.NoError(t, err)

	require.Len(t, locker.keys, 1)
	assert.Equal(t, StockLockKey(1, 42, "LOT-2024-001"), locker.keys[0])
}

func TestCreateTransaction_LockTimeoutLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, locker := newDBService(t, db)
	locker.err = ErrLockTimeout

	_, err := s.CreateTransaction(context.Background(), validRequest(), 7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.Equal(t, int64(0), countTransactions(t, db))
}

func TestCreateTransaction_DuplicateWindowRejectsResubmission(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	mr := miniredis.RunT(t)
	s.redisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	req := validRequest()
	req.ReferenceID = "PO-1234"
	_, err := s.CreateTransaction(ctx, req, 7)
	require.NoError(t, err)

	resubmit := validRequest()
	resubmit.ReferenceID = "PO-1234"
	_, err = s.CreateTransaction(ctx, resubmit, 7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, int64(1), countTransactions(t, db))
}

func TestCreateTransaction_FailedWriteReleasesDuplicateGuard(t *testing.T) {
	// GIVEN: a submission that armed the guard and then failed the
	// availability check
	// THEN: a corrected resubmission inside the window goes through instead
	// of bouncing off the stale guard key
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	mr := miniredis.RunT(t)
	s.redisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	receive := validRequest()
	receive.Cartons = 50
	_, err := s.CreateTransaction(ctx, receive, 7)
	require.NoError(t, err)

	ship := validRequest()
	ship.TransactionType = TransactionTypeShip
	ship.Cartons = 80
	ship.ReferenceID = "SO-9"
	_, err = s.CreateTransaction(ctx, ship, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientInventory))

	corrected := validRequest()
	corrected.TransactionType = TransactionTypeShip
	corrected.Cartons = 40
	corrected.ReferenceID = "SO-9"
	txn, err := s.CreateTransaction(ctx, corrected, 7)

	require.NoError(t, err)
	assert.Equal(t, 40, txn.CartonsOut)
}

func TestLatestForKey(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	ctx := context.Background()

	older := validRequest()
	older.TransactionDate = day(2024, time.June, 13)
	_, err := s.CreateTransaction(ctx, older, 7)
	require.NoError(t, err)

	newer := validRequest()
	_, err = s.CreateTransaction(ctx, newer, 7)
	require.NoError(t, err)

	latest, err := s.LatestForKey(1, 42, "LOT-2024-001")
	require.NoError(t, err)
	assert.Equal(t, "LHR-RCV-20240614-0001", latest.TransactionID)

	_, err = s.LatestForKey(1, 42, "LOT-NEVER-SEEN")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProject_CutoffBoundsReplay(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)
	ctx := context.Background()

	receive := validRequest()
	receive.TransactionDate = day(2024, time.June, 13)
	_, err := s.CreateTransaction(ctx, receive, 7)
	require.NoError(t, err)

	ship := validRequest()
	ship.TransactionType = TransactionTypeShip
	ship.Cartons = 30
	_, err = s.CreateTransaction(ctx, ship, 7)
	require.NoError(t, err)

	projector := NewProjector(db, warehouse.NewService(db, s.config))

	asOf, err := projector.Project(1, 42, "LOT-2024-001", endOfDay(day(2024, time.June, 13)))
	require.NoError(t, err)
	assert.Equal(t, 100, asOf.CurrentCartons, "the June 14 ship lies beyond the cutoff")

	full, err := projector.Project(1, 42, "LOT-2024-001", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 70, full.CurrentCartons)
	assert.Equal(t, 2, full.TransactionCount)
}

func TestProject_RetiredSKUKeepsCapturedUnits(t *testing.T) {
	// A soft-deleted SKU master must not break projection: its history still
	// replays with the units captured at write time.
	db := newTestDB(t)
	seedMasterData(t, db)
	s, _ := newDBService(t, db)

	_, err := s.CreateTransaction(context.Background(), validRequest(), 7)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&warehouse.SKU{}, 42).Error)

	projector := NewProjector(db, warehouse.NewService(db, s.config))
	balance, err := projector.Project(1, 42, "LOT-2024-001", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, 100, balance.CurrentCartons)
	assert.Equal(t, 1200, balance.CurrentUnits)
	assert.Equal(t, "SKU-42", balance.SKUCode)
}
