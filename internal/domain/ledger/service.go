// internal/domain/ledger/service.go
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/audit"
	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// Service is the transaction writer and the only component that appends to
// the ledger. Every write runs inside one database transaction that also
// holds the per-key advisory lock, so no two writers can interleave their
// read-balance/decide/append windows for the same stock key.
type Service struct {
	db          *gorm.DB
	config      *config.Config
	redisClient *redis.Client
	logger      *logrus.Logger
	auditor     *audit.Recorder
	locker      Locker
	now         func() time.Time
}

// NewService creates a new ledger service
func NewService(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
		auditor:     audit.NewRecorder(db, logger),
		locker:      &AdvisoryLocker{Timeout: cfg.Ledger.LockTimeout},
		now:         time.Now,
	}
}

// CreateTransactionRequest represents a proposed stock movement
type CreateTransactionRequest struct {
	WarehouseID     uint            `json:"warehouse_id" binding:"required"`
	SKUID           uint            `json:"sku_id" binding:"required"`
	BatchLot        string          `json:"batch_lot"`
	TransactionType TransactionType `json:"transaction_type" binding:"required,txntype"`
	Cartons         int             `json:"cartons" binding:"required,min=1"`
	// Pallets is an optional caller override; the implied count is always
	// computed from the ratio and a variance note recorded when they differ.
	Pallets         *int            `json:"pallets,omitempty"`
	TransactionDate time.Time       `json:"transaction_date" binding:"required"`
	PickupDate      *time.Time      `json:"pickup_date,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	Attachments     json.RawMessage `json:"attachments,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// normalizedBatchLot returns the batch label with the sentinel applied.
func (r *CreateTransactionRequest) normalizedBatchLot() string {
	batch := strings.TrimSpace(r.BatchLot)
	if batch == "" {
		return DefaultBatchLot
	}
	return batch
}

// validate checks request shape against the configured bounds.
func (s *Service) validate(req *CreateTransactionRequest) error {
	if !req.TransactionType.IsValid() {
		return newValidationError("transaction_type", "unknown transaction type %q", req.TransactionType)
	}
	if req.Cartons <= 0 {
		return newValidationError("cartons", "must be a positive integer")
	}
	if req.Cartons > s.config.Ledger.MaxCartons {
		return newValidationError("cartons", "must not exceed %d", s.config.Ledger.MaxCartons)
	}
	if req.Pallets != nil {
		if *req.Pallets < 0 {
			return newValidationError("pallets", "must not be negative")
		}
		if *req.Pallets > s.config.Ledger.MaxPallets {
			return newValidationError("pallets", "must not exceed %d", s.config.Ledger.MaxPallets)
		}
	}
	if req.TransactionDate.IsZero() {
		return newValidationError("transaction_date", "is required")
	}
	if req.TransactionDate.After(endOfDay(s.now())) {
		return newValidationError("transaction_date", "must not be in the future")
	}
	return nil
}

// duplicateGuardKey identifies a submission for the anti-double-submit window.
func duplicateGuardKey(req *CreateTransactionRequest) string {
	ref := req.ReferenceID
	if ref == "" {
		ref = fmt.Sprintf("%d:%s:%d", req.SKUID, req.normalizedBatchLot(), req.Cartons)
	}
	return fmt.Sprintf("txn_guard:%d:%s:%s", req.WarehouseID, req.TransactionType, ref)
}

// checkDuplicate rejects near-identical submissions inside the configured
// window. This is a conservative anti-double-submit guard, not a general
// idempotency mechanism; a Redis outage fails open.
func (s *Service) checkDuplicate(ctx context.Context, req *CreateTransactionRequest) error {
	if s.redisClient == nil {
		return nil
	}

	ok, err := s.redisClient.SetNX(ctx, duplicateGuardKey(req), s.now().Unix(), s.config.Ledger.DuplicateWindow).Result()
	if err != nil {
		s.logger.WithError(err).Warn("duplicate guard unavailable, allowing write")
		return nil
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// clearDuplicateGuard disarms the anti-double-submit key for a submission
// whose write did not go through.
func (s *Service) clearDuplicateGuard(ctx context.Context, req *CreateTransactionRequest) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, duplicateGuardKey(req)).Err(); err != nil {
		s.logger.WithError(err).Warn("failed to release duplicate guard")
	}
}

// CreateTransaction validates and appends one stock movement. Steps 3-8 of
// the pipeline run in a single database transaction while holding the
// advisory lock for the stock key; any failure aborts the whole unit of work.
func (s *Service) CreateTransaction(ctx context.Context, req *CreateTransactionRequest, actorID uint) (*StockTransaction, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, req); err != nil {
		return nil, err
	}

	batchLot := req.normalizedBatchLot()

	var created *StockTransaction
	var beforeCartons, afterCartons int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.locker.Acquire(tx, StockLockKey(req.WarehouseID, req.SKUID, batchLot)); err != nil {
			return err
		}

		// Every read inside the unit of work goes through tx so the
		// availability check and the config snapshot see one consistent view.
		warehouses := warehouse.NewService(tx, s.config)

		// Resolve dimensions.
		var wh warehouse.Warehouse
		if err := tx.First(&wh, req.WarehouseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "warehouse", ID: req.WarehouseID}
			}
			return fmt.Errorf("failed to resolve warehouse: %w", err)
		}
		var sku warehouse.SKU
		if err := tx.First(&sku, req.SKUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "SKU", ID: req.SKUID}
			}
			return fmt.Errorf("failed to resolve SKU: %w", err)
		}

		// Backdating ban: per warehouse, dates are non-decreasing in
		// insertion order. Same-day entries are allowed; earlier days are not.
		if err := s.checkBackdating(tx, req.WarehouseID, req.TransactionDate); err != nil {
			return err
		}

		// Project the balance as of the business date for the availability
		// check and the audit trail.
		projector := NewProjector(tx, warehouses)
		balance, err := projector.Project(req.WarehouseID, req.SKUID, batchLot, endOfDay(req.TransactionDate))
		if err != nil {
			return err
		}
		beforeCartons = balance.CurrentCartons

		if req.TransactionType.IsOutbound() && req.Cartons > balance.CurrentCartons {
			return &InsufficientInventoryError{
				Available: balance.CurrentCartons,
				Requested: req.Cartons,
				BatchLot:  batchLot,
			}
		}

		// Snapshot the applicable packing configuration onto the record so
		// later configuration changes never rewrite history.
		record, err := s.buildTransaction(warehouses, req, &wh, &sku, batchLot, actorID)
		if err != nil {
			return err
		}

		txnID, err := nextTransactionID(tx, req.WarehouseID, wh.Code, req.TransactionType, req.TransactionDate)
		if err != nil {
			return err
		}
		record.TransactionID = txnID

		if err := tx.Create(record).Error; err != nil {
			if isUniqueViolation(err) {
				// Two writers minted the same per-day sequence number
				// under different stock keys; the caller can retry.
				return fmt.Errorf("transaction ID %s already taken: %w", txnID, ErrConflict)
			}
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		created = record
		afterCartons = beforeCartons + record.NetCartons()
		return nil
	})
	if err != nil {
		// The guard key was armed before the write; release it so a
		// corrected resubmission is not rejected for the rest of the window.
		s.clearDuplicateGuard(ctx, req)
		return nil, err
	}

	s.auditor.Record(audit.RecordOptions{
		ActorID:     actorID,
		EntityType:  "stock_transaction",
		EntityID:    created.TransactionID,
		Action:      audit.ActionCreate,
		Description: fmt.Sprintf("%s %d cartons of SKU %d (batch %s)", created.TransactionType, req.Cartons, req.SKUID, batchLot),
		Before:      map[string]int{"cartons": beforeCartons},
		After:       map[string]int{"cartons": afterCartons},
	})

	s.logger.WithFields(logrus.Fields{
		"transaction_id": created.TransactionID,
		"warehouse_id":   created.WarehouseID,
		"sku_id":         created.SKUID,
		"batch_lot":      created.BatchLot,
		"type":           created.TransactionType,
		"cartons_before": beforeCartons,
		"cartons_after":  afterCartons,
	}).Info("stock transaction recorded")

	return created, nil
}

// checkBackdating rejects dates earlier than the warehouse's latest
// transaction date, at day granularity.
func (s *Service) checkBackdating(tx *gorm.DB, warehouseID uint, date time.Time) error {
	var latest StockTransaction
	err := tx.Where("warehouse_id = ?", warehouseID).
		Order("transaction_date DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up latest transaction date: %w", err)
	}
	if startOfDay(date).Before(startOfDay(latest.TransactionDate)) {
		return &BackdatedTransactionError{Requested: date, Latest: latest.TransactionDate}
	}
	return nil
}

// buildTransaction assembles the immutable record, capturing units-per-carton
// and the pallet ratios in force on the business date, and computing the
// pallet figures (with a variance note when a caller override disagrees with
// the implied count).
func (s *Service) buildTransaction(warehouses *warehouse.Service, req *CreateTransactionRequest, wh *warehouse.Warehouse, sku *warehouse.SKU, batchLot string, actorID uint) (*StockTransaction, error) {
	record := &StockTransaction{
		WarehouseID:     req.WarehouseID,
		SKUID:           req.SKUID,
		BatchLot:        batchLot,
		TransactionType: req.TransactionType,
		TransactionDate: req.TransactionDate,
		PickupDate:      req.PickupDate,
		CreatedByID:     actorID,
		ReferenceID:     req.ReferenceID,
		TrackingNumber:  req.TrackingNumber,
		Notes:           req.Notes,
		Attachments:     "null",
	}
	if len(req.Attachments) > 0 {
		record.Attachments = string(req.Attachments)
	}

	units := sku.UnitsPerCarton
	record.UnitsPerCarton = &units

	cfg, err := warehouses.EffectiveCartonConfig(req.WarehouseID, req.SKUID, req.TransactionDate)
	switch {
	case err == nil:
		storage := cfg.StorageCartonsPerPallet
		shipping := cfg.ShippingCartonsPerPallet
		record.StorageCartonsPerPallet = &storage
		record.ShippingCartonsPerPallet = &shipping
	case errors.Is(err, warehouse.ErrNoCartonConfig):
		if s.config.Ledger.RequirePalletConfig {
			return nil, newValidationError("warehouse_id",
				"no carton configuration effective on %s for warehouse %s / SKU %s",
				req.TransactionDate.Format("2006-01-02"), wh.Code, sku.Code)
		}
	default:
		return nil, err
	}

	if req.TransactionType.IsInbound() {
		record.CartonsIn = req.Cartons
		record.StoragePalletsIn = s.palletCount(req, record.StorageCartonsPerPallet, record)
	} else {
		record.CartonsOut = req.Cartons
		record.ShippingPalletsOut = s.palletCount(req, record.ShippingCartonsPerPallet, record)
	}

	return record, nil
}

// palletCount returns the pallet figure for the movement. A caller override
// is trusted as supplied; when it disagrees with the count implied by the
// ratio, a variance note is recorded as an audit signal, never a gate.
func (s *Service) palletCount(req *CreateTransactionRequest, ratio *int, record *StockTransaction) int {
	implied := 0
	if ratio != nil && *ratio > 0 {
		implied = ceilDiv(req.Cartons, *ratio)
	}

	if req.Pallets == nil {
		return implied
	}
	if implied > 0 && *req.Pallets != implied {
		record.VarianceNote = fmt.Sprintf("pallet override %d differs from implied %d (ratio %d)",
			*req.Pallets, implied, *ratio)
	}
	return *req.Pallets
}

// READ PATHS

// GetTransactions lists ledger entries matching the filter. Replay order is
// ascending; display order (newestFirst) is descending.
func (s *Service) GetTransactions(filter TransactionFilter, newestFirst bool, limit, offset int) ([]StockTransaction, int64, error) {
	query := s.db.Model(&StockTransaction{})
	query = applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	order := "transaction_date ASC, created_at ASC, id ASC"
	if newestFirst {
		order = "transaction_date DESC, created_at DESC, id DESC"
	}

	var txs []StockTransaction
	q := query.Preload("Warehouse").Preload("SKU").Order(order)
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	return txs, total, nil
}

// GetTransaction looks up one ledger entry by its human-readable identifier.
func (s *Service) GetTransaction(transactionID string) (*StockTransaction, error) {
	var txn StockTransaction
	err := s.db.Preload("Warehouse").Preload("SKU").
		Where("transaction_id = ?", transactionID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve transaction: %w", err)
	}
	return &txn, nil
}

// LatestForKey returns the most recent transaction for a stock key, used to
// recover the captured pallet/unit ratios without replaying the whole key.
func (s *Service) LatestForKey(warehouseID, skuID uint, batchLot string) (*StockTransaction, error) {
	var txn StockTransaction
	err := s.db.
		Where("warehouse_id = ? AND sku_id = ? AND batch_lot = ?", warehouseID, skuID, batchLot).
		Order("transaction_date DESC, created_at DESC, id DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no transactions for key: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve latest transaction: %w", err)
	}
	return &txn, nil
}

// LedgerEntry is one row of the per-key ledger view with its running balance.
type LedgerEntry struct {
	StockTransaction
	RunningCartons int `json:"running_cartons"`
}

// GetLedger returns the full replay-ordered history for a stock key with the
// running carton balance after each entry.
func (s *Service) GetLedger(warehouseID, skuID uint, batchLot string) ([]LedgerEntry, error) {
	var txs []StockTransaction
	err := s.db.
		Where("warehouse_id = ? AND sku_id = ? AND batch_lot = ?", warehouseID, skuID, batchLot).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve ledger: %w", err)
	}

	entries := make([]LedgerEntry, 0, len(txs))
	running := 0
	for i := range txs {
		running += txs[i].NetCartons()
		entries = append(entries, LedgerEntry{StockTransaction: txs[i], RunningCartons: running})
	}
	return entries, nil
}

// applyFilter narrows a transaction query.
func applyFilter(query *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.WarehouseID != 0 {
		query = query.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.SKUID != 0 {
		query = query.Where("sku_id = ?", filter.SKUID)
	}
	if filter.BatchLot != "" {
		query = query.Where("batch_lot = ?", filter.BatchLot)
	}
	if filter.TransactionType != "" {
		query = query.Where("transaction_type = ?", filter.TransactionType)
	}
	if filter.DateFrom != nil {
		query = query.Where("transaction_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("transaction_date <= ?", *filter.DateTo)
	}
	return query
}
