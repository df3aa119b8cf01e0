// internal/domain/reconciliation/service.go
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/domain/audit"
	"github.com/your-org/wms-backend/internal/domain/ledger"
	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// runLockKey serializes reconciliation runs across all instances. The
// IN_PROGRESS status check alone is a check-then-act race; holding this lock
// around check-and-insert closes it.
const runLockKey = "reconciliation:INVENTORY"

var (
	// ErrRunInProgress is returned when an INVENTORY reconciliation is
	// already running.
	ErrRunInProgress = errors.New("an inventory reconciliation is already in progress")
	// ErrReconciliationFailed wraps scan errors; the report row carries the
	// captured message.
	ErrReconciliationFailed = errors.New("reconciliation run failed")
)

// Service runs inventory reconciliation: it replays every stock key observed
// in the ledger and flags any key whose projected balance is negative, since
// a negative balance is impossible under correctly validated writes.
type Service struct {
	db       *gorm.DB
	config   *config.Config
	logger   *logrus.Logger
	locker   *redislock.Client
	notifier Notifier
	auditor  *audit.Recorder
	now      func() time.Time
}

// NewService creates a new reconciliation service. locker may be nil when no
// Redis is configured; the application-level status check still applies.
func NewService(db *gorm.DB, cfg *config.Config, locker *redislock.Client, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		logger:   logger,
		locker:   locker,
		notifier: NewLogNotifier(logger),
		auditor:  audit.NewRecorder(db, logger),
		now:      time.Now,
	}
}

// SetNotifier replaces the default log-backed notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// discrepancyDetails is the triage blob persisted with each discrepancy.
type discrepancyDetails struct {
	LastTransactionDate *time.Time          `json:"last_transaction_date,omitempty"`
	TransactionCount    int                 `json:"transaction_count"`
	RecentTransactions  []transactionSample `json:"recent_transactions"`
}

type transactionSample struct {
	TransactionID   string    `json:"transaction_id"`
	TransactionType string    `json:"transaction_type"`
	CartonsIn       int       `json:"cartons_in"`
	CartonsOut      int       `json:"cartons_out"`
	TransactionDate time.Time `json:"transaction_date"`
}

// sampleTransactions keeps the trailing n entries of a replay-ordered history.
func sampleTransactions(txs []ledger.StockTransaction, n int) []transactionSample {
	if n <= 0 {
		n = 10
	}
	start := 0
	if len(txs) > n {
		start = len(txs) - n
	}
	samples := make([]transactionSample, 0, len(txs)-start)
	for _, tx := range txs[start:] {
		samples = append(samples, transactionSample{
			TransactionID:   tx.TransactionID,
			TransactionType: string(tx.TransactionType),
			CartonsIn:       tx.CartonsIn,
			CartonsOut:      tx.CartonsOut,
			TransactionDate: tx.TransactionDate,
		})
	}
	return samples
}

// Run executes one reconciliation pass. It returns the report in its final
// state; scan failures mark the report FAILED and surface as
// ErrReconciliationFailed, keeping any discrepancy rows already written.
func (s *Service) Run(ctx context.Context, actorID uint) (*Report, error) {
	// Serialize runs across instances before the status check.
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, runLockKey, s.config.Reconciliation.RunLockTTL, nil)
		if err == redislock.ErrNotObtained {
			return nil, ErrRunInProgress
		} else if err != nil {
			s.logger.WithError(err).Warn("reconciliation lock unavailable, relying on status check")
		} else {
			defer func() {
				if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil && !errors.Is(relErr, redislock.ErrLockNotHeld) {
					s.logger.WithError(relErr).Warn("failed to release reconciliation lock")
				}
			}()
		}
	}

	var inProgress int64
	err := s.db.Model(&Report{}).
		Where("report_type = ? AND status = ?", ReportTypeInventory, StatusInProgress).
		Count(&inProgress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check for running reconciliation: %w", err)
	}
	if inProgress > 0 {
		return nil, ErrRunInProgress
	}

	report := &Report{
		ID:            uuid.NewString(),
		ReportType:    ReportTypeInventory,
		Status:        StatusInProgress,
		StartedAt:     s.now(),
		InitiatedByID: actorID,
		Summary:       "null",
	}
	if err := s.db.Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create reconciliation report: %w", err)
	}

	s.logger.WithField("report_id", report.ID).Info("reconciliation run started")

	discrepancies, scanErr := s.scan(ctx, report)
	if scanErr != nil {
		s.markFailed(report, scanErr)
		return report, fmt.Errorf("%w: %v", ErrReconciliationFailed, scanErr)
	}

	s.complete(report, discrepancies)

	if report.CriticalDiscrepancies > 0 {
		if err := s.notifier.NotifyCriticalDiscrepancies(ctx, report, discrepancies); err != nil {
			s.logger.WithError(err).Warn("failed to notify administrators")
		}
	}

	s.auditor.Record(audit.RecordOptions{
		ActorID:     actorID,
		EntityType:  "reconciliation_report",
		EntityID:    report.ID,
		Action:      audit.ActionRun,
		Description: fmt.Sprintf("inventory reconciliation: %d discrepancies (%d critical)", report.TotalDiscrepancies, report.CriticalDiscrepancies),
		After:       report,
	})

	return report, nil
}

// scan enumerates every stock key observed in the ledger with one grouped
// query, projects each key over its full history, and persists a discrepancy
// row for every negative balance as it is found.
func (s *Service) scan(ctx context.Context, report *Report) ([]Discrepancy, error) {
	var keys []ledger.StockKey
	err := s.db.Model(&ledger.StockTransaction{}).
		Select("warehouse_id, sku_id, batch_lot").
		Group("warehouse_id, sku_id, batch_lot").
		Order("warehouse_id, sku_id, batch_lot").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate stock keys: %w", err)
	}

	warehouses := warehouse.NewService(s.db, s.config)
	projector := ledger.NewProjector(s.db, warehouses)

	warehouseSet := make(map[uint]struct{})
	skuSet := make(map[uint]struct{})
	var discrepancies []Discrepancy

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return discrepancies, err
		}
		warehouseSet[key.WarehouseID] = struct{}{}
		skuSet[key.SKUID] = struct{}{}

		// Full-history projection, no cutoff: a run must not see a torn
		// view of a same-day transaction pair just because it happens to
		// execute between their timestamps.
		balance, err := projector.Project(key.WarehouseID, key.SKUID, key.BatchLot, time.Time{})
		if err != nil {
			return discrepancies, fmt.Errorf("failed to project %d/%d/%s: %w", key.WarehouseID, key.SKUID, key.BatchLot, err)
		}
		if balance.CurrentCartons >= 0 {
			continue
		}

		discrepancy, err := s.recordDiscrepancy(report.ID, key, balance)
		if err != nil {
			return discrepancies, err
		}
		discrepancies = append(discrepancies, *discrepancy)
	}

	report.TotalWarehouses = len(warehouseSet)
	report.TotalSKUs = len(skuSet)
	report.Summary = buildSummary(len(keys), discrepancies)
	return discrepancies, nil
}

// recordDiscrepancy persists one flagged key with its trailing history sample.
func (s *Service) recordDiscrepancy(reportID string, key ledger.StockKey, balance *ledger.Balance) (*Discrepancy, error) {
	var txs []ledger.StockTransaction
	err := s.db.
		Where("warehouse_id = ? AND sku_id = ? AND batch_lot = ?", key.WarehouseID, key.SKUID, key.BatchLot).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history for discrepancy: %w", err)
	}

	details := discrepancyDetails{
		LastTransactionDate: balance.LastTransactionDate,
		TransactionCount:    balance.TransactionCount,
		RecentTransactions:  sampleTransactions(txs, s.config.Reconciliation.SampleSize),
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal discrepancy details: %w", err)
	}

	discrepancy := &Discrepancy{
		ID:             uuid.NewString(),
		ReportID:       reportID,
		WarehouseID:    key.WarehouseID,
		SKUID:          key.SKUID,
		BatchLot:       key.BatchLot,
		CurrentCartons: balance.CurrentCartons,
		Severity:       ClassifySeverity(balance.CurrentCartons),
		Details:        string(detailsJSON),
	}
	if err := s.db.Create(discrepancy).Error; err != nil {
		return nil, fmt.Errorf("failed to persist discrepancy: %w", err)
	}
	return discrepancy, nil
}

// buildSummary renders the aggregate statistics blob.
func buildSummary(keysScanned int, discrepancies []Discrepancy) string {
	bySeverity := map[Severity]int{}
	for i := range discrepancies {
		bySeverity[discrepancies[i].Severity]++
	}
	summary := map[string]interface{}{
		"keys_scanned":              keysScanned,
		"discrepancies_by_severity": bySeverity,
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return "null"
	}
	return string(b)
}

// complete moves the report to COMPLETED with its aggregates.
func (s *Service) complete(report *Report, discrepancies []Discrepancy) {
	now := s.now()
	report.Status = StatusCompleted
	report.CompletedAt = &now
	report.TotalDiscrepancies = len(discrepancies)
	for i := range discrepancies {
		if discrepancies[i].Severity == SeverityCritical {
			report.CriticalDiscrepancies++
		}
	}

	if err := s.db.Save(report).Error; err != nil {
		s.logger.WithError(err).WithField("report_id", report.ID).Error("failed to finalize reconciliation report")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"report_id":              report.ID,
		"total_discrepancies":    report.TotalDiscrepancies,
		"critical_discrepancies": report.CriticalDiscrepancies,
		"warehouses":             report.TotalWarehouses,
		"skus":                   report.TotalSKUs,
	}).Info("reconciliation run completed")
}

// markFailed moves the report to FAILED with the captured error. Discrepancy
// rows already written are kept; the report status is the authoritative
// signal of run validity.
func (s *Service) markFailed(report *Report, scanErr error) {
	now := s.now()
	report.Status = StatusFailed
	report.CompletedAt = &now
	report.ErrorMessage = scanErr.Error()

	if err := s.db.Save(report).Error; err != nil {
		s.logger.WithError(err).WithField("report_id", report.ID).Error("failed to mark reconciliation report failed")
	}

	s.logger.WithError(scanErr).WithField("report_id", report.ID).Error("reconciliation run failed")
}

// GetReports lists reconciliation reports, newest first.
func (s *Service) GetReports(limit, offset int) ([]Report, int64, error) {
	var total int64
	if err := s.db.Model(&Report{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reports []Report
	q := s.db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve reports: %w", err)
	}
	return reports, total, nil
}

// GetReport retrieves one report with its discrepancies.
func (s *Service) GetReport(id string) (*Report, error) {
	var report Report
	err := s.db.Preload("Discrepancies").Where("id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report %s not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve report: %w", err)
	}
	return &report, nil
}
