// internal/domain/reconciliation/entity.go
package reconciliation

import (
	"time"
)

// ReportType identifies the kind of reconciliation run
type ReportType string

const (
	ReportTypeInventory ReportType = "INVENTORY"
)

// ReportStatus is the run state machine: IN_PROGRESS moves to exactly one of
// COMPLETED or FAILED; failed runs are never resumed, a fresh run is started.
type ReportStatus string

const (
	StatusInProgress ReportStatus = "IN_PROGRESS"
	StatusCompleted  ReportStatus = "COMPLETED"
	StatusFailed     ReportStatus = "FAILED"
)

// Severity classifies a discrepancy by the magnitude of the negative balance
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ClassifySeverity maps a projected carton balance onto a severity bucket.
func ClassifySeverity(cartons int) Severity {
	magnitude := cartons
	if magnitude < 0 {
		magnitude = -magnitude
	}
	switch {
	case magnitude > 100:
		return SeverityCritical
	case magnitude > 50:
		return SeverityHigh
	case magnitude > 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Report is one reconciliation run. Created IN_PROGRESS at run start and
// updated exactly once at completion or failure; never deleted by this
// package.
type Report struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	ReportType ReportType   `gorm:"not null;size:20;index" json:"report_type"`
	Status     ReportStatus `gorm:"not null;size:20;index" json:"status"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TotalWarehouses       int `gorm:"not null;default:0" json:"total_warehouses"`
	TotalSKUs             int `gorm:"not null;default:0" json:"total_skus"`
	TotalDiscrepancies    int `gorm:"not null;default:0" json:"total_discrepancies"`
	CriticalDiscrepancies int `gorm:"not null;default:0" json:"critical_discrepancies"`

	Summary       string `gorm:"type:jsonb;default:'null'" json:"summary"`
	InitiatedByID uint   `gorm:"index" json:"initiated_by_id"`
	ErrorMessage  string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Discrepancies []Discrepancy `gorm:"foreignKey:ReportID" json:"discrepancies,omitempty"`
}

// TableName overrides the GORM default
func (Report) TableName() string {
	return "reconciliation_reports"
}

// Discrepancy is one flagged stock key: a (warehouse, SKU, batch) whose
// projected balance settled negative. Immutable once written.
type Discrepancy struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ReportID string `gorm:"not null;size:36;index" json:"report_id"`

	WarehouseID uint   `gorm:"not null;index" json:"warehouse_id"`
	SKUID       uint   `gorm:"column:sku_id;not null;index" json:"sku_id"`
	BatchLot    string `gorm:"not null;size:100" json:"batch_lot"`

	CurrentCartons int      `gorm:"not null" json:"current_cartons"`
	Severity       Severity `gorm:"not null;size:10;index" json:"severity"`

	// Details holds the trailing transaction sample for operator triage.
	Details string `gorm:"type:jsonb;default:'null'" json:"details"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the GORM default
func (Discrepancy) TableName() string {
	return "reconciliation_discrepancies"
}
