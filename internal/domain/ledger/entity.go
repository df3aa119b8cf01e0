// internal/domain/ledger/entity.go
package ledger

import (
	"time"

	"github.com/your-org/wms-backend/internal/domain/warehouse"
)

// TransactionType represents the kind of stock movement
type TransactionType string

const (
	TransactionTypeReceive     TransactionType = "RECEIVE"
	TransactionTypeShip        TransactionType = "SHIP"
	TransactionTypeAdjustIn    TransactionType = "ADJUST_IN"
	TransactionTypeAdjustOut   TransactionType = "ADJUST_OUT"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
)

// DefaultBatchLot is the sentinel batch label used when the caller supplies none.
const DefaultBatchLot = "DEFAULT"

// IsInbound reports whether the movement adds stock (populates cartons_in).
func (t TransactionType) IsInbound() bool {
	switch t {
	case TransactionTypeReceive, TransactionTypeAdjustIn, TransactionTypeTransferIn:
		return true
	}
	return false
}

// IsOutbound reports whether the movement removes stock (populates cartons_out).
func (t TransactionType) IsOutbound() bool {
	switch t {
	case TransactionTypeShip, TransactionTypeAdjustOut, TransactionTypeTransferOut:
		return true
	}
	return false
}

// IsValid reports whether the type is a known movement type.
func (t TransactionType) IsValid() bool {
	return t.IsInbound() || t.IsOutbound()
}

// Abbrev returns the short code embedded in transaction identifiers.
func (t TransactionType) Abbrev() string {
	switch t {
	case TransactionTypeReceive:
		return "RCV"
	case TransactionTypeShip:
		return "SHP"
	case TransactionTypeAdjustIn:
		return "ADI"
	case TransactionTypeAdjustOut:
		return "ADO"
	case TransactionTypeTransferIn:
		return "TRI"
	case TransactionTypeTransferOut:
		return "TRO"
	}
	return "UNK"
}

// StockTransaction is one immutable entry in the inventory ledger. Rows are
// append-only: no update or delete path exists for them anywhere in this
// package, and corrections are expressed as new ADJUST_IN/ADJUST_OUT entries.
// Balances are always derived by replaying these rows, never stored as
// mutable counters.
type StockTransaction struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TransactionID string `gorm:"uniqueIndex;not null;size:60" json:"transaction_id"`

	// Dimensions. SKUID carries an explicit column tag: GORM's naming
	// strategy would otherwise render it sk_uid, breaking every raw sku_id
	// query in the tree.
	WarehouseID uint   `gorm:"not null;index:idx_stock_transactions_key" json:"warehouse_id"`
	SKUID       uint   `gorm:"column:sku_id;not null;index:idx_stock_transactions_key" json:"sku_id"`
	BatchLot    string `gorm:"not null;size:100;index:idx_stock_transactions_key" json:"batch_lot"`

	// Movement: exactly one side is populated depending on direction
	TransactionType TransactionType `gorm:"not null;size:20;index" json:"transaction_type"`
	CartonsIn       int             `gorm:"not null;default:0" json:"cartons_in"`
	CartonsOut      int             `gorm:"not null;default:0" json:"cartons_out"`

	// Pallet bookkeeping, with the cartons-per-pallet ratios captured at
	// transaction time so historical pallet math never drifts when warehouse
	// configuration changes later.
	StoragePalletsIn         int  `gorm:"not null;default:0" json:"storage_pallets_in"`
	ShippingPalletsOut       int  `gorm:"not null;default:0" json:"shipping_pallets_out"`
	StorageCartonsPerPallet  *int `json:"storage_cartons_per_pallet,omitempty"`
	ShippingCartonsPerPallet *int `json:"shipping_cartons_per_pallet,omitempty"`

	// Units bookkeeping, captured from the SKU master at transaction time.
	UnitsPerCarton *int `json:"units_per_carton,omitempty"`

	// Temporal
	TransactionDate time.Time  `gorm:"not null;index" json:"transaction_date"`
	PickupDate      *time.Time `json:"pickup_date,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`

	// Provenance
	CreatedByID    uint   `gorm:"index" json:"created_by_id"`
	ReferenceID    string `gorm:"size:100;index" json:"reference_id"`
	TrackingNumber string `gorm:"size:100" json:"tracking_number"`
	Attachments    string `gorm:"type:jsonb;default:'null'" json:"attachments,omitempty"`
	Notes          string `gorm:"type:text" json:"notes,omitempty"`
	VarianceNote   string `gorm:"size:255" json:"variance_note,omitempty"`

	// Relationships
	Warehouse warehouse.Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	SKU       warehouse.SKU       `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
}

// NetCartons is the signed carton delta this transaction contributes.
func (t *StockTransaction) NetCartons() int {
	return t.CartonsIn - t.CartonsOut
}

// TransactionFilter narrows Query results. Zero values mean "no filter".
type TransactionFilter struct {
	WarehouseID     uint
	SKUID           uint
	BatchLot        string
	TransactionType TransactionType
	DateFrom        *time.Time
	DateTo          *time.Time
}

// StockKey identifies one independently tracked stock position. It doubles as
// a scan target for grouped key enumeration, so SKUID pins its column name.
type StockKey struct {
	WarehouseID uint   `json:"warehouse_id"`
	SKUID       uint   `gorm:"column:sku_id" json:"sku_id"`
	BatchLot    string `json:"batch_lot"`
}

// Balance is the projected on-hand position for a stock key. It is derived on
// demand by folding the transaction history and is never persisted as ground
// truth.
type Balance struct {
	WarehouseID uint   `json:"warehouse_id"`
	SKUID       uint   `json:"sku_id"`
	SKUCode     string `json:"sku_code"`
	BatchLot    string `json:"batch_lot"`

	CurrentCartons int `json:"current_cartons"`
	CurrentPallets int `json:"current_pallets"`
	CurrentUnits   int `json:"current_units"`

	UnitsPerCarton   int `json:"units_per_carton"`
	CartonsPerPallet int `json:"cartons_per_pallet"`
	// RatioAssumed is set when no cartons-per-pallet ratio was found anywhere
	// and the degenerate 1:1 fallback was used for the pallet figure.
	RatioAssumed bool `json:"ratio_assumed"`

	LastTransactionDate *time.Time `json:"last_transaction_date,omitempty"`
	TransactionCount    int        `json:"transaction_count"`
}
