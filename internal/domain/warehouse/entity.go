// internal/domain/warehouse/entity.go
package warehouse

import (
	"time"

	"gorm.io/gorm"
)

// Warehouse represents a physical storage location
type Warehouse struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"not null;size:100" json:"name"`
	Code       string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Address    string         `gorm:"type:text" json:"address"`
	City       string         `gorm:"size:50" json:"city"`
	Country    string         `gorm:"size:50" json:"country"`
	PostalCode string         `gorm:"size:20" json:"postal_code"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	IsDefault  bool           `gorm:"default:false" json:"is_default"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// SKU represents a stock keeping unit in the product master
type SKU struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Code           string         `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Description    string         `gorm:"size:255" json:"description"`
	UnitsPerCarton int            `gorm:"not null;default:1" json:"units_per_carton"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// CartonConfig holds the cartons-per-pallet packing configuration for a
// (warehouse, SKU) pair. Configurations carry a validity window so historical
// balances can be projected against the ratio that applied at the time.
type CartonConfig struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	WarehouseID uint `gorm:"not null;index:idx_carton_configs_key" json:"warehouse_id"`
	// Explicit column tag: GORM would otherwise name this sk_uid.
	SKUID                    uint       `gorm:"column:sku_id;not null;index:idx_carton_configs_key" json:"sku_id"`
	StorageCartonsPerPallet  int        `gorm:"not null" json:"storage_cartons_per_pallet"`
	ShippingCartonsPerPallet int        `gorm:"not null" json:"shipping_cartons_per_pallet"`
	EffectiveDate            time.Time  `gorm:"not null;index" json:"effective_date"`
	EndDate                  *time.Time `json:"end_date,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`

	// Relationships
	Warehouse Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	SKU       SKU       `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
}

// ActiveAt reports whether the configuration's validity window covers t.
func (c *CartonConfig) ActiveAt(t time.Time) bool {
	if c.EffectiveDate.After(t) {
		return false
	}
	return c.EndDate == nil || !c.EndDate.Before(t)
}
