// internal/domain/warehouse/service.go
package warehouse

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/wms-backend/internal/config"
	"gorm.io/gorm"
)

// ErrNoCartonConfig is returned when no packing configuration covers the
// requested date for a (warehouse, SKU) pair.
var ErrNoCartonConfig = errors.New("no carton configuration effective for date")

// Service handles warehouse and SKU master data
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new warehouse service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateWarehouseRequest represents warehouse creation data
type CreateWarehouseRequest struct {
	Name       string `json:"name" binding:"required"`
	Code       string `json:"code" binding:"required,max=20"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

// CreateSKURequest represents SKU creation data
type CreateSKURequest struct {
	Code           string `json:"code" binding:"required,max=50"`
	Description    string `json:"description"`
	UnitsPerCarton int    `json:"units_per_carton" binding:"required,min=1"`
}

// CreateCartonConfigRequest represents packing configuration data
type CreateCartonConfigRequest struct {
	WarehouseID              uint       `json:"warehouse_id" binding:"required"`
	SKUID                    uint       `json:"sku_id" binding:"required"`
	StorageCartonsPerPallet  int        `json:"storage_cartons_per_pallet" binding:"required,min=1"`
	ShippingCartonsPerPallet int        `json:"shipping_cartons_per_pallet" binding:"required,min=1"`
	EffectiveDate            time.Time  `json:"effective_date" binding:"required"`
	EndDate                  *time.Time `json:"end_date,omitempty"`
}

// WAREHOUSE MANAGEMENT

// CreateWarehouse creates a new warehouse
func (s *Service) CreateWarehouse(req *CreateWarehouseRequest) (*Warehouse, error) {
	// Check if code already exists
	var existing Warehouse
	if err := s.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("warehouse with code '%s' already exists", req.Code)
	}

	// If this is set as default, unset others
	if req.IsDefault {
		s.db.Model(&Warehouse{}).Where("is_default = ?", true).Update("is_default", false)
	}

	warehouse := &Warehouse{
		Name:       req.Name,
		Code:       req.Code,
		Address:    req.Address,
		City:       req.City,
		Country:    req.Country,
		PostalCode: req.PostalCode,
		IsDefault:  req.IsDefault,
		IsActive:   true,
	}

	if err := s.db.Create(warehouse).Error; err != nil {
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}

	return warehouse, nil
}

// GetWarehouses retrieves all active warehouses
func (s *Service) GetWarehouses() ([]Warehouse, error) {
	var warehouses []Warehouse
	if err := s.db.Where("is_active = ?", true).Order("code").Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve warehouses: %w", err)
	}
	return warehouses, nil
}

// GetWarehouse retrieves a warehouse by id
func (s *Service) GetWarehouse(id uint) (*Warehouse, error) {
	var warehouse Warehouse
	if err := s.db.First(&warehouse, id).Error; err != nil {
		return nil, fmt.Errorf("warehouse not found")
	}
	return &warehouse, nil
}

// SKU MASTER

// CreateSKU creates a new SKU
func (s *Service) CreateSKU(req *CreateSKURequest) (*SKU, error) {
	var existing SKU
	if err := s.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("SKU with code '%s' already exists", req.Code)
	}

	sku := &SKU{
		Code:           req.Code,
		Description:    req.Description,
		UnitsPerCarton: req.UnitsPerCarton,
		IsActive:       true,
	}

	if err := s.db.Create(sku).Error; err != nil {
		return nil, fmt.Errorf("failed to create SKU: %w", err)
	}

	return sku, nil
}

// GetSKUs retrieves all active SKUs
func (s *Service) GetSKUs() ([]SKU, error) {
	var skus []SKU
	if err := s.db.Where("is_active = ?", true).Order("code").Find(&skus).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve SKUs: %w", err)
	}
	return skus, nil
}

// GetSKU retrieves a SKU by id
func (s *Service) GetSKU(id uint) (*SKU, error) {
	var sku SKU
	if err := s.db.First(&sku, id).Error; err != nil {
		return nil, fmt.Errorf("SKU not found")
	}
	return &sku, nil
}

// PACKING CONFIGURATION

// CreateCartonConfig records a new packing configuration window
func (s *Service) CreateCartonConfig(req *CreateCartonConfigRequest) (*CartonConfig, error) {
	if _, err := s.GetWarehouse(req.WarehouseID); err != nil {
		return nil, err
	}
	if _, err := s.GetSKU(req.SKUID); err != nil {
		return nil, err
	}
	if req.EndDate != nil && req.EndDate.Before(req.EffectiveDate) {
		return nil, fmt.Errorf("end date must not precede effective date")
	}

	cfg := &CartonConfig{
		WarehouseID:              req.WarehouseID,
		SKUID:                    req.SKUID,
		StorageCartonsPerPallet:  req.StorageCartonsPerPallet,
		ShippingCartonsPerPallet: req.ShippingCartonsPerPallet,
		EffectiveDate:            req.EffectiveDate,
		EndDate:                  req.EndDate,
	}

	if err := s.db.Create(cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to create carton config: %w", err)
	}

	return cfg, nil
}

// GetCartonConfigs lists packing configurations for a (warehouse, SKU) pair
func (s *Service) GetCartonConfigs(warehouseID, skuID uint) ([]CartonConfig, error) {
	var configs []CartonConfig
	if err := s.db.Where("warehouse_id = ? AND sku_id = ?", warehouseID, skuID).
		Order("effective_date DESC").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve carton configs: %w", err)
	}
	return configs, nil
}

// EffectiveCartonConfig returns the configuration whose validity window covers
// the given date: the latest effective_date <= at with end_date null or >= at.
func (s *Service) EffectiveCartonConfig(warehouseID, skuID uint, at time.Time) (*CartonConfig, error) {
	var cfg CartonConfig
	err := s.db.Where("warehouse_id = ? AND sku_id = ?", warehouseID, skuID).
		Where("effective_date <= ?", at).
		Where("end_date IS NULL OR end_date >= ?", at).
		Order("effective_date DESC").
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCartonConfig
		}
		return nil, fmt.Errorf("failed to look up carton config: %w", err)
	}
	return &cfg, nil
}
