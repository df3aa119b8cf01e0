// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/your-org/wms-backend/internal/domain/audit"
	"github.com/your-org/wms-backend/internal/domain/ledger"
	"github.com/your-org/wms-backend/internal/domain/reconciliation"
	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Master data - base tables
		&warehouse.Warehouse{},
		&warehouse.SKU{},
		&warehouse.CartonConfig{},

		// Inventory ledger
		&ledger.StockTransaction{},

		// Reconciliation output
		&reconciliation.Report{},
		&reconciliation.Discrepancy{},

		// Audit trail
		&audit.Entry{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Ledger replay and key lookups
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_replay ON stock_transactions(warehouse_id, sku_id, batch_lot, transaction_date, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_warehouse_date ON stock_transactions(warehouse_id, transaction_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_type_date ON stock_transactions(transaction_type, transaction_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_reference ON stock_transactions(reference_id)",

		// Packing configuration validity lookups
		"CREATE INDEX IF NOT EXISTS idx_carton_configs_window ON carton_configs(warehouse_id, sku_id, effective_date DESC)",

		// Reconciliation
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_reports_type_status ON reconciliation_reports(report_type, status)",
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_discrepancies_report ON reconciliation_discrepancies(report_id, severity)",

		// Audit trail
		"CREATE INDEX IF NOT EXISTS idx_audit_entries_entity ON audit_entries(entity_type, entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries(created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedWarehouses(); err != nil {
		return fmt.Errorf("failed to seed warehouses: %w", err)
	}

	if err := m.seedSKUs(); err != nil {
		return fmt.Errorf("failed to seed SKUs: %w", err)
	}

	if err := m.seedCartonConfigs(); err != nil {
		return fmt.Errorf("failed to seed carton configs: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedWarehouses creates default warehouses for development
func (m *Migration) seedWarehouses() error {
	log.Println("🏭 Seeding warehouses...")

	warehouses := []warehouse.Warehouse{
		{Name: "London Heathrow DC", Code: "LHR", City: "London", Country: "GB", IsActive: true, IsDefault: true},
		{Name: "Manchester DC", Code: "MAN", City: "Manchester", Country: "GB", IsActive: true},
	}

	for _, wh := range warehouses {
		var existing warehouse.Warehouse
		if err := m.db.Where("code = ?", wh.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := m.db.Create(&wh).Error; err != nil {
				return err
			}
			log.Printf("Created warehouse: %s", wh.Code)
		}
	}

	return nil
}

// seedSKUs creates sample SKUs for development
func (m *Migration) seedSKUs() error {
	log.Println("📦 Seeding SKUs...")

	skus := []warehouse.SKU{
		{Code: "CS-007", Description: "Cotton sheet set, double", UnitsPerCarton: 12, IsActive: true},
		{Code: "CS-010", Description: "Cotton sheet set, king", UnitsPerCarton: 8, IsActive: true},
		{Code: "CD-019", Description: "Duvet cover, double", UnitsPerCarton: 10, IsActive: true},
	}

	for _, sku := range skus {
		var existing warehouse.SKU
		if err := m.db.Where("code = ?", sku.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := m.db.Create(&sku).Error; err != nil {
				return err
			}
			log.Printf("Created SKU: %s", sku.Code)
		}
	}

	return nil
}

// seedCartonConfigs creates packing configurations for the seeded pairs
func (m *Migration) seedCartonConfigs() error {
	log.Println("🧮 Seeding carton configurations...")

	var defaultWarehouse warehouse.Warehouse
	if err := m.db.Where("is_default = ?", true).First(&defaultWarehouse).Error; err != nil {
		return nil // nothing to configure yet
	}

	var skus []warehouse.SKU
	if err := m.db.Find(&skus).Error; err != nil {
		return err
	}

	effective := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, sku := range skus {
		var existing warehouse.CartonConfig
		err := m.db.Where("warehouse_id = ? AND sku_id = ?", defaultWarehouse.ID, sku.ID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			cfg := warehouse.CartonConfig{
				WarehouseID:              defaultWarehouse.ID,
				SKUID:                    sku.ID,
				StorageCartonsPerPallet:  48,
				ShippingCartonsPerPallet: 40,
				EffectiveDate:            effective,
			}
			if err := m.db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// GetTableInfo logs row counts for the main tables (development helper)
func (m *Migration) GetTableInfo() {
	tables := []string{"warehouses", "skus", "carton_configs", "stock_transactions", "reconciliation_reports", "reconciliation_discrepancies", "audit_entries"}

	log.Println("📊 Table information:")
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err == nil {
			log.Printf("  %s: %d rows", table, count)
		}
	}
}
