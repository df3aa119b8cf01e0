// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/wms-backend/internal/config"
	"github.com/your-org/wms-backend/internal/interfaces/http/handlers"
	"github.com/your-org/wms-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, locker *redislock.Client, cfg *config.Config, logger *logrus.Logger) {
	SetupLedgerRoutes(rg, db, redisClient, cfg, logger)
	SetupInventoryRoutes(rg, db, redisClient, cfg, logger)
	SetupReconciliationRoutes(rg, db, locker, cfg, logger)
	SetupMasterDataRoutes(rg, db, cfg)
}

// SetupLedgerRoutes sets up stock transaction routes
func SetupLedgerRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) {
	ledgerHandler := handlers.NewLedgerHandler(db, cfg, redisClient, logger)

	transactions := rg.Group("/transactions")
	transactions.Use(middleware.AuthMiddleware(cfg))
	{
		transactions.POST("", ledgerHandler.CreateTransaction)
		transactions.GET("", ledgerHandler.GetTransactions)
		transactions.GET("/:id", ledgerHandler.GetTransaction)

		// The ledger is append-only: mutation verbs are rejected for any
		// payload, with or without an id.
		transactions.PUT("", ledgerHandler.TransactionImmutable)
		transactions.PUT("/:id", ledgerHandler.TransactionImmutable)
		transactions.PATCH("", ledgerHandler.TransactionImmutable)
		transactions.PATCH("/:id", ledgerHandler.TransactionImmutable)
		transactions.DELETE("", ledgerHandler.TransactionImmutable)
		transactions.DELETE("/:id", ledgerHandler.TransactionImmutable)
	}
}

// SetupInventoryRoutes sets up derived balance routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) {
	balanceHandler := handlers.NewBalanceHandler(db, cfg, redisClient, logger)

	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg))
	{
		inventory.GET("/balances", balanceHandler.GetBalances)
		inventory.GET("/balances/:warehouseId/:skuId", balanceHandler.GetBalance)
		inventory.GET("/ledger", balanceHandler.GetLedger)
	}
}

// SetupReconciliationRoutes sets up reconciliation routes
func SetupReconciliationRoutes(rg *gin.RouterGroup, db *gorm.DB, locker *redislock.Client, cfg *config.Config, logger *logrus.Logger) {
	reconciliationHandler := handlers.NewReconciliationHandler(db, cfg, locker, logger)

	reconciliation := rg.Group("/reconciliation")
	reconciliation.Use(middleware.AuthMiddleware(cfg))
	reconciliation.Use(middleware.AdminMiddleware())
	{
		reconciliation.POST("/run", reconciliationHandler.Run)
		reconciliation.GET("/reports", reconciliationHandler.GetReports)
		reconciliation.GET("/reports/:id", reconciliationHandler.GetReport)
	}
}

// SetupMasterDataRoutes sets up warehouse and SKU master data routes
func SetupMasterDataRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	warehouseHandler := handlers.NewWarehouseHandler(db, cfg)

	// Read endpoints require authentication
	protected := rg.Group("")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.GET("/warehouses", warehouseHandler.GetWarehouses)
		protected.GET("/skus", warehouseHandler.GetSKUs)
	}

	// Master data writes are admin-only
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/warehouses", warehouseHandler.CreateWarehouse)
		admin.POST("/skus", warehouseHandler.CreateSKU)
		admin.POST("/carton-configs", warehouseHandler.CreateCartonConfig)
		admin.GET("/carton-configs/:warehouseId/:skuId", warehouseHandler.GetCartonConfigs)
	}
}
