// internal/domain/ledger/projector.go
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/your-org/wms-backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// Projector derives on-hand balances by replaying the transaction ledger. It
// never writes; calling it twice against an unchanged ledger yields identical
// results, which is what makes reconciliation meaningful.
type Projector struct {
	db         *gorm.DB
	warehouses *warehouse.Service
}

// NewProjector creates a projector bound to a database handle. Pass a
// transaction handle to project inside an open write transaction.
func NewProjector(db *gorm.DB, warehouses *warehouse.Service) *Projector {
	return &Projector{
		db:         db,
		warehouses: warehouses,
	}
}

// foldState accumulates the replay of one stock key's transactions.
type foldState struct {
	cartons          int
	unitsPerCarton   *int
	cartonsPerPallet *int
	lastDate         *time.Time
	count            int
}

// fold replays transactions in ascending order. The last non-null captured
// units/ratio values win, so the current view reports the newest snapshot
// without ever re-deriving from live configuration.
func fold(txs []StockTransaction) foldState {
	var st foldState
	for i := range txs {
		tx := &txs[i]
		st.cartons += tx.NetCartons()
		if tx.UnitsPerCarton != nil {
			st.unitsPerCarton = tx.UnitsPerCarton
		}
		if tx.StorageCartonsPerPallet != nil {
			st.cartonsPerPallet = tx.StorageCartonsPerPallet
		}
		d := tx.TransactionDate
		st.lastDate = &d
		st.count++
	}
	return st
}

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// resolveBalance turns a fold result into a Balance, applying the unit and
// pallet fallbacks: SKU master for units; warehouse-SKU configuration
// effective at the cutoff for the pallet ratio; a flagged 1:1 ratio as the
// last resort.
func (p *Projector) resolveBalance(key StockKey, sku *warehouse.SKU, st foldState, cutoff time.Time) Balance {
	unitsPerCarton := sku.UnitsPerCarton
	if st.unitsPerCarton != nil {
		unitsPerCarton = *st.unitsPerCarton
	}

	configAt := cutoff
	if configAt.IsZero() {
		configAt = time.Now()
	}

	ratio := 0
	assumed := false
	switch {
	case st.cartonsPerPallet != nil && *st.cartonsPerPallet > 0:
		ratio = *st.cartonsPerPallet
	default:
		cfg, err := p.warehouses.EffectiveCartonConfig(key.WarehouseID, key.SKUID, configAt)
		if err == nil {
			ratio = cfg.StorageCartonsPerPallet
		} else {
			ratio = 1
			assumed = true
		}
	}

	pallets := 0
	if st.cartons > 0 {
		pallets = ceilDiv(st.cartons, ratio)
	}

	return Balance{
		WarehouseID:         key.WarehouseID,
		SKUID:               key.SKUID,
		SKUCode:             sku.Code,
		BatchLot:            key.BatchLot,
		CurrentCartons:      st.cartons,
		CurrentPallets:      pallets,
		CurrentUnits:        st.cartons * unitsPerCarton,
		UnitsPerCarton:      unitsPerCarton,
		CartonsPerPallet:    ratio,
		RatioAssumed:        assumed,
		LastTransactionDate: st.lastDate,
		TransactionCount:    st.count,
	}
}

// Project computes the balance for one stock key as of cutoff by replaying
// every transaction with transaction_date <= cutoff in replay order. A zero
// cutoff places no date bound: the full history is replayed. Missing SKU
// masters degrade the same way ProjectAll does, so a retired SKU with ledger
// history still projects.
func (p *Projector) Project(warehouseID, skuID uint, batchLot string, cutoff time.Time) (*Balance, error) {
	sku, err := p.resolveSKU(skuID)
	if err != nil {
		return nil, err
	}

	query := p.db.Where("warehouse_id = ? AND sku_id = ? AND batch_lot = ?", warehouseID, skuID, batchLot)
	if !cutoff.IsZero() {
		query = query.Where("transaction_date <= ?", cutoff)
	}

	var txs []StockTransaction
	err = query.
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	key := StockKey{WarehouseID: warehouseID, SKUID: skuID, BatchLot: batchLot}
	balance := p.resolveBalance(key, sku, fold(txs), cutoff)
	return &balance, nil
}

// resolveSKU loads the SKU master for projection, including soft-deleted
// rows: a retired SKU's history must stay projectable. A row missing outright
// falls back to a bare master so carton math stays intact.
func (p *Projector) resolveSKU(skuID uint) (*warehouse.SKU, error) {
	var sku warehouse.SKU
	err := p.db.Unscoped().First(&sku, skuID).Error
	if err == nil {
		return &sku, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &warehouse.SKU{ID: skuID, UnitsPerCarton: 1}, nil
	}
	return nil, fmt.Errorf("failed to resolve SKU: %w", err)
}

// ProjectAll computes balances for every stock key matching the filter in a
// single grouped pass over the ledger. A zero cutoff replays full history.
// Zero-stock keys are dropped unless includeZero is set. Results are sorted
// by SKU code, then batch lot.
func (p *Projector) ProjectAll(filter TransactionFilter, cutoff time.Time, includeZero bool) ([]Balance, error) {
	query := p.db.Model(&StockTransaction{})
	if !cutoff.IsZero() {
		query = query.Where("transaction_date <= ?", cutoff)
	}
	if filter.WarehouseID != 0 {
		query = query.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.SKUID != 0 {
		query = query.Where("sku_id = ?", filter.SKUID)
	}
	if filter.BatchLot != "" {
		query = query.Where("batch_lot = ?", filter.BatchLot)
	}

	var txs []StockTransaction
	err := query.
		Order("warehouse_id ASC, sku_id ASC, batch_lot ASC, transaction_date ASC, created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txs) == 0 {
		return []Balance{}, nil
	}

	// Group sequentially; the query ordering guarantees each key's
	// transactions arrive contiguously and in replay order.
	groups := make(map[StockKey][]StockTransaction)
	keys := make([]StockKey, 0)
	skuIDs := make(map[uint]struct{})
	for i := range txs {
		key := StockKey{WarehouseID: txs[i].WarehouseID, SKUID: txs[i].SKUID, BatchLot: txs[i].BatchLot}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], txs[i])
		skuIDs[key.SKUID] = struct{}{}
	}

	// Resolve all SKU masters in one query, soft-deleted rows included so a
	// retired SKU's history still projects with its real units.
	ids := make([]uint, 0, len(skuIDs))
	for id := range skuIDs {
		ids = append(ids, id)
	}
	var skus []warehouse.SKU
	if err := p.db.Unscoped().Where("id IN ?", ids).Find(&skus).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve SKUs: %w", err)
	}
	skusByID := make(map[uint]*warehouse.SKU, len(skus))
	for i := range skus {
		skusByID[skus[i].ID] = &skus[i]
	}

	balances := make([]Balance, 0, len(keys))
	for _, key := range keys {
		sku, ok := skusByID[key.SKUID]
		if !ok {
			// Transactions referencing a since-purged SKU still project;
			// fall back to a bare master so carton math stays intact.
			sku = &warehouse.SKU{ID: key.SKUID, UnitsPerCarton: 1}
		}
		balance := p.resolveBalance(key, sku, fold(groups[key]), cutoff)
		if balance.CurrentCartons == 0 && !includeZero {
			continue
		}
		balances = append(balances, balance)
	}

	sort.Slice(balances, func(i, j int) bool {
		if balances[i].SKUCode != balances[j].SKUCode {
			return balances[i].SKUCode < balances[j].SKUCode
		}
		if balances[i].BatchLot != balances[j].BatchLot {
			return balances[i].BatchLot < balances[j].BatchLot
		}
		return balances[i].WarehouseID < balances[j].WarehouseID
	})

	return balances, nil
}
