package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// Receipt is an open purchase quantity expected on a date
type Receipt struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	DueDate     time.Time
}

type stockKey struct {
	productID   string
	warehouseID string
}

// StockRepository provides in-memory stock levels. An empty warehouse id on
// a query sums every warehouse.
type StockRepository struct {
	mu       sync.RWMutex
	onHand   map[stockKey]decimal.Decimal
	wip      map[stockKey]decimal.Decimal
	receipts []Receipt
	onChange func(productID, reason string)
}

// NewStockRepository creates a new in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{
		onHand: make(map[stockKey]decimal.Decimal),
		wip:    make(map[stockKey]decimal.Decimal),
	}
}

// Verify interface compliance
var _ repositories.StockSource = (*StockRepository)(nil)

// OnChange registers a hook called after every stock mutation
func (r *StockRepository) OnChange(hook func(productID, reason string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = hook
}

func (r *StockRepository) notify(productID, reason string) {
	r.mu.RLock()
	hook := r.onChange
	r.mu.RUnlock()
	if hook != nil {
		hook(productID, reason)
	}
}

// SetOnHand replaces the on-hand quantity of a product in a warehouse
func (r *StockRepository) SetOnHand(productID, warehouseID string, qty decimal.Decimal) {
	r.mu.Lock()
	r.onHand[stockKey{productID, warehouseID}] = qty
	r.mu.Unlock()
	r.notify(productID, "stock")
}

// SetWIP replaces the work-in-progress quantity of a product in a warehouse
func (r *StockRepository) SetWIP(productID, warehouseID string, qty decimal.Decimal) {
	r.mu.Lock()
	r.wip[stockKey{productID, warehouseID}] = qty
	r.mu.Unlock()
	r.notify(productID, "wip")
}

// AddReceipt records an open purchase receipt
func (r *StockRepository) AddReceipt(receipt Receipt) {
	r.mu.Lock()
	receipt.DueDate = entities.DateOnly(receipt.DueDate)
	r.receipts = append(r.receipts, receipt)
	r.mu.Unlock()
	r.notify(receipt.ProductID, "receipt")
}

func (r *StockRepository) sum(levels map[stockKey]decimal.Decimal, productID, warehouseID string) decimal.Decimal {
	if warehouseID != "" {
		return levels[stockKey{productID, warehouseID}]
	}
	total := decimal.Zero
	for k, qty := range levels {
		if k.productID == productID {
			total = total.Add(qty)
		}
	}
	return total
}

// GetOnHand returns the on-hand quantity
func (r *StockRepository) GetOnHand(_ context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sum(r.onHand, productID, warehouseID), nil
}

// GetWIP returns the work-in-progress quantity
func (r *StockRepository) GetWIP(_ context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sum(r.wip, productID, warehouseID), nil
}

// GetOnOrder returns receipts due on or before byDate
func (r *StockRepository) GetOnOrder(_ context.Context, productID, warehouseID string, byDate time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := entities.DateOnly(byDate)
	total := decimal.Zero
	for _, rc := range r.receipts {
		if rc.ProductID != productID || (warehouseID != "" && rc.WarehouseID != warehouseID) {
			continue
		}
		if !rc.DueDate.After(cutoff) {
			total = total.Add(rc.Quantity)
		}
	}
	return total, nil
}
