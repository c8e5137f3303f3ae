package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StockSource exposes stock levels; the engine only reads them
type StockSource interface {
	GetOnHand(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error)
	// GetOnOrder returns the cumulative open purchase quantity due on or before byDate
	GetOnOrder(ctx context.Context, productID, warehouseID string, byDate time.Time) (decimal.Decimal, error)
	GetWIP(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error)
}
