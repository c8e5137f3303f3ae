package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LotSizeRule represents the lot sizing rule for a product
type LotSizeRule int

const (
	LotForLot LotSizeRule = iota
	MinimumQty
	StandardPack
)

// String method for LotSizeRule enum
func (l LotSizeRule) String() string {
	switch l {
	case LotForLot:
		return "LotForLot"
	case MinimumQty:
		return "MinimumQty"
	case StandardPack:
		return "StandardPack"
	default:
		return "Unknown"
	}
}

// ParseLotSizeRule parses the textual form used in CSV and config files
func ParseLotSizeRule(s string) (LotSizeRule, error) {
	switch strings.TrimSpace(s) {
	case "", "LotForLot":
		return LotForLot, nil
	case "MinimumQty":
		return MinimumQty, nil
	case "StandardPack":
		return StandardPack, nil
	default:
		return LotForLot, fmt.Errorf("invalid lot size rule: %s", s)
	}
}

// MakeOrBuy filters products by how they are replenished
type MakeOrBuy string

const (
	MakeOrBuyAll  MakeOrBuy = "all"
	MakeOrBuyMake MakeOrBuy = "make"
	MakeOrBuyBuy  MakeOrBuy = "buy"
)

// Product is the planning view of the product master
type Product struct {
	ID                 string
	SKU                string
	Name               string
	CategoryID         string
	UnitCode           string
	CanBeManufactured  bool
	CanBePurchased     bool
	LeadTimeDays       int // purchase lead time
	SafetyStock        decimal.Decimal
	ReorderPoint       decimal.Decimal
	ReorderQuantity    decimal.Decimal
	LotSizeRule        LotSizeRule
	MinOrderQty        decimal.Decimal // pack size for StandardPack
	DefaultWarehouseID string
	IsActive           bool
}

// NewProduct creates a validated, active Product
func NewProduct(id, name, unitCode string, leadTimeDays int) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("product name cannot be empty")
	}
	if unitCode == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}

	return &Product{
		ID:             id,
		SKU:            id,
		Name:           name,
		UnitCode:       unitCode,
		CanBePurchased: true,
		LeadTimeDays:   leadTimeDays,
		IsActive:       true,
	}, nil
}

// Validate checks the replenishment settings of the product
func (p *Product) Validate() error {
	if p.SafetyStock.IsNegative() {
		return fmt.Errorf("safety stock cannot be negative, got %s", p.SafetyStock)
	}
	if p.ReorderPoint.IsNegative() {
		return fmt.Errorf("reorder point cannot be negative, got %s", p.ReorderPoint)
	}
	if p.MinOrderQty.IsNegative() {
		return fmt.Errorf("minimum order quantity cannot be negative, got %s", p.MinOrderQty)
	}
	if p.LotSizeRule != LotForLot && !p.MinOrderQty.IsPositive() {
		return fmt.Errorf("lot sizing rule %s requires non-zero minimum order quantity", p.LotSizeRule)
	}
	return nil
}

// MatchesMakeOrBuy reports whether the product passes a make/buy filter
func (p *Product) MatchesMakeOrBuy(filter MakeOrBuy) bool {
	switch filter {
	case MakeOrBuyMake:
		return p.CanBeManufactured
	case MakeOrBuyBuy:
		return !p.CanBeManufactured
	default:
		return true
	}
}
