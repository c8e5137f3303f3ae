package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// UnitRepository provides in-memory units of measure
type UnitRepository struct {
	mu          sync.RWMutex
	units       map[string]entities.UnitOfMeasure
	conversions map[string]entities.UnitConversion
}

// NewUnitRepository creates a unit repository seeded with nothing
func NewUnitRepository() *UnitRepository {
	return &UnitRepository{
		units:       make(map[string]entities.UnitOfMeasure),
		conversions: make(map[string]entities.UnitConversion),
	}
}

// StandardUnits are the units every scenario can rely on
func StandardUnits() []entities.UnitOfMeasure {
	return []entities.UnitOfMeasure{
		{Code: "pcs", Name: "Pieces", Category: "count", FactorToBase: decimal.NewFromInt(1)},
		{Code: "ea", Name: "Each", Category: "count", FactorToBase: decimal.NewFromInt(1)},
		{Code: "doz", Name: "Dozen", Category: "count", FactorToBase: decimal.NewFromInt(12)},
		{Code: "kg", Name: "Kilogram", Category: "mass", FactorToBase: decimal.NewFromInt(1)},
		{Code: "g", Name: "Gram", Category: "mass", FactorToBase: decimal.RequireFromString("0.001")},
		{Code: "m", Name: "Metre", Category: "length", FactorToBase: decimal.NewFromInt(1)},
		{Code: "cm", Name: "Centimetre", Category: "length", FactorToBase: decimal.RequireFromString("0.01")},
		{Code: "mm", Name: "Millimetre", Category: "length", FactorToBase: decimal.RequireFromString("0.001")},
		{Code: "l", Name: "Litre", Category: "volume", FactorToBase: decimal.NewFromInt(1)},
		{Code: "ml", Name: "Millilitre", Category: "volume", FactorToBase: decimal.RequireFromString("0.001")},
	}
}

// NewStandardUnitRepository creates a unit repository holding StandardUnits
func NewStandardUnitRepository() *UnitRepository {
	r := NewUnitRepository()
	for _, u := range StandardUnits() {
		r.AddUnit(u)
	}
	return r
}

// Verify interface compliance
var _ repositories.UnitRepository = (*UnitRepository)(nil)

func conversionKey(productID, from, to string) string {
	return productID + "|" + from + "|" + to
}

// AddUnit registers a unit of measure
func (r *UnitRepository) AddUnit(unit entities.UnitOfMeasure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[unit.Code] = unit
}

// AddConversion registers a product-specific conversion
func (r *UnitRepository) AddConversion(conv entities.UnitConversion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversions[conversionKey(conv.ProductID, conv.FromUnit, conv.ToUnit)] = conv
}

// GetUnit returns a unit or nil when unknown
func (r *UnitRepository) GetUnit(_ context.Context, code string) (*entities.UnitOfMeasure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[code]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetProductConversion returns a product override or nil
func (r *UnitRepository) GetProductConversion(_ context.Context, productID, fromUnit, toUnit string) (*entities.UnitConversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversions[conversionKey(productID, fromUnit, toUnit)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
