package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// UnitConverter converts quantities between units of measure
type UnitConverter struct {
	units repositories.UnitRepository
}

// NewUnitConverter creates a converter over the given unit master data
func NewUnitConverter(units repositories.UnitRepository) *UnitConverter {
	return &UnitConverter{units: units}
}

// Convert expresses qty in toUnit. Product overrides are tried first in both
// directions, then normalization through the shared base unit of a category.
func (c *UnitConverter) Convert(ctx context.Context, productID string, qty decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	if fromUnit == toUnit || fromUnit == "" || toUnit == "" {
		return qty, nil
	}

	if productID != "" {
		override, err := c.units.GetProductConversion(ctx, productID, fromUnit, toUnit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load conversion for product %s: %w", productID, err)
		}
		if override != nil && override.Factor.IsPositive() {
			return qty.Mul(override.Factor), nil
		}
		reverse, err := c.units.GetProductConversion(ctx, productID, toUnit, fromUnit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load conversion for product %s: %w", productID, err)
		}
		if reverse != nil && reverse.Factor.IsPositive() {
			return qty.Div(reverse.Factor), nil
		}
	}

	from, err := c.units.GetUnit(ctx, fromUnit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load unit %s: %w", fromUnit, err)
	}
	to, err := c.units.GetUnit(ctx, toUnit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load unit %s: %w", toUnit, err)
	}
	if from == nil || to == nil || from.Category != to.Category ||
		!from.FactorToBase.IsPositive() || !to.FactorToBase.IsPositive() {
		return decimal.Zero, &entities.UnitConversionError{ProductID: productID, FromUnit: fromUnit, ToUnit: toUnit}
	}

	return qty.Mul(from.FactorToBase).Div(to.FactorToBase), nil
}
