package entities

import "github.com/shopspring/decimal"

// UnitOfMeasure is a unit within a dimension; FactorToBase converts one unit
// into the dimension's base unit (1 g = 0.001 kg)
type UnitOfMeasure struct {
	Code         string
	Name         string
	Category     string
	FactorToBase decimal.Decimal
}

// UnitConversion is a product-specific override (1 box of product X = 12 pcs)
type UnitConversion struct {
	ProductID string
	FromUnit  string
	ToUnit    string
	Factor    decimal.Decimal
}
