package repositories

import (
	"context"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// UnitRepository provides unit of measure master data
type UnitRepository interface {
	// GetUnit returns nil without error for unknown codes
	GetUnit(ctx context.Context, code string) (*entities.UnitOfMeasure, error)
	// GetProductConversion returns nil without error when no override exists
	GetProductConversion(ctx context.Context, productID, fromUnit, toUnit string) (*entities.UnitConversion, error)
}
