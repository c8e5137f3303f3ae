package repositories

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	// GetBOM returns *entities.BOMNotFoundError for unknown ids
	GetBOM(ctx context.Context, id string) (*entities.BillOfMaterials, error)
	// GetLines returns the lines of a BOM ordered by sequence
	GetLines(ctx context.Context, bomID string) ([]*entities.BOMLine, error)
	// GetActiveDefaultBOM returns nil without error when the product has no
	// explodable BOM at the given instant
	GetActiveDefaultBOM(ctx context.Context, productID string, at time.Time) (*entities.BillOfMaterials, error)
	ListBOMs(ctx context.Context) ([]*entities.BillOfMaterials, error)

	SaveBOM(ctx context.Context, bom *entities.BillOfMaterials) error
	SaveLine(ctx context.Context, line *entities.BOMLine) error

	// Activate and SetDefault return entities.ErrDuplicateDefaultBOM when the
	// product would end up with two active default BOMs
	Activate(ctx context.Context, bomID string) error
	SetDefault(ctx context.Context, bomID string) error
}
