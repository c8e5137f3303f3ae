package repositories

import (
	"context"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// ProductRepository provides access to product master data
type ProductRepository interface {
	// GetProduct returns *entities.ProductNotFoundError for unknown ids
	GetProduct(ctx context.Context, id string) (*entities.Product, error)
	ListProducts(ctx context.Context) ([]*entities.Product, error)
	SaveProduct(ctx context.Context, product *entities.Product) error
}
