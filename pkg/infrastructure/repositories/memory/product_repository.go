package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// ProductRepository provides in-memory product storage
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]entities.Product
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(expectedProducts int) *ProductRepository {
	return &ProductRepository{
		products: make(map[string]entities.Product, expectedProducts),
	}
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

// LoadProducts loads products into the repository
func (r *ProductRepository) LoadProducts(products []*entities.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.products[p.ID] = *p
	}
	return nil
}

// GetProduct returns product master data
func (r *ProductRepository) GetProduct(_ context.Context, id string) (*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, &entities.ProductNotFoundError{ProductID: id}
	}
	return &p, nil
}

// ListProducts returns all products ordered by id
func (r *ProductRepository) ListProducts(_ context.Context) ([]*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	products := make([]*entities.Product, 0, len(r.products))
	for id := range r.products {
		p := r.products[id]
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// SaveProduct inserts or replaces a product
func (r *ProductRepository) SaveProduct(_ context.Context, product *entities.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = *product
	return nil
}
