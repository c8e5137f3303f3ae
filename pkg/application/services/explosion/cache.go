package explosion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const (
	DefaultEntryTTL     = 3600 * time.Second
	DefaultStructureTTL = time.Hour

	// scaledPrecision absorbs repeating decimals from base-quantity division
	// once a unit result is multiplied back up
	scaledPrecision = 8
)

// Key identifies a cached explosion; quantity is never part of it
type Key struct {
	BOMID              string
	IncludeOptional    bool
	AggregateByProduct bool
	AsTree             bool
	ExplodeAllLevels   bool
	MaxDepth           int
}

// KeyFor derives the cache key of a normalized request
func KeyFor(req Request) Key {
	return Key{
		BOMID:              req.BOMID,
		IncludeOptional:    req.IncludeOptional,
		AggregateByProduct: req.AggregateByProduct,
		AsTree:             req.AsTree,
		ExplodeAllLevels:   req.ExplodeAllLevels,
		MaxDepth:           req.MaxDepth,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("bom:%s:opt=%t:agg=%t:tree=%t:all=%t:depth=%d",
		k.BOMID, k.IncludeOptional, k.AggregateByProduct, k.AsTree, k.ExplodeAllLevels, k.MaxDepth)
}

// BOMDependency is the index token of entries whose explosion read bomID
func BOMDependency(bomID string) string { return "bom:" + bomID }

// ProductDependency is the index token of entries that reached productID
// through a phantom line and so depend on its default BOM
func ProductDependency(productID string) string { return "product:" + productID }

// Dependencies lists the index tokens of a result computed from rootBOMID
func Dependencies(rootBOMID string, result *entities.ExplosionResult) []string {
	deps := []string{BOMDependency(rootBOMID)}
	for _, id := range result.VisitedBOMs {
		if id != rootBOMID {
			deps = append(deps, BOMDependency(id))
		}
	}
	for _, id := range result.PhantomProducts {
		deps = append(deps, ProductDependency(id))
	}
	return deps
}

// Store is the backing storage of the explosion cache. Implementations must
// be safe for concurrent use; the last writer wins.
type Store interface {
	Get(ctx context.Context, key string) (*entities.ExplosionResult, bool, error)
	// Set stores result and indexes it under every token in deps
	Set(ctx context.Context, key string, result *entities.ExplosionResult, deps []string, ttl time.Duration) error
	// DeleteDependents removes every entry and structure fact indexed under dep
	DeleteDependents(ctx context.Context, dep string) error

	GetStructure(ctx context.Context, bomID string) (multiLevel bool, found bool, err error)
	// SetStructure stores the fact for bomID and indexes it under deps
	SetStructure(ctx context.Context, bomID string, multiLevel bool, deps []string, ttl time.Duration) error
}

// CacheConfig holds cache TTLs
type CacheConfig struct {
	EntryTTL     time.Duration
	StructureTTL time.Duration
}

// Cache memoizes unit-quantity explosions and scales them on read
type Cache struct {
	config CacheConfig
	store  Store
	logger *zap.Logger
}

// NewCache creates a cache over store
func NewCache(store Store, config CacheConfig, logger *zap.Logger) *Cache {
	if config.EntryTTL <= 0 {
		config.EntryTTL = DefaultEntryTTL
	}
	if config.StructureTTL <= 0 {
		config.StructureTTL = DefaultStructureTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{config: config, store: store, logger: logger}
}

// Get returns the cached result scaled to quantity. Store errors are misses.
func (c *Cache) Get(ctx context.Context, key Key, quantity decimal.Decimal) (*entities.ExplosionResult, bool) {
	result, ok, err := c.store.Get(ctx, key.String())
	if err != nil {
		c.logger.Warn("explosion cache read failed", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	if !ok || result == nil {
		return nil, false
	}
	return ScaleQuantities(result, quantity), true
}

// Put stores a unit-quantity result under key
func (c *Cache) Put(ctx context.Context, key Key, unitResult *entities.ExplosionResult) {
	deps := Dependencies(key.BOMID, unitResult)
	if err := c.store.Set(ctx, key.String(), unitResult, deps, c.config.EntryTTL); err != nil {
		c.logger.Warn("explosion cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// Invalidate drops every entry and structure fact keyed on bomID or whose
// explosion visited it
func (c *Cache) Invalidate(ctx context.Context, bomID string) error {
	if err := c.store.DeleteDependents(ctx, BOMDependency(bomID)); err != nil {
		return fmt.Errorf("failed to invalidate explosions for bom %s: %w", bomID, err)
	}
	c.logger.Debug("explosion cache invalidated", zap.String("bom_id", bomID))
	return nil
}

// InvalidateProduct drops everything that reached productID through a
// phantom line. Called when a BOM of productID changes its header, since
// that can change which BOM is the product's active default.
func (c *Cache) InvalidateProduct(ctx context.Context, productID string) error {
	if err := c.store.DeleteDependents(ctx, ProductDependency(productID)); err != nil {
		return fmt.Errorf("failed to invalidate explosions for product %s: %w", productID, err)
	}
	c.logger.Debug("explosion cache invalidated", zap.String("product_id", productID))
	return nil
}

// Structure returns the cached single/multi-level fact for bomID
func (c *Cache) Structure(ctx context.Context, bomID string) (bool, bool) {
	multi, ok, err := c.store.GetStructure(ctx, bomID)
	if err != nil {
		c.logger.Warn("structure cache read failed", zap.String("bom_id", bomID), zap.Error(err))
		return false, false
	}
	return multi, ok
}

// PutStructure caches the single/multi-level fact of a full explosion,
// indexed like the explosion itself
func (c *Cache) PutStructure(ctx context.Context, full *entities.ExplosionResult) {
	deps := Dependencies(full.BOMID, full)
	if err := c.store.SetStructure(ctx, full.BOMID, full.IsMultiLevel(), deps, c.config.StructureTTL); err != nil {
		c.logger.Warn("structure cache write failed", zap.String("bom_id", full.BOMID), zap.Error(err))
	}
}

// ScaleQuantities multiplies every node, recursively, and every aggregate
// of a unit result by target
func ScaleQuantities(base *entities.ExplosionResult, target decimal.Decimal) *entities.ExplosionResult {
	scaled := base.Clone()
	scaled.Quantity = target
	if target.Equal(decimal.NewFromInt(1)) {
		return scaled
	}
	scaleNodes(scaled.Nodes, target)
	for i := range scaled.Totals {
		scaled.Totals[i].TotalQuantity = scaled.Totals[i].TotalQuantity.Mul(target).Round(scaledPrecision)
	}
	return scaled
}

func scaleNodes(nodes []*entities.ExplosionNode, target decimal.Decimal) {
	for _, n := range nodes {
		n.Quantity = n.Quantity.Mul(target).Round(scaledPrecision)
		scaleNodes(n.Children, target)
	}
}
