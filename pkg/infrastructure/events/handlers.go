package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultInvalidationTimeout bounds one cache invalidation
const DefaultInvalidationTimeout = 5 * time.Second

// Invalidator drops cached explosions touching a BOM, or reaching a product
// through a phantom line
type Invalidator interface {
	Invalidate(ctx context.Context, bomID string) error
	InvalidateProduct(ctx context.Context, productID string) error
}

// CacheInvalidationHandler invalidates the explosion cache on BOM changes
type CacheInvalidationHandler struct {
	cache   Invalidator
	timeout time.Duration
}

// NewCacheInvalidationHandler creates a handler whose invalidations each run
// under timeout, or DefaultInvalidationTimeout when it is not positive
func NewCacheInvalidationHandler(cache Invalidator, timeout time.Duration) *CacheInvalidationHandler {
	if timeout <= 0 {
		timeout = DefaultInvalidationTimeout
	}
	return &CacheInvalidationHandler{cache: cache, timeout: timeout}
}

func (h *CacheInvalidationHandler) Handle(event Event) error {
	changed, ok := event.Data().(BOMChanged)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx, changed.BOMID); err != nil {
		return err
	}
	// a header change can swap the product's default BOM under every parent
	// that reaches the product through a phantom line
	if changed.ProductID != "" {
		return h.cache.InvalidateProduct(ctx, changed.ProductID)
	}
	return nil
}

func (h *CacheInvalidationHandler) CanHandle(eventType string) bool {
	return eventType == BOMChangedEvent
}

// BOMChangeSource is a BOM repository that reports structural changes;
// productID is empty when only lines changed
type BOMChangeSource interface {
	OnChange(hook func(bomID, productID string))
}

// ProductChangeSource is a demand or stock source that reports changes
type ProductChangeSource interface {
	OnChange(hook func(productID, reason string))
}

// ConnectBOMChanges publishes a bom.changed event for every BOM mutation.
// Publish failures are logged; the mutation itself has already committed.
func ConnectBOMChanges(store EventStore, source BOMChangeSource, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	source.OnChange(func(bomID, productID string) {
		if err := store.AppendEvent(bomID, NewBOMChangedEvent(bomID, productID)); err != nil {
			logger.Warn("failed to publish bom change",
				zap.String("bom_id", bomID),
				zap.String("product_id", productID),
				zap.Error(err))
		}
	})
}

// ConnectProductChanges publishes demand and stock changes stamped with now(),
// or time.Now when now is nil
func ConnectProductChanges(store EventStore, source ProductChangeSource, now func() time.Time, logger *zap.Logger) {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	source.OnChange(func(productID, reason string) {
		if err := store.AppendEvent(productID, NewProductChangedEvent(productID, reason, now())); err != nil {
			logger.Warn("failed to publish product change",
				zap.String("product_id", productID),
				zap.String("reason", reason),
				zap.Error(err))
		}
	})
}

// SubscribeCacheInvalidation wires BOM change events to the explosion cache
func SubscribeCacheInvalidation(store EventStore, cache Invalidator, timeout time.Duration) (*CacheInvalidationHandler, error) {
	handler := NewCacheInvalidationHandler(cache, timeout)
	if err := store.Subscribe([]string{BOMChangedEvent}, handler); err != nil {
		return nil, fmt.Errorf("failed to subscribe cache invalidation: %w", err)
	}
	return handler, nil
}
