package explosion

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// Service answers explosion requests through the cache
type Service struct {
	engine *Engine
	cache  *Cache
	logger *zap.Logger
}

// NewService creates a service; a nil cache disables memoization
func NewService(engine *Engine, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, cache: cache, logger: logger}
}

// Explode returns the explosion for req, computing it at unit quantity on a
// cache miss and scaling to the requested quantity
func (s *Service) Explode(ctx context.Context, req Request) (*entities.ExplosionResult, error) {
	req = s.engine.Normalize(req)
	if s.cache == nil || !req.Quantity.IsPositive() {
		return s.engine.Explode(ctx, req)
	}

	key := KeyFor(req)
	if result, ok := s.cache.Get(ctx, key, req.Quantity); ok {
		return result, nil
	}

	unitReq := req
	unitReq.Quantity = decimal.NewFromInt(1)
	unit, err := s.engine.Explode(ctx, unitReq)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, key, unit)
	if req.ExplodeAllLevels && req.IncludeOptional {
		s.cache.PutStructure(ctx, unit)
	}
	return ScaleQuantities(unit, req.Quantity), nil
}

// IsMultiLevel reports whether the full explosion of bomID reaches below level 0
func (s *Service) IsMultiLevel(ctx context.Context, bomID string) (bool, error) {
	if s.cache != nil {
		if multi, ok := s.cache.Structure(ctx, bomID); ok {
			return multi, nil
		}
	}
	result, err := s.engine.Explode(ctx, Request{
		BOMID:            bomID,
		Quantity:         decimal.NewFromInt(1),
		IncludeOptional:  true,
		ExplodeAllLevels: true,
		AsTree:           true,
	})
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		s.cache.PutStructure(ctx, result)
	}
	return result.IsMultiLevel(), nil
}

// DefaultShape picks flat+aggregated output for single-level BOMs and a tree
// for multi-level ones
func (s *Service) DefaultShape(ctx context.Context, bomID string) (asTree, aggregate bool, err error) {
	multi, err := s.IsMultiLevel(ctx, bomID)
	if err != nil {
		return false, false, err
	}
	return multi, !multi, nil
}

// Invalidate clears cached explosions touching bomID
func (s *Service) Invalidate(ctx context.Context, bomID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, bomID)
}

// InvalidateProduct clears cached explosions that reached productID through
// a phantom line
func (s *Service) InvalidateProduct(ctx context.Context, productID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateProduct(ctx, productID)
}
