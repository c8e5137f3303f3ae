package explosion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// DefaultMaxDepth bounds recursion when a request leaves MaxDepth unset
const DefaultMaxDepth = 10

// Converter converts a product quantity between units
type Converter interface {
	Convert(ctx context.Context, productID string, qty decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error)
}

// Request describes one explosion; Quantity is expressed in the BOM's unit
type Request struct {
	BOMID              string
	Quantity           decimal.Decimal
	MaxDepth           int
	IncludeOptional    bool
	ExplodeAllLevels   bool
	AggregateByProduct bool
	AsTree             bool
}

// EngineConfig holds configuration for the explosion engine
type EngineConfig struct {
	DefaultMaxDepth int
	// Clock decides BOM effectivity; defaults to time.Now
	Clock func() time.Time
}

// Engine expands BOMs into component requirements
type Engine struct {
	config    EngineConfig
	boms      repositories.BOMRepository
	products  repositories.ProductRepository
	converter Converter
	logger    *zap.Logger
}

// NewEngine creates an engine with default configuration
func NewEngine(
	boms repositories.BOMRepository,
	products repositories.ProductRepository,
	converter Converter,
	logger *zap.Logger,
) *Engine {
	return NewEngineWithConfig(EngineConfig{DefaultMaxDepth: DefaultMaxDepth}, boms, products, converter, logger)
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(
	config EngineConfig,
	boms repositories.BOMRepository,
	products repositories.ProductRepository,
	converter Converter,
	logger *zap.Logger,
) *Engine {
	if config.DefaultMaxDepth <= 0 {
		config.DefaultMaxDepth = DefaultMaxDepth
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:    config,
		boms:      boms,
		products:  products,
		converter: converter,
		logger:    logger,
	}
}

// Normalize fills request defaults
func (e *Engine) Normalize(req Request) Request {
	if req.MaxDepth <= 0 {
		req.MaxDepth = e.config.DefaultMaxDepth
	}
	return req
}

// Explode expands the BOM depth-first and shapes the result
func (e *Engine) Explode(ctx context.Context, req Request) (*entities.ExplosionResult, error) {
	req = e.Normalize(req)
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("explosion quantity must be positive, got %s", req.Quantity)
	}

	root, err := e.loadBOM(ctx, req.BOMID)
	if err != nil {
		return nil, err
	}

	w := &walker{
		engine:   e,
		req:      req,
		at:       e.config.Clock(),
		visited:  map[string]bool{root.ID: true},
		order:    []string{root.ID},
		phantoms: make(map[string]bool),
	}

	tree, err := w.expand(ctx, root, req.Quantity, 0, []string{root.ID})
	if err != nil {
		return nil, err
	}

	result := &entities.ExplosionResult{
		BOMID:       root.ID,
		ProductID:   root.ProductID,
		Quantity:    req.Quantity,
		MaxLevel:    w.maxLevel,
		Truncated:   w.truncated,
		Warnings:    w.warnings,
		VisitedBOMs: w.order,

		PhantomProducts: w.phantomOrder,
	}
	Shape(result, tree, req.AsTree, req.AggregateByProduct)

	if w.truncated {
		e.logger.Warn("bom explosion truncated",
			zap.String("bom_id", root.ID),
			zap.Int("max_depth", req.MaxDepth))
	}
	return result, nil
}

func (e *Engine) loadBOM(ctx context.Context, id string) (*entities.BillOfMaterials, error) {
	bom, err := e.boms.GetBOM(ctx, id)
	if err != nil {
		var notFound *entities.BOMNotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load bom %s: %w", id, err)
	}
	if bom == nil {
		return nil, &entities.BOMNotFoundError{BOMID: id}
	}
	return bom, nil
}

// walker carries per-invocation traversal state
type walker struct {
	engine    *Engine
	req       Request
	at        time.Time
	visited   map[string]bool
	order     []string
	maxLevel  int
	truncated bool
	warnings  []string

	phantoms     map[string]bool
	phantomOrder []string
}

func (w *walker) visit(bomID string) {
	if !w.visited[bomID] {
		w.visited[bomID] = true
		w.order = append(w.order, bomID)
	}
}

// reach records a phantom component; the result depends on which BOM, if
// any, is its default
func (w *walker) reach(productID string) {
	if !w.phantoms[productID] {
		w.phantoms[productID] = true
		w.phantomOrder = append(w.phantomOrder, productID)
	}
}

// expand produces the nodes for the lines of bom; incoming is in bom's unit
func (w *walker) expand(
	ctx context.Context,
	bom *entities.BillOfMaterials,
	incoming decimal.Decimal,
	level int,
	ancestors []string,
) ([]*entities.ExplosionNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, err := w.engine.boms.GetLines(ctx, bom.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lines for bom %s: %w", bom.ID, err)
	}

	nodes := make([]*entities.ExplosionNode, 0, len(lines))
	for _, line := range lines {
		if line.IsOptional && !w.req.IncludeOptional {
			continue
		}

		component, err := w.engine.products.GetProduct(ctx, line.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get component %s of bom %s: %w", line.ComponentID, bom.ID, err)
		}

		required := line.RequiredQuantity(incoming, bom.BaseOrOne())
		qty, err := w.engine.converter.Convert(ctx, component.ID, required, line.UnitCode, component.UnitCode)
		if err != nil {
			return nil, fmt.Errorf("bom %s line %s: %w", bom.ID, line.ID, err)
		}

		node := &entities.ExplosionNode{
			ProductID:   component.ID,
			BOMLineID:   line.ID,
			SourceBOMID: bom.ID,
			Level:       level,
			Quantity:    qty,
			UnitCode:    component.UnitCode,
			IsOptional:  line.IsOptional,
			IsPhantom:   line.IsPhantom,
		}
		if level > w.maxLevel {
			w.maxLevel = level
		}
		nodes = append(nodes, node)

		if !w.req.ExplodeAllLevels || !line.IsPhantom {
			continue
		}
		w.reach(component.ID)

		sub, err := w.engine.boms.GetActiveDefaultBOM(ctx, component.ID, w.at)
		if err != nil {
			return nil, fmt.Errorf("failed to get default bom for %s: %w", component.ID, err)
		}
		if sub == nil {
			continue
		}
		if contains(ancestors, sub.ID) {
			return nil, &entities.CyclicBOMError{Path: extend(ancestors, sub.ID)}
		}
		w.visit(sub.ID)

		if level+1 >= w.req.MaxDepth {
			cycle, err := w.findCycleBelow(ctx, sub, extend(ancestors, sub.ID), make(map[string]bool))
			if err != nil {
				return nil, err
			}
			if cycle != nil {
				return nil, &entities.CyclicBOMError{Path: cycle}
			}
			w.truncated = true
			w.warnings = append(w.warnings, (&entities.MaxDepthExceededError{BOMID: sub.ID, MaxDepth: w.req.MaxDepth}).Error())
			continue
		}

		subQty, err := w.engine.converter.Convert(ctx, component.ID, qty, component.UnitCode, sub.UnitCode)
		if err != nil {
			return nil, fmt.Errorf("bom %s phantom %s: %w", bom.ID, component.ID, err)
		}
		children, err := w.expand(ctx, sub, subQty, level+1, extend(ancestors, sub.ID))
		if err != nil {
			return nil, err
		}
		node.Children = children
	}
	return nodes, nil
}

// findCycleBelow walks the phantom structure below a depth cut without computing
// quantities; cleared holds BOMs already proven cycle-free
func (w *walker) findCycleBelow(
	ctx context.Context,
	bom *entities.BillOfMaterials,
	path []string,
	cleared map[string]bool,
) ([]string, error) {
	lines, err := w.engine.boms.GetLines(ctx, bom.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lines for bom %s: %w", bom.ID, err)
	}
	for _, line := range lines {
		if !line.IsPhantom || (line.IsOptional && !w.req.IncludeOptional) {
			continue
		}
		w.reach(line.ComponentID)
		sub, err := w.engine.boms.GetActiveDefaultBOM(ctx, line.ComponentID, w.at)
		if err != nil {
			return nil, fmt.Errorf("failed to get default bom for %s: %w", line.ComponentID, err)
		}
		if sub == nil || cleared[sub.ID] {
			continue
		}
		if contains(path, sub.ID) {
			return extend(path, sub.ID), nil
		}
		w.visit(sub.ID)
		cycle, err := w.findCycleBelow(ctx, sub, extend(path, sub.ID), cleared)
		if err != nil || cycle != nil {
			return cycle, err
		}
	}
	cleared[bom.ID] = true
	return nil, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func extend(path []string, id string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, id)
}
