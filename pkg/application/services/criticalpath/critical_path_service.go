package criticalpath

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

const (
	DefaultTopPaths    = 3
	DefaultWarehouseID = "MAIN"
)

// Config holds configuration for the critical path service
type Config struct {
	MaxDepth int
	// Clock decides BOM effectivity and stamps analyses; defaults to time.Now
	Clock func() time.Time
}

// Service ranks the cumulative lead-time paths through a product structure.
// Unlike an explosion it descends through every make item, not only phantoms.
type Service struct {
	config    Config
	products  repositories.ProductRepository
	boms      repositories.BOMRepository
	routings  repositories.RoutingRepository
	stock     repositories.StockSource
	converter explosion.Converter
	logger    *zap.Logger
}

// NewService creates a critical path service with default configuration
func NewService(
	products repositories.ProductRepository,
	boms repositories.BOMRepository,
	routings repositories.RoutingRepository,
	stock repositories.StockSource,
	converter explosion.Converter,
	logger *zap.Logger,
) *Service {
	return NewServiceWithConfig(Config{}, products, boms, routings, stock, converter, logger)
}

// NewServiceWithConfig creates a critical path service with custom configuration
func NewServiceWithConfig(
	config Config,
	products repositories.ProductRepository,
	boms repositories.BOMRepository,
	routings repositories.RoutingRepository,
	stock repositories.StockSource,
	converter explosion.Converter,
	logger *zap.Logger,
) *Service {
	if config.MaxDepth <= 0 {
		config.MaxDepth = explosion.DefaultMaxDepth
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:    config,
		products:  products,
		boms:      boms,
		routings:  routings,
		stock:     stock,
		converter: converter,
		logger:    logger,
	}
}

// Request describes one analysis
type Request struct {
	ProductID string
	// Quantity is in the product's unit; defaults to 1
	Quantity decimal.Decimal
	// WarehouseID is where stock is counted; defaults to the product's warehouse
	WarehouseID string
	TopN        int
}

// branch is the partial result for one subtree
type branch struct {
	paths []entities.CriticalPath
	count int
}

// analyzer carries per-request traversal state
type analyzer struct {
	svc       *Service
	at        time.Time
	warehouse string
	topN      int
}

// Analyze returns the top paths below req.ProductID ranked by effective lead
// time, then total lead time, then length
func (s *Service) Analyze(ctx context.Context, req Request) (*entities.CriticalPathAnalysis, error) {
	if req.Quantity.IsZero() {
		req.Quantity = decimal.NewFromInt(1)
	}
	if req.Quantity.IsNegative() {
		return nil, fmt.Errorf("quantity must be positive, got %s", req.Quantity)
	}
	if req.TopN <= 0 {
		req.TopN = DefaultTopPaths
	}

	root, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	warehouse := req.WarehouseID
	if warehouse == "" {
		warehouse = root.DefaultWarehouseID
	}
	if warehouse == "" {
		warehouse = DefaultWarehouseID
	}

	a := &analyzer{svc: s, at: s.config.Clock(), warehouse: warehouse, topN: req.TopN}
	b, err := a.visit(ctx, root, req.Quantity, 0, false, []string{root.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze critical path for %s: %w", req.ProductID, err)
	}

	analysis := &entities.CriticalPathAnalysis{
		ProductID:    root.ID,
		WarehouseID:  warehouse,
		Quantity:     req.Quantity,
		AnalysisDate: a.at,
		TopPaths:     b.paths,
		TotalPaths:   b.count,
	}
	if len(b.paths) > 0 {
		cp := b.paths[0]
		analysis.CriticalPath = &cp
	}

	s.logger.Debug("critical path analyzed",
		zap.String("product_id", root.ID),
		zap.Int("paths", b.count))
	return analysis, nil
}

func (a *analyzer) visit(
	ctx context.Context,
	product *entities.Product,
	qty decimal.Decimal,
	level int,
	phantom bool,
	ancestors []string,
) (branch, error) {
	if err := ctx.Err(); err != nil {
		return branch{}, err
	}

	bom, err := a.defaultBOM(ctx, product, phantom)
	if err != nil {
		return branch{}, err
	}

	node := entities.CriticalPathNode{
		ProductID:   product.ID,
		Name:        product.Name,
		Level:       level,
		IsPhantom:   phantom,
		RequiredQty: qty,
		OnHand:      decimal.Zero,
		UnitCode:    product.UnitCode,
	}
	covered := false
	if !phantom {
		node.LeadTimeDays, err = a.leadTime(ctx, product, bom != nil)
		if err != nil {
			return branch{}, err
		}
		node.OnHand, err = a.svc.stock.GetOnHand(ctx, product.ID, a.warehouse)
		if err != nil {
			return branch{}, fmt.Errorf("failed to get on hand for %s: %w", product.ID, err)
		}
		node.EffectiveLeadTime, covered = effectiveLeadTime(node.LeadTimeDays, node.OnHand, qty)
	}

	if bom == nil || level+1 >= a.svc.config.MaxDepth {
		return leaf(node), nil
	}

	lines, err := a.svc.boms.GetLines(ctx, bom.ID)
	if err != nil {
		return branch{}, fmt.Errorf("failed to get lines for bom %s: %w", bom.ID, err)
	}
	// children are sized in the BOM's unit
	bomQty, err := a.svc.converter.Convert(ctx, product.ID, qty, product.UnitCode, bom.UnitCode)
	if err != nil {
		return branch{}, fmt.Errorf("bom %s: %w", bom.ID, err)
	}

	var merged branch
	for _, line := range lines {
		if line.IsOptional {
			continue
		}
		component, err := a.svc.products.GetProduct(ctx, line.ComponentID)
		if err != nil {
			return branch{}, fmt.Errorf("failed to get component %s of bom %s: %w", line.ComponentID, bom.ID, err)
		}
		if containsID(ancestors, component.ID) {
			return branch{}, &entities.CyclicBOMError{Path: extend(ancestors, component.ID)}
		}
		required := line.RequiredQuantity(bomQty, bom.BaseOrOne())
		childQty, err := a.svc.converter.Convert(ctx, component.ID, required, line.UnitCode, component.UnitCode)
		if err != nil {
			return branch{}, fmt.Errorf("bom %s line %s: %w", bom.ID, line.ID, err)
		}

		child, err := a.visit(ctx, component, childQty, level+1, line.IsPhantom, extend(ancestors, component.ID))
		if err != nil {
			return branch{}, err
		}
		merged.count += child.count
		merged.paths = append(merged.paths, child.paths...)
	}

	if len(merged.paths) == 0 {
		return leaf(node), nil
	}

	// each child kept only its own top N; a prefix adds the same days to
	// every path below it, so nothing outside those can rank higher here
	out := make([]entities.CriticalPath, 0, len(merged.paths))
	for _, childPath := range merged.paths {
		effective := node.EffectiveLeadTime + childPath.EffectiveLeadTime
		if covered {
			// nothing below a fully stocked item has to be procured
			effective = 0
		}
		head := node
		head.CumulativeDays = effective

		bottleneck := childPath.BottleneckID
		if node.LeadTimeDays >= leadTimeOf(childPath.Nodes, bottleneck) {
			bottleneck = product.ID
		}

		out = append(out, entities.CriticalPath{
			TotalLeadTime:     node.LeadTimeDays + childPath.TotalLeadTime,
			EffectiveLeadTime: effective,
			PathLength:        1 + childPath.PathLength,
			Path:              append([]string{product.ID}, childPath.Path...),
			Nodes:             append([]entities.CriticalPathNode{head}, childPath.Nodes...),
			BottleneckID:      bottleneck,
		})
	}
	rank(out)
	if len(out) > a.topN {
		out = out[:a.topN]
	}
	return branch{paths: out, count: merged.count}, nil
}

func leaf(node entities.CriticalPathNode) branch {
	node.CumulativeDays = node.EffectiveLeadTime
	return branch{
		paths: []entities.CriticalPath{{
			TotalLeadTime:     node.LeadTimeDays,
			EffectiveLeadTime: node.EffectiveLeadTime,
			PathLength:        1,
			Path:              []string{node.ProductID},
			Nodes:             []entities.CriticalPathNode{node},
			BottleneckID:      node.ProductID,
		}},
		count: 1,
	}
}

func (a *analyzer) defaultBOM(ctx context.Context, product *entities.Product, phantom bool) (*entities.BillOfMaterials, error) {
	if !phantom && !product.CanBeManufactured {
		return nil, nil
	}
	bom, err := a.svc.boms.GetActiveDefaultBOM(ctx, product.ID, a.at)
	if err != nil {
		return nil, fmt.Errorf("failed to get default bom for %s: %w", product.ID, err)
	}
	return bom, nil
}

// leadTime uses the routing lead time for make items and the purchase lead
// time otherwise, matching the planner
func (a *analyzer) leadTime(ctx context.Context, product *entities.Product, isMake bool) (int, error) {
	if !isMake {
		return product.LeadTimeDays, nil
	}
	routing, err := a.svc.routings.GetRouting(ctx, product.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to get routing for %s: %w", product.ID, err)
	}
	if routing == nil {
		return product.LeadTimeDays, nil
	}
	return routing.LeadTimeDays, nil
}

// effectiveLeadTime scales leadTime by the share of required not covered by
// onHand, truncating to whole days
func effectiveLeadTime(leadTime int, onHand, required decimal.Decimal) (int, bool) {
	if !required.IsPositive() || onHand.GreaterThanOrEqual(required) {
		return 0, true
	}
	if !onHand.IsPositive() {
		return leadTime, false
	}
	uncovered := decimal.NewFromInt(1).Sub(onHand.Div(required))
	return int(decimal.NewFromInt(int64(leadTime)).Mul(uncovered).IntPart()), false
}

func rank(paths []entities.CriticalPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].EffectiveLeadTime != paths[j].EffectiveLeadTime {
			return paths[i].EffectiveLeadTime > paths[j].EffectiveLeadTime
		}
		if paths[i].TotalLeadTime != paths[j].TotalLeadTime {
			return paths[i].TotalLeadTime > paths[j].TotalLeadTime
		}
		return paths[i].PathLength > paths[j].PathLength
	})
}

func leadTimeOf(nodes []entities.CriticalPathNode, productID string) int {
	for _, n := range nodes {
		if n.ProductID == productID {
			return n.LeadTimeDays
		}
	}
	return 0
}

func extend(path []string, id string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, id)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
