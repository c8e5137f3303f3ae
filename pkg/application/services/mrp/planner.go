package mrp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
)

// Urgency reasons recorded on recommendations
const (
	ReasonOverdue      = "overdue"
	ReasonUrgentWindow = "urgent_window"
	ReasonCapacity     = "capacity"
)

// planner holds the mutable state of one run
type planner struct {
	svc    *MRPService
	run    *entities.MRPRun
	logger *zap.Logger
	today  time.Time
	at     time.Time

	products map[string]*entities.Product
	// boms holds the active default BOM of every make-item in scope
	boms map[string]*entities.BillOfMaterials
	// children lists the planning components of each make-item
	children map[string][]string
	// dependent is component → day → quantity placed by planned parents
	dependent map[string]map[string]decimal.Decimal
}

func newPlanner(svc *MRPService, run *entities.MRPRun, logger *zap.Logger) *planner {
	now := svc.config.Clock()
	return &planner{
		svc:       svc,
		run:       run,
		logger:    logger,
		today:     entities.DateOnly(now),
		at:        now,
		products:  make(map[string]*entities.Product),
		boms:      make(map[string]*entities.BillOfMaterials),
		children:  make(map[string][]string),
		dependent: make(map[string]map[string]decimal.Decimal),
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (p *planner) warn(productID, code, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.run.AddWarning(productID, code, msg)
	p.logger.Warn("mrp warning",
		zap.String("product_id", productID),
		zap.String("code", code),
		zap.String("message", msg))
}

// prepare resolves the product scope and returns it parents-first
func (p *planner) prepare(ctx context.Context) ([]string, error) {
	roots, err := p.scope(ctx)
	if err != nil {
		return nil, err
	}

	queue := append([]string(nil), roots...)
	inScope := make(map[string]bool, len(roots))
	for _, id := range roots {
		inScope[id] = true
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := queue[0]
		queue = queue[1:]

		kids, err := p.components(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, kid := range kids {
			if inScope[kid] {
				continue
			}
			if _, err := p.product(ctx, kid); err != nil {
				p.warn(kid, entities.WarnMetadataMissing, "component of %s skipped: %v", id, err)
				continue
			}
			inScope[kid] = true
			queue = append(queue, kid)
		}
	}

	edges := make(map[string][]string, len(inScope))
	for id := range inScope {
		var kept []string
		for _, kid := range p.children[id] {
			if inScope[kid] {
				kept = append(kept, kid)
			}
		}
		p.children[id] = kept
		edges[id] = kept
	}

	if err := services.NewGraphValidator().CheckProductGraph(edges); err != nil {
		return nil, err
	}
	return topologicalSort(edges), nil
}

// scope lists the products selected by the run filters, narrowed to
// changed products in net-change mode
func (p *planner) scope(ctx context.Context) ([]string, error) {
	all, err := p.svc.deps.Products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	filters := p.run.Filters
	ids := toSet(filters.ProductIDs)
	categories := toSet(filters.CategoryIDs)

	var changed map[string]bool
	if p.run.Options.NetChange {
		changed = p.changedProducts(ctx)
	}

	var selected []string
	for _, product := range all {
		if !product.IsActive {
			continue
		}
		if len(ids) > 0 && !ids[product.ID] {
			continue
		}
		if len(categories) > 0 && !categories[product.CategoryID] {
			continue
		}
		if !product.MatchesMakeOrBuy(filters.MakeOrBuy) {
			continue
		}
		if changed != nil && !changed[product.ID] {
			continue
		}
		p.products[product.ID] = product
		selected = append(selected, product.ID)
	}
	sort.Strings(selected)
	return selected, nil
}

// changedProducts returns nil when net change cannot be honoured, which
// degrades the run to a full regeneration
func (p *planner) changedProducts(ctx context.Context) map[string]bool {
	log := p.svc.deps.ChangeLog
	if log == nil {
		p.warn("", entities.WarnNetChangeDegrade, "no change log configured; planning all products")
		return nil
	}
	last, err := p.svc.deps.Runs.LastCompletedRun(ctx)
	if err != nil {
		p.warn("", entities.WarnNetChangeDegrade, "failed to find last completed run: %v; planning all products", err)
		return nil
	}
	if last == nil || last.CompletedAt == nil {
		p.warn("", entities.WarnNetChangeDegrade, "no completed run to compare against; planning all products")
		return nil
	}
	ids, err := log.ChangedSince(ctx, *last.CompletedAt)
	if err != nil {
		p.warn("", entities.WarnNetChangeDegrade, "failed to read change log: %v; planning all products", err)
		return nil
	}
	p.logger.Info("net change scope resolved",
		zap.String("since_run", last.RunCode),
		zap.Int("changed_products", len(ids)))
	return toSet(ids)
}

func (p *planner) product(ctx context.Context, id string) (*entities.Product, error) {
	if product, ok := p.products[id]; ok {
		return product, nil
	}
	product, err := p.svc.deps.Products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.products[id] = product
	return product, nil
}

// components explodes a make-item at unit quantity and records its leaf
// components. Cycles are returned; other failures become warnings.
func (p *planner) components(ctx context.Context, productID string) ([]string, error) {
	product := p.products[productID]
	if !product.CanBeManufactured {
		return nil, nil
	}
	bom, err := p.svc.deps.BOMs.GetActiveDefaultBOM(ctx, productID, p.at)
	if err != nil {
		p.warn(productID, entities.WarnMetadataMissing, "failed to load default bom: %v", err)
		return nil, nil
	}
	if bom == nil {
		return nil, nil
	}
	p.boms[productID] = bom

	result, err := p.explode(ctx, bom, decimal.NewFromInt(1))
	if err != nil {
		var cycle *entities.CyclicBOMError
		if errors.As(err, &cycle) || ctx.Err() != nil {
			return nil, err
		}
		p.explosionWarning(productID, err)
		return nil, nil
	}
	if result.Truncated {
		p.warn(productID, entities.WarnTruncated, "explosion of %s truncated at depth %d", bom.ID, p.svc.config.MaxDepth)
	}

	var kids []string
	for _, req := range explosion.LeafTotals(result.Nodes) {
		kids = append(kids, req.ProductID)
	}
	p.children[productID] = kids
	return kids, nil
}

func (p *planner) explode(ctx context.Context, bom *entities.BillOfMaterials, qty decimal.Decimal) (*entities.ExplosionResult, error) {
	return p.svc.deps.Explosions.Explode(ctx, explosion.Request{
		BOMID:            bom.ID,
		Quantity:         qty,
		MaxDepth:         p.svc.config.MaxDepth,
		ExplodeAllLevels: true,
		AsTree:           true,
	})
}

func (p *planner) explosionWarning(productID string, err error) {
	if errors.Is(err, entities.ErrUnitConversion) {
		p.warn(productID, entities.WarnConversionFailed, "%v", err)
		return
	}
	p.warn(productID, entities.WarnExplosionFailed, "%v", err)
}

// topologicalSort orders a parent → children graph parents-first using
// Kahn's algorithm; ready nodes are taken in sorted order
func topologicalSort(edges map[string][]string) []string {
	inDegree := make(map[string]int, len(edges))
	for id := range edges {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, kid := range edges[id] {
			inDegree[kid]++
		}
	}

	var ready []string
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	result := make([]string, 0, len(inDegree))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		result = append(result, current)

		kids := append([]string(nil), edges[current]...)
		sort.Strings(kids)
		for _, kid := range kids {
			inDegree[kid]--
			if inDegree[kid] == 0 {
				ready = append(ready, kid)
			}
		}
	}
	return result
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
