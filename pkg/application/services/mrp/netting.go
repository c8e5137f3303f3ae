package mrp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// planProduct nets one product day by day across the horizon and returns
// the recommendations it raised. Failures degrade to run warnings.
func (p *planner) planProduct(ctx context.Context, productID string) []*entities.MRPRecommendation {
	product, err := p.product(ctx, productID)
	if err != nil {
		p.warn(productID, entities.WarnMetadataMissing, "failed to load product: %v", err)
		return nil
	}

	supply, err := p.openingSupply(ctx, product)
	if err != nil {
		p.warn(productID, entities.WarnMetadataMissing, "failed to read stock: %v", err)
		return nil
	}
	independent, err := p.independentDemand(ctx, product)
	if err != nil {
		p.warn(productID, entities.WarnMetadataMissing, "failed to read demand: %v", err)
		return nil
	}

	bom := p.boms[productID]
	isMake := product.CanBeManufactured && bom != nil
	recType := entities.PurchaseOrder
	if isMake {
		recType = entities.WorkOrder
	}
	leadTime, routing := p.leadTime(ctx, product, isMake)

	floor := decimal.Zero
	if p.run.Options.IncludeSafetyStock {
		floor = product.SafetyStock
	}

	warehouse := p.run.Filters.WarehouseID
	if warehouse == "" {
		warehouse = product.DefaultWarehouseID
	}

	var recs []*entities.MRPRecommendation
	projected := supply
	received := decimal.Zero
	dependent := p.dependent[productID]

	for _, day := range p.run.HorizonDays() {
		key := dayKey(day)
		gross := independent[key].Add(dependent[key])

		cumulative, err := p.svc.deps.Stock.GetOnOrder(ctx, productID, p.run.Filters.WarehouseID, day)
		if err != nil {
			p.warn(productID, entities.WarnMetadataMissing, "failed to read open orders: %v", err)
			return recs
		}
		receipts := cumulative.Sub(received)
		received = cumulative

		available := projected.Add(receipts)
		net := decimal.Max(decimal.Zero, gross.Add(floor).Sub(available))
		balance := available.Sub(gross)

		var order decimal.Decimal
		switch {
		case net.IsPositive():
			order = applyLotSizing(net, product)
		case product.ReorderPoint.IsPositive() && balance.LessThan(product.ReorderPoint):
			net = product.ReorderPoint.Sub(balance)
			order = net
			if product.ReorderQuantity.GreaterThan(order) {
				order = product.ReorderQuantity
			}
			order = applyLotSizing(order, product)
		}
		projected = balance.Add(order)

		if !order.IsPositive() {
			continue
		}

		rec := p.recommend(product, recType, day, leadTime, gross, net, order, projected)
		rec.WarehouseID = warehouse
		if isMake {
			p.placeDependentDemand(ctx, product, bom, rec)
			p.checkCapacity(ctx, routing, rec)
		}
		recs = append(recs, rec)
	}

	if len(recs) > 0 {
		p.logger.Debug("product planned",
			zap.String("product_id", productID),
			zap.String("type", string(recType)),
			zap.Int("recommendations", len(recs)))
	}
	return recs
}

// openingSupply is on-hand stock plus WIP when the run considers it
func (p *planner) openingSupply(ctx context.Context, product *entities.Product) (decimal.Decimal, error) {
	warehouse := p.run.Filters.WarehouseID
	onHand, err := p.svc.deps.Stock.GetOnHand(ctx, product.ID, warehouse)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.run.Options.ConsiderWIP {
		return onHand, nil
	}
	wip, err := p.svc.deps.Stock.GetWIP(ctx, product.ID, warehouse)
	if err != nil {
		return decimal.Zero, err
	}
	return onHand.Add(wip), nil
}

// independentDemand buckets confirmed demand by day; past-due lines land on
// the first horizon day
func (p *planner) independentDemand(ctx context.Context, product *entities.Product) (map[string]decimal.Decimal, error) {
	lines, err := p.svc.deps.Demand.GetDemand(ctx, product.ID, p.run.Filters.WarehouseID, time.Time{}, p.run.HorizonEnd)
	if err != nil {
		return nil, err
	}
	buckets := make(map[string]decimal.Decimal)
	for _, line := range lines {
		due := entities.DateOnly(line.DueDate)
		if due.Before(p.run.HorizonStart) {
			due = p.run.HorizonStart
		}
		buckets[dayKey(due)] = buckets[dayKey(due)].Add(line.Quantity)
	}
	return buckets, nil
}

// leadTime picks the routing lead time for make-items and the purchase lead
// time otherwise
func (p *planner) leadTime(ctx context.Context, product *entities.Product, isMake bool) (int, *entities.Routing) {
	if !isMake {
		return product.LeadTimeDays, nil
	}
	routing, err := p.svc.deps.Routings.GetRouting(ctx, product.ID)
	if err != nil {
		p.warn(product.ID, entities.WarnMetadataMissing, "failed to load routing: %v", err)
		return product.LeadTimeDays, nil
	}
	if routing == nil {
		return product.LeadTimeDays, nil
	}
	return routing.LeadTimeDays, routing
}

func (p *planner) recommend(
	product *entities.Product,
	recType entities.RecommendationType,
	required time.Time,
	leadTime int,
	gross, net, order, projected decimal.Decimal,
) *entities.MRPRecommendation {
	start := required
	if p.run.Options.RespectLeadTimes {
		start = required.AddDate(0, 0, -leadTime)
	}
	suggested := start
	if suggested.Before(p.today) {
		suggested = p.today
	}

	priority, urgent, reason := p.prioritize(start)
	now := p.svc.config.Clock()

	return &entities.MRPRecommendation{
		ID:                p.svc.config.NewID(),
		RunID:             p.run.ID,
		ProductID:         product.ID,
		Type:              recType,
		GrossRequirement:  gross,
		NetRequirement:    net,
		ProjectedOnHand:   projected,
		SuggestedQuantity: order,
		SuggestedDate:     suggested,
		RequiredByDate:    required,
		LeadTimeDays:      leadTime,
		UnitCode:          product.UnitCode,
		Priority:          priority,
		IsUrgent:          urgent,
		UrgencyReason:     reason,
		Status:            entities.RecommendationPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// prioritize ranks a recommendation by how far its unclipped start lies
// from today
func (p *planner) prioritize(start time.Time) (entities.Priority, bool, string) {
	days := entities.DaysBetween(p.today, start)
	cfg := p.svc.config
	switch {
	case days < 0:
		return entities.PriorityCritical, true, ReasonOverdue
	case days <= cfg.UrgentWindowDays:
		return entities.PriorityCritical, true, ReasonUrgentWindow
	case days <= cfg.HighWindowDays:
		return entities.PriorityHigh, false, ""
	case days <= cfg.MediumWindowDays:
		return entities.PriorityMedium, false, ""
	default:
		return entities.PriorityLow, false, ""
	}
}

// placeDependentDemand explodes the order quantity and books every leaf
// component on the suggested start date, clamped into the horizon
func (p *planner) placeDependentDemand(ctx context.Context, product *entities.Product, bom *entities.BillOfMaterials, rec *entities.MRPRecommendation) {
	qty := rec.SuggestedQuantity
	if bom.UnitCode != "" && bom.UnitCode != product.UnitCode {
		converted, err := p.svc.deps.Converter.Convert(ctx, product.ID, qty, product.UnitCode, bom.UnitCode)
		if err != nil {
			p.warn(product.ID, entities.WarnConversionFailed, "work order quantity not convertible to bom unit: %v", err)
			return
		}
		qty = converted
	}

	result, err := p.explode(ctx, bom, qty)
	if err != nil {
		p.explosionWarning(product.ID, err)
		return
	}

	day := rec.SuggestedDate
	if day.Before(p.run.HorizonStart) {
		day = p.run.HorizonStart
	}
	if day.After(p.run.HorizonEnd) {
		day = p.run.HorizonEnd
	}
	key := dayKey(day)

	for _, req := range explosion.LeafTotals(result.Nodes) {
		buckets, ok := p.dependent[req.ProductID]
		if !ok {
			buckets = make(map[string]decimal.Decimal)
			p.dependent[req.ProductID] = buckets
		}
		buckets[key] = buckets[key].Add(req.TotalQuantity)
	}
}

// checkCapacity books routing hours per work center from the suggested date
// and flags work orders that cannot finish by the required date
func (p *planner) checkCapacity(ctx context.Context, routing *entities.Routing, rec *entities.MRPRecommendation) {
	if routing == nil || p.svc.deps.Capacity == nil {
		return
	}

	hours := routing.HoursByWorkCenter(rec.SuggestedQuantity)
	workCenters := make([]string, 0, len(hours))
	for wc := range hours {
		workCenters = append(workCenters, wc)
	}
	sort.Strings(workCenters)

	for _, wc := range workCenters {
		slot, found, err := p.svc.deps.Capacity.FindNextSlot(ctx, wc, hours[wc], rec.SuggestedDate)
		if err != nil {
			p.warn(rec.ProductID, entities.WarnCapacity, "capacity check on %s failed: %v", wc, err)
			continue
		}
		var problem string
		switch {
		case !found:
			problem = fmt.Sprintf("no slot for %s hours on %s", hours[wc].String(), wc)
		case slot.End.After(rec.RequiredByDate):
			problem = fmt.Sprintf("%s hours on %s finish %s, after required date %s",
				hours[wc].String(), wc, slot.End.Format("2006-01-02"), rec.RequiredByDate.Format("2006-01-02"))
		default:
			continue
		}
		p.warn(rec.ProductID, entities.WarnCapacity, "%s", problem)
		rec.IsUrgent = true
		rec.UrgencyReason = ReasonCapacity
	}
}

// applyLotSizing applies the product's lot sizing rule to a net quantity
func applyLotSizing(net decimal.Decimal, product *entities.Product) decimal.Decimal {
	switch product.LotSizeRule {
	case entities.LotForLot:
		return net
	case entities.MinimumQty:
		if net.LessThan(product.MinOrderQty) {
			return product.MinOrderQty
		}
		return net
	case entities.StandardPack:
		// round up to whole packs of MinOrderQty
		if product.MinOrderQty.IsPositive() {
			packs := net.Div(product.MinOrderQty).Ceil()
			return packs.Mul(product.MinOrderQty)
		}
		return net
	default:
		return net
	}
}
