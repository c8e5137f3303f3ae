package explosion

import "github.com/vsinha/mfgplan/pkg/domain/entities"

// Shape sets the output form of result from the explosion tree. Tree wins
// over aggregation when both are requested.
func Shape(result *entities.ExplosionResult, tree []*entities.ExplosionNode, asTree, aggregate bool) {
	switch {
	case asTree:
		result.Structure = entities.StructureTree
		result.Nodes = tree
	case aggregate:
		result.Structure = entities.StructureFlat
		result.Aggregated = true
		result.Totals = Aggregate(tree)
	default:
		result.Structure = entities.StructureFlat
		result.Nodes = Flatten(tree)
	}
}

// Flatten lists every node in pre-order with children stripped
func Flatten(nodes []*entities.ExplosionNode) []*entities.ExplosionNode {
	flat := make([]*entities.ExplosionNode, 0, len(nodes))
	var walk func([]*entities.ExplosionNode)
	walk = func(level []*entities.ExplosionNode) {
		for _, n := range level {
			c := *n
			c.Children = nil
			flat = append(flat, &c)
			walk(n.Children)
		}
	}
	walk(nodes)
	return flat
}

// Aggregate sums node quantities per product across all paths and levels,
// in order of first appearance
func Aggregate(nodes []*entities.ExplosionNode) []entities.AggregatedRequirement {
	index := make(map[string]int)
	totals := make([]entities.AggregatedRequirement, 0)
	for _, n := range Flatten(nodes) {
		if i, ok := index[n.ProductID]; ok {
			totals[i].TotalQuantity = totals[i].TotalQuantity.Add(n.Quantity)
			continue
		}
		index[n.ProductID] = len(totals)
		totals = append(totals, entities.AggregatedRequirement{
			ProductID:     n.ProductID,
			TotalQuantity: n.Quantity,
			UnitCode:      n.UnitCode,
		})
	}
	return totals
}

// Leaves returns the nodes that were not expanded further, pre-order
func Leaves(nodes []*entities.ExplosionNode) []*entities.ExplosionNode {
	var leaves []*entities.ExplosionNode
	var walk func([]*entities.ExplosionNode)
	walk = func(level []*entities.ExplosionNode) {
		for _, n := range level {
			if n.IsLeaf() {
				leaves = append(leaves, n)
				continue
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return leaves
}

// LeafTotals aggregates only leaf requirements; phantom parents carry no demand
func LeafTotals(nodes []*entities.ExplosionNode) []entities.AggregatedRequirement {
	return Aggregate(Leaves(nodes))
}
