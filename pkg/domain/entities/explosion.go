package entities

import "github.com/shopspring/decimal"

// Structure tells callers which output shape an explosion result carries
type Structure string

const (
	StructureTree Structure = "tree"
	StructureFlat Structure = "flat"
)

// ExplosionNode is one BOM line expanded at computation time
type ExplosionNode struct {
	ProductID   string           `json:"product_id"`
	BOMLineID   string           `json:"bom_line_id"`
	SourceBOMID string           `json:"source_bom_id"`
	Level       int              `json:"level"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCode    string           `json:"unit"`
	IsOptional  bool             `json:"is_optional"`
	IsPhantom   bool             `json:"is_phantom"`
	Children    []*ExplosionNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node was not expanded further
func (n *ExplosionNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Clone deep-copies the node and its subtree
func (n *ExplosionNode) Clone() *ExplosionNode {
	if n == nil {
		return nil
	}
	c := *n
	if len(n.Children) > 0 {
		c.Children = make([]*ExplosionNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// AggregatedRequirement is the total quantity of a product across all paths
type AggregatedRequirement struct {
	ProductID     string          `json:"product_id"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	UnitCode      string          `json:"unit"`
}

// ExplosionResult is the shaped output of a BOM explosion
type ExplosionResult struct {
	BOMID       string                  `json:"bom_id"`
	ProductID   string                  `json:"product_id"`
	Quantity    decimal.Decimal         `json:"quantity"`
	Structure   Structure               `json:"structure"`
	Aggregated  bool                    `json:"aggregated"`
	Nodes       []*ExplosionNode        `json:"nodes,omitempty"`
	Totals      []AggregatedRequirement `json:"totals,omitempty"`
	MaxLevel    int                     `json:"max_level"`
	Truncated   bool                    `json:"truncated"`
	Warnings    []string                `json:"warnings,omitempty"`
	VisitedBOMs []string                `json:"visited_boms,omitempty"`

	// PhantomProducts are the components of phantom lines reached, whether or
	// not they had an explodable BOM at the time
	PhantomProducts []string `json:"phantom_products,omitempty"`
}

// Clone deep-copies the result
func (r *ExplosionResult) Clone() *ExplosionResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Nodes != nil {
		c.Nodes = make([]*ExplosionNode, len(r.Nodes))
		for i, n := range r.Nodes {
			c.Nodes[i] = n.Clone()
		}
	}
	if r.Totals != nil {
		c.Totals = append([]AggregatedRequirement(nil), r.Totals...)
	}
	c.Warnings = append([]string(nil), r.Warnings...)
	c.VisitedBOMs = append([]string(nil), r.VisitedBOMs...)
	c.PhantomProducts = append([]string(nil), r.PhantomProducts...)
	return &c
}

// IsMultiLevel reports whether any node sits below level 0
func (r *ExplosionResult) IsMultiLevel() bool {
	return r.MaxLevel > 0
}
