package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CriticalPathNode is one product on a lead-time path
type CriticalPathNode struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	LeadTimeDays int             `json:"lead_time_days"`
	Level        int             `json:"level"`
	IsPhantom    bool            `json:"is_phantom"`
	RequiredQty  decimal.Decimal `json:"required_qty"`
	OnHand       decimal.Decimal `json:"on_hand"`
	UnitCode     string          `json:"unit"`
	// EffectiveLeadTime is the lead time left after on-hand stock
	EffectiveLeadTime int `json:"effective_lead_time"`
	// CumulativeDays is the effective lead time from this node to the leaf
	CumulativeDays int `json:"cumulative_days"`
}

// HasStock reports whether any stock was found for the node
func (n CriticalPathNode) HasStock() bool {
	return n.OnHand.IsPositive()
}

// CriticalPath is a root-to-leaf path through the BOM structure
type CriticalPath struct {
	TotalLeadTime     int                `json:"total_lead_time"`
	EffectiveLeadTime int                `json:"effective_lead_time"`
	PathLength        int                `json:"path_length"`
	Path              []string           `json:"path"`
	Nodes             []CriticalPathNode `json:"nodes"`
	// BottleneckID is the product with the longest own lead time on the path
	BottleneckID string `json:"bottleneck_id"`
}

// Summary renders the path on one line
func (p *CriticalPath) Summary() string {
	return fmt.Sprintf("%d days (%d effective) - %d levels - %s",
		p.TotalLeadTime, p.EffectiveLeadTime, p.PathLength, p.BottleneckID)
}

// CriticalPathAnalysis ranks the lead-time paths below one product
type CriticalPathAnalysis struct {
	ProductID    string          `json:"product_id"`
	WarehouseID  string          `json:"warehouse_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	AnalysisDate time.Time       `json:"analysis_date"`
	CriticalPath *CriticalPath   `json:"critical_path,omitempty"`
	TopPaths     []CriticalPath  `json:"top_paths"`
	TotalPaths   int             `json:"total_paths"`
}

// Summary describes the longest path
func (a *CriticalPathAnalysis) Summary() string {
	if a.CriticalPath == nil {
		return "No critical path found"
	}
	cp := a.CriticalPath
	summary := fmt.Sprintf("Critical Path: %d days (%d effective)", cp.TotalLeadTime, cp.EffectiveLeadTime)
	if cp.BottleneckID != "" {
		summary += fmt.Sprintf(" | Bottleneck: %s", cp.BottleneckID)
	}
	return summary
}

// StockCoverage is the percentage of top paths with stock on at least one node
func (a *CriticalPathAnalysis) StockCoverage() float64 {
	if len(a.TopPaths) == 0 {
		return 0
	}
	covered := 0
	for _, path := range a.TopPaths {
		for _, node := range path.Nodes {
			if node.HasStock() {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(a.TopPaths)) * 100
}
