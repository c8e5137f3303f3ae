package criticalpath

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	mrptesting "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
)

var start = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newBicycleService() *Service {
	s := mrptesting.BuildBicycleScenario(start)
	return NewServiceWithConfig(Config{Clock: func() time.Time { return start }},
		s.Products, s.BOMs, s.Capacity, s.Stock, s.Converter, nil)
}

func TestAnalyze_RanksPathsByEffectiveLeadTime(t *testing.T) {
	svc := newBicycleService()

	analysis, err := svc.Analyze(context.Background(), Request{ProductID: "BIKE", Quantity: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.TotalPaths != 4 {
		t.Fatalf("expected 4 paths (optional BELL skipped), got %d", analysis.TotalPaths)
	}
	if analysis.WarehouseID != DefaultWarehouseID {
		t.Errorf("expected warehouse %s, got %s", DefaultWarehouseID, analysis.WarehouseID)
	}

	tests := []struct {
		leaf       string
		total      int
		effective  int
		length     int
		bottleneck string
	}{
		// BIKE: routing 2 days, 2 of 10 on hand -> 1 effective day
		{"FRAME", 7, 6, 3, "FRAME"},
		// WHEEL: 5 of 20 on hand -> 2 of 3 days
		{"WHEEL", 5, 3, 2, "WHEEL"},
		{"BOLT", 4, 3, 3, "BIKE"},
	}
	if len(analysis.TopPaths) != len(tests) {
		t.Fatalf("expected %d top paths, got %d", len(tests), len(analysis.TopPaths))
	}
	for i, tt := range tests {
		p := analysis.TopPaths[i]
		if leaf := p.Path[len(p.Path)-1]; leaf != tt.leaf {
			t.Errorf("path %d: expected leaf %s, got %s (%v)", i, tt.leaf, leaf, p.Path)
		}
		if p.TotalLeadTime != tt.total || p.EffectiveLeadTime != tt.effective {
			t.Errorf("path %d: expected %d/%d days, got %d/%d", i, tt.total, tt.effective, p.TotalLeadTime, p.EffectiveLeadTime)
		}
		if p.PathLength != tt.length {
			t.Errorf("path %d: expected length %d, got %d", i, tt.length, p.PathLength)
		}
		if p.BottleneckID != tt.bottleneck {
			t.Errorf("path %d: expected bottleneck %s, got %s", i, tt.bottleneck, p.BottleneckID)
		}
	}

	cp := analysis.CriticalPath
	if cp == nil || cp.Path[1] != "FRAME-ASSY" {
		t.Fatalf("expected critical path through FRAME-ASSY, got %+v", cp)
	}
	if !cp.Nodes[1].IsPhantom || cp.Nodes[1].LeadTimeDays != 0 {
		t.Errorf("phantom FRAME-ASSY should carry no lead time: %+v", cp.Nodes[1])
	}
	if cp.Nodes[0].CumulativeDays != 6 {
		t.Errorf("expected 6 cumulative days at the root, got %d", cp.Nodes[0].CumulativeDays)
	}
	if !cp.Nodes[0].OnHand.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected 2 BIKE on hand, got %s", cp.Nodes[0].OnHand)
	}
	if got := analysis.Summary(); got != "Critical Path: 7 days (6 effective) | Bottleneck: FRAME" {
		t.Errorf("unexpected summary: %s", got)
	}
}

func TestAnalyze_StockedRootNeedsNothing(t *testing.T) {
	svc := newBicycleService()

	analysis, err := svc.Analyze(context.Background(), Request{ProductID: "BIKE", Quantity: decimal.NewFromInt(2), TopN: 10})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.TopPaths) != 4 {
		t.Fatalf("expected all 4 paths, got %d", len(analysis.TopPaths))
	}
	for _, p := range analysis.TopPaths {
		if p.EffectiveLeadTime != 0 {
			t.Errorf("path %v: expected 0 effective days with BIKE in stock, got %d", p.Path, p.EffectiveLeadTime)
		}
	}
	if analysis.CriticalPath.TotalLeadTime != 7 {
		t.Errorf("expected ties broken by total lead time, got %d", analysis.CriticalPath.TotalLeadTime)
	}
	if got := analysis.StockCoverage(); got != 100 {
		t.Errorf("expected every path to touch stock, got %.0f%%", got)
	}
}

func TestAnalyze_TopN(t *testing.T) {
	svc := newBicycleService()

	analysis, err := svc.Analyze(context.Background(), Request{ProductID: "BIKE", TopN: 1})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.TopPaths) != 1 || analysis.TotalPaths != 4 {
		t.Fatalf("expected 1 of 4 paths, got %d of %d", len(analysis.TopPaths), analysis.TotalPaths)
	}
	if !analysis.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected default quantity 1, got %s", analysis.Quantity)
	}
}

func TestAnalyze_PurchasedItemIsSinglePath(t *testing.T) {
	svc := newBicycleService()

	analysis, err := svc.Analyze(context.Background(), Request{ProductID: "WHEEL", Quantity: decimal.NewFromInt(8)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.TotalPaths != 1 {
		t.Fatalf("expected a single path, got %d", analysis.TotalPaths)
	}
	// 5 of 8 on hand leaves 3/8 of 3 days
	if got := analysis.CriticalPath.EffectiveLeadTime; got != 1 {
		t.Errorf("expected 1 effective day, got %d", got)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	svc := newBicycleService()
	ctx := context.Background()

	_, err := svc.Analyze(ctx, Request{ProductID: "NOPE"})
	var notFound *entities.ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected ProductNotFoundError, got %v", err)
	}

	if _, err := svc.Analyze(ctx, Request{ProductID: "BIKE", Quantity: decimal.NewFromInt(-1)}); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestAnalyze_Cycle(t *testing.T) {
	s := mrptesting.NewScenario()
	if err := s.Products.LoadProducts([]*entities.Product{
		mrptesting.MustProduct("A", "pcs", 1, true),
		mrptesting.MustProduct("B", "pcs", 1, true),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.BOMs.LoadBOMs(
		[]*entities.BillOfMaterials{
			mrptesting.MustActiveBOM("B-A", "A", "1", "pcs"),
			mrptesting.MustActiveBOM("B-B", "B", "1", "pcs"),
		},
		[]*entities.BOMLine{
			mrptesting.MustLine("L1", "B-A", "B", "1", "pcs", 10),
			mrptesting.MustLine("L2", "B-B", "A", "1", "pcs", 10),
		},
	); err != nil {
		t.Fatal(err)
	}
	svc := NewService(s.Products, s.BOMs, s.Capacity, s.Stock, s.Converter, nil)

	_, err := svc.Analyze(context.Background(), Request{ProductID: "A"})
	var cyclic *entities.CyclicBOMError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicBOMError, got %v", err)
	}
}

func TestEffectiveLeadTime(t *testing.T) {
	tests := []struct {
		name     string
		lead     int
		onHand   string
		required string
		want     int
		covered  bool
	}{
		{"no stock", 10, "0", "4", 10, false},
		{"half covered", 10, "2", "4", 5, false},
		{"truncates", 3, "1", "4", 2, false},
		{"fully covered", 10, "4", "4", 0, true},
		{"nothing required", 10, "0", "0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, covered := effectiveLeadTime(tt.lead, decimal.RequireFromString(tt.onHand), decimal.RequireFromString(tt.required))
			if got != tt.want || covered != tt.covered {
				t.Errorf("expected %d/%v, got %d/%v", tt.want, tt.covered, got, covered)
			}
		})
	}
}
