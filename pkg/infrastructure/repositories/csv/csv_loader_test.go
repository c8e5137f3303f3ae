package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

func TestLoader_LoadScenario(t *testing.T) {
	ctx := context.Background()
	ds, err := NewLoader().LoadScenario(filepath.Join("testdata", "bicycle"))
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}

	if len(ds.Products) != 7 || len(ds.BOMs) != 2 || len(ds.BOMLines) != 6 || len(ds.Demands) != 1 {
		t.Fatalf("Unexpected counts: %d products, %d boms, %d lines, %d demands",
			len(ds.Products), len(ds.BOMs), len(ds.BOMLines), len(ds.Demands))
	}
	if len(ds.Stock) != 3 || len(ds.WorkCenters) != 1 || len(ds.Routings) != 1 {
		t.Fatalf("Unexpected optional counts: %d stock, %d work centers, %d routings",
			len(ds.Stock), len(ds.WorkCenters), len(ds.Routings))
	}

	target := Target{
		Products: memory.NewProductRepository(len(ds.Products)),
		BOMs:     memory.NewBOMRepository(len(ds.BOMs)),
		Stock:    memory.NewStockRepository(),
		Demand:   memory.NewDemandRepository(),
		Capacity: memory.NewCapacityRepository(),
	}
	if err := ds.Populate(ctx, target); err != nil {
		t.Fatalf("Populate failed: %v", err)
	}

	bolt, err := target.Products.GetProduct(ctx, "BOLT")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if bolt.CanBeManufactured || bolt.LotSizeRule != entities.StandardPack || !bolt.MinOrderQty.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Unexpected BOLT: %+v", bolt)
	}

	at := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	frameBOM, err := target.BOMs.GetActiveDefaultBOM(ctx, "FRAME-ASSY", at)
	if err != nil || frameBOM == nil || frameBOM.ID != "B-FRAME" {
		t.Fatalf("Expected B-FRAME active at %s, got %v, %v", at.Format("2006-01-02"), frameBOM, err)
	}
	lines, err := target.BOMs.GetLines(ctx, "B-FRAME")
	if err != nil || len(lines) != 2 {
		t.Fatalf("Expected 2 frame lines, got %v, %v", lines, err)
	}
	if lines[1].ComponentID != "BOLT" || !lines[1].ScrapPercentage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected BOLT with 10%% scrap second, got %+v", lines[1])
	}

	onOrder, _ := target.Stock.GetOnOrder(ctx, "BOLT", "MAIN", at.AddDate(0, 0, 3))
	if !onOrder.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected 20 BOLT on order by the receipt date, got %s", onOrder)
	}

	routing, err := target.Capacity.GetRouting(ctx, "BIKE")
	if err != nil || routing == nil || routing.LeadTimeDays != 2 || len(routing.Operations) != 1 {
		t.Fatalf("Unexpected BIKE routing: %+v, %v", routing, err)
	}
	wc, err := target.Capacity.GetWorkCenter(ctx, "ASSEMBLY")
	if err != nil || !wc.CostPerHour.Equal(decimal.RequireFromString("42.5")) {
		t.Errorf("Unexpected ASSEMBLY: %+v, %v", wc, err)
	}
}

func TestLoader_OptionalFilesMissing(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{ProductsFile, BOMsFile, BOMLinesFile, DemandsFile} {
		copyFile(t, filepath.Join("testdata", "bicycle", name), filepath.Join(dir, name))
	}

	ds, err := NewLoader().LoadScenario(dir)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if ds.Stock != nil || ds.WorkCenters != nil || ds.Routings != nil {
		t.Errorf("Expected no optional data, got %d stock, %d work centers, %d routings",
			len(ds.Stock), len(ds.WorkCenters), len(ds.Routings))
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		load    func(l *Loader, path string) error
		wantErr string
	}{
		{
			name:    "header mismatch",
			content: "product_id,quantity\nBIKE,1\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadDemands(p); return err },
			wantErr: "header mismatch",
		},
		{
			name:    "short row",
			content: "product_id,warehouse,quantity,due_date,source_ref\nBIKE,MAIN,1\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadDemands(p); return err },
			wantErr: "row 2: expected 5 columns",
		},
		{
			name:    "bad due date",
			content: "product_id,warehouse,quantity,due_date,source_ref\nBIKE,MAIN,1,23/03/2025,SO-1\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadDemands(p); return err },
			wantErr: "invalid due_date format in row 2",
		},
		{
			name:    "bad make or buy",
			content: strings.Join(productsHeader, ",") + "\nBIKE,Bike,pcs,,borrow,0,0,0,0,LotForLot,0,MAIN\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadProducts(p); return err },
			wantErr: "invalid make_or_buy",
		},
		{
			name:    "pack rule without pack size",
			content: strings.Join(productsHeader, ",") + "\nBOLT,Bolt,pcs,,buy,2,0,0,0,StandardPack,0,MAIN\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadProducts(p); return err },
			wantErr: "requires non-zero minimum order quantity",
		},
		{
			name:    "scrap out of range",
			content: strings.Join(bomLinesHeader, ",") + "\nL1,B1,BOLT,10,4,pcs,120,false,false\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadBOMLines(p); return err },
			wantErr: "scrap percentage",
		},
		{
			name:    "unknown stock type",
			content: strings.Join(stockHeader, ",") + "\nBOLT,MAIN,consigned,5,\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadStock(p); return err },
			wantErr: "invalid stock type in row 2",
		},
		{
			name:    "conflicting routing lead time",
			content: strings.Join(routingsHeader, ",") + "\nBIKE,2,10,ASSEMBLY,1,0.5\nBIKE,3,20,PAINT,0,0.1\n",
			load:    func(l *Loader, p string) error { _, err := l.LoadRoutings(p); return err },
			wantErr: "row 3: lead time 3 conflicts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "input.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			err := tt.load(NewLoader(), path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func copyFile(t *testing.T, from, to string) {
	t.Helper()
	data, err := os.ReadFile(from)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if err := os.WriteFile(to, data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}
