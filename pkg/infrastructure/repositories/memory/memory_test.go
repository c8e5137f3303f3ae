package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newBOM(t *testing.T, id, productID string, active, isDefault bool) *entities.BillOfMaterials {
	t.Helper()
	bom, err := entities.NewBillOfMaterials(id, productID, decimal.NewFromInt(1), "pcs")
	if err != nil {
		t.Fatalf("NewBillOfMaterials failed: %v", err)
	}
	if active {
		if err := bom.Activate(); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
	}
	bom.IsDefault = isDefault
	return bom
}

func TestBOMRepository_DefaultUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewBOMRepository(4)
	var changed []string
	repo.OnChange(func(bomID, productID string) { changed = append(changed, bomID+"@"+productID) })

	if err := repo.SaveBOM(ctx, newBOM(t, "B1", "BIKE", true, true)); err != nil {
		t.Fatalf("SaveBOM failed: %v", err)
	}

	tests := []struct {
		name string
		op   func() error
	}{
		{"save second active default", func() error {
			return repo.SaveBOM(ctx, newBOM(t, "B2", "BIKE", true, true))
		}},
		{"activate draft default", func() error {
			if err := repo.SaveBOM(ctx, newBOM(t, "B3", "BIKE", false, true)); err != nil {
				return err
			}
			return repo.Activate(ctx, "B3")
		}},
		{"set default on active", func() error {
			if err := repo.SaveBOM(ctx, newBOM(t, "B4", "BIKE", true, false)); err != nil {
				return err
			}
			return repo.SetDefault(ctx, "B4")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, entities.ErrDuplicateDefaultBOM) {
				t.Errorf("Expected ErrDuplicateDefaultBOM, got %v", err)
			}
		})
	}

	// another product is unaffected
	if err := repo.SaveBOM(ctx, newBOM(t, "W1", "WHEEL", true, true)); err != nil {
		t.Errorf("Expected default for another product to save, got %v", err)
	}

	bom, err := repo.GetActiveDefaultBOM(ctx, "BIKE", day)
	if err != nil || bom == nil || bom.ID != "B1" {
		t.Fatalf("Expected B1 as the default, got %+v (%v)", bom, err)
	}
	want := []string{"B1@BIKE", "B3@BIKE", "B4@BIKE", "W1@WHEEL"}
	if len(changed) != len(want) {
		t.Fatalf("Expected %d change notifications, got %v", len(want), changed)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Errorf("notification %d: expected %s, got %s", i, want[i], changed[i])
		}
	}
}

func TestBOMRepository_Lines(t *testing.T) {
	ctx := context.Background()
	repo := NewBOMRepository(1)
	if err := repo.SaveBOM(ctx, newBOM(t, "B1", "BIKE", true, true)); err != nil {
		t.Fatalf("SaveBOM failed: %v", err)
	}

	for _, l := range []struct {
		id, component string
		sequence      int
	}{
		{"L2", "WHEEL", 20},
		{"L1", "FRAME", 10},
	} {
		line, err := entities.NewBOMLine(l.id, "B1", l.component, decimal.NewFromInt(1), "pcs")
		if err != nil {
			t.Fatalf("NewBOMLine failed: %v", err)
		}
		line.Sequence = l.sequence
		if err := repo.SaveLine(ctx, line); err != nil {
			t.Fatalf("SaveLine failed: %v", err)
		}
	}

	lines, err := repo.GetLines(ctx, "B1")
	if err != nil {
		t.Fatalf("GetLines failed: %v", err)
	}
	if len(lines) != 2 || lines[0].ID != "L1" || lines[1].ID != "L2" {
		t.Errorf("Expected lines ordered by sequence, got %d", len(lines))
	}

	orphan, _ := entities.NewBOMLine("L9", "NOPE", "FRAME", decimal.NewFromInt(1), "pcs")
	var notFound *entities.BOMNotFoundError
	if err := repo.SaveLine(ctx, orphan); !errors.As(err, &notFound) {
		t.Errorf("Expected BOMNotFoundError, got %v", err)
	}
	if _, err := repo.GetLines(ctx, "NOPE"); !errors.As(err, &notFound) {
		t.Errorf("Expected BOMNotFoundError, got %v", err)
	}
}

func TestRunRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository()

	for _, id := range []string{"R1", "R2"} {
		run, err := entities.NewMRPRun(id, day, day.AddDate(0, 0, 30), entities.RunOptions{}, entities.RunFilters{}, day)
		if err != nil {
			t.Fatalf("NewMRPRun failed: %v", err)
		}
		if err := repo.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}
	if err := repo.SaveRecommendations(ctx, []*entities.MRPRecommendation{
		{ID: "REC-1", RunID: "R1", ProductID: "BOLT"},
		{ID: "REC-2", RunID: "R1", ProductID: "WHEEL"},
		{ID: "REC-3", RunID: "R2", ProductID: "BOLT"},
	}); err != nil {
		t.Fatalf("SaveRecommendations failed: %v", err)
	}

	if err := repo.DeleteRun(ctx, "R1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := repo.GetRun(ctx, "R1"); !errors.Is(err, entities.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if _, err := repo.GetRecommendation(ctx, "REC-1"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected the run's recommendations to be gone, got %v", err)
	}

	left, err := repo.FindRecommendations(ctx, repositories.RecommendationFilter{})
	if err != nil {
		t.Fatalf("FindRecommendations failed: %v", err)
	}
	if len(left) != 1 || left[0].ID != "REC-3" {
		t.Errorf("Expected only REC-3 to remain, got %d", len(left))
	}
	if err := repo.DeleteRun(ctx, "R1"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestStockRepository_Levels(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()
	var reasons []string
	repo.OnChange(func(productID, reason string) { reasons = append(reasons, productID+":"+reason) })

	repo.SetOnHand("BOLT", "MAIN", decimal.NewFromInt(10))
	repo.SetOnHand("BOLT", "EAST", decimal.NewFromInt(5))
	repo.AddReceipt(Receipt{ProductID: "BOLT", WarehouseID: "MAIN", Quantity: decimal.NewFromInt(20), DueDate: day.AddDate(0, 0, 2)})
	repo.AddReceipt(Receipt{ProductID: "BOLT", WarehouseID: "EAST", Quantity: decimal.NewFromInt(7), DueDate: day.AddDate(0, 0, 9)})

	tests := []struct {
		name      string
		warehouse string
		byDate    time.Time
		onHand    int64
		onOrder   int64
	}{
		{"one warehouse before receipt", "MAIN", day.AddDate(0, 0, 1), 10, 0},
		{"one warehouse on due date", "MAIN", day.AddDate(0, 0, 2), 10, 20},
		{"all warehouses", "", day.AddDate(0, 0, 10), 15, 27},
		{"unknown warehouse", "WEST", day.AddDate(0, 0, 10), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onHand, _ := repo.GetOnHand(ctx, "BOLT", tt.warehouse)
			if !onHand.Equal(decimal.NewFromInt(tt.onHand)) {
				t.Errorf("Expected on hand %d, got %s", tt.onHand, onHand)
			}
			onOrder, _ := repo.GetOnOrder(ctx, "BOLT", tt.warehouse, tt.byDate)
			if !onOrder.Equal(decimal.NewFromInt(tt.onOrder)) {
				t.Errorf("Expected on order %d, got %s", tt.onOrder, onOrder)
			}
		})
	}

	if len(reasons) != 4 {
		t.Errorf("Expected 4 change notifications, got %v", reasons)
	}
}
