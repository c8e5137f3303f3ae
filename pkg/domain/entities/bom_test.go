package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBOMLine_Validation(t *testing.T) {
	valid, err := NewBOMLine("L1", "BOM-A", "WHEEL", dec("4"), "pcs")
	if err != nil {
		t.Fatalf("Expected valid BOM line creation to succeed: %v", err)
	}
	if !valid.QuantityPerUnit.Equal(dec("4")) {
		t.Errorf("Expected quantity per unit 4, got %s", valid.QuantityPerUnit)
	}

	testCases := []struct {
		name        string
		id          string
		bomID       string
		componentID string
		qtyPer      decimal.Decimal
		unit        string
		expectError string
	}{
		{"empty id", "", "BOM-A", "WHEEL", dec("1"), "pcs", "bom line id cannot be empty"},
		{"empty bom", "L1", "", "WHEEL", dec("1"), "pcs", "bom id cannot be empty"},
		{"empty component", "L1", "BOM-A", "", dec("1"), "pcs", "component product id cannot be empty"},
		{"zero quantity", "L1", "BOM-A", "WHEEL", dec("0"), "pcs", "quantity per unit must be positive, got 0"},
		{"negative quantity", "L1", "BOM-A", "WHEEL", dec("-2"), "pcs", "quantity per unit must be positive, got -2"},
		{"empty unit", "L1", "BOM-A", "WHEEL", dec("1"), "", "unit of measure cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMLine(tc.id, tc.bomID, tc.componentID, tc.qtyPer, tc.unit)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}

	valid.ScrapPercentage = dec("101")
	if err := valid.Validate(); err == nil {
		t.Error("Expected scrap percentage above 100 to fail validation")
	}
}

func TestBOMLine_RequiredQuantity(t *testing.T) {
	testCases := []struct {
		name      string
		qtyPer    string
		scrap     string
		parentQty string
		baseQty   string
		expected  string
	}{
		{"identity", "1", "0", "1", "1", "1"},
		{"no scrap", "2", "0", "5", "1", "10"},
		{"ten percent scrap", "2", "10", "5", "1", "11"},
		{"base quantity ten", "3", "0", "20", "10", "6"},
		{"base and scrap", "4", "50", "2", "2", "6"},
		{"fractional", "0.25", "0", "3", "1", "0.75"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			line, err := NewBOMLine("L", "B", "C", dec(tc.qtyPer), "pcs")
			if err != nil {
				t.Fatalf("Failed to create line: %v", err)
			}
			line.ScrapPercentage = dec(tc.scrap)
			got := line.RequiredQuantity(dec(tc.parentQty), dec(tc.baseQty))
			if !got.Equal(dec(tc.expected)) {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestBillOfMaterials_Effectivity(t *testing.T) {
	bom, err := NewBillOfMaterials("BOM-A", "BIKE", dec("1"), "pcs")
	if err != nil {
		t.Fatalf("Failed to create bom: %v", err)
	}
	if bom.Status != BOMStatusDraft {
		t.Fatalf("Expected draft status, got %s", bom.Status)
	}

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	bom.EffectiveFrom = &from
	bom.ExpiresAt = &to

	if bom.IsEffectiveAt(from.AddDate(0, 0, -1)) {
		t.Error("Expected bom not effective before EffectiveFrom")
	}
	if !bom.IsEffectiveAt(from) {
		t.Error("Expected bom effective on EffectiveFrom")
	}
	if bom.IsEffectiveAt(to) {
		t.Error("Expected bom not effective on ExpiresAt")
	}

	if bom.IsExplodableAt(from) {
		t.Error("Expected draft bom not explodable")
	}
	if err := bom.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	bom.IsDefault = true
	if !bom.IsExplodableAt(from) {
		t.Error("Expected active default bom explodable")
	}

	bom.Obsolete()
	if bom.IsDefault {
		t.Error("Expected obsolete bom to lose default flag")
	}
	if err := bom.Activate(); err == nil {
		t.Error("Expected error activating obsolete bom")
	}
}
