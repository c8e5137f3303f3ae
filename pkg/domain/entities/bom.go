package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BOMStatus is the lifecycle state of a bill of materials
type BOMStatus string

const (
	BOMStatusDraft    BOMStatus = "draft"
	BOMStatusActive   BOMStatus = "active"
	BOMStatusObsolete BOMStatus = "obsolete"
)

// BillOfMaterials is the recipe producing BaseQuantity units of a make-item
type BillOfMaterials struct {
	ID            string
	ProductID     string
	Version       string
	BaseQuantity  decimal.Decimal
	UnitCode      string
	Status        BOMStatus
	IsDefault     bool
	EffectiveFrom *time.Time
	ExpiresAt     *time.Time
}

// NewBillOfMaterials creates a validated draft BOM
func NewBillOfMaterials(id, productID string, baseQuantity decimal.Decimal, unitCode string) (*BillOfMaterials, error) {
	if id == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if !baseQuantity.IsPositive() {
		return nil, fmt.Errorf("base quantity must be positive, got %s", baseQuantity)
	}
	if unitCode == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}

	return &BillOfMaterials{
		ID:           id,
		ProductID:    productID,
		BaseQuantity: baseQuantity,
		UnitCode:     unitCode,
		Status:       BOMStatusDraft,
	}, nil
}

// IsEffectiveAt reports whether t falls inside the effective/expiry bounds
func (b *BillOfMaterials) IsEffectiveAt(t time.Time) bool {
	if b.EffectiveFrom != nil && t.Before(*b.EffectiveFrom) {
		return false
	}
	if b.ExpiresAt != nil && !t.Before(*b.ExpiresAt) {
		return false
	}
	return true
}

// IsExplodableAt reports whether the BOM is the active default at t
func (b *BillOfMaterials) IsExplodableAt(t time.Time) bool {
	return b.Status == BOMStatusActive && b.IsDefault && b.IsEffectiveAt(t)
}

// Activate moves a draft BOM to active
func (b *BillOfMaterials) Activate() error {
	switch b.Status {
	case BOMStatusActive:
		return nil
	case BOMStatusDraft:
		b.Status = BOMStatusActive
		return nil
	default:
		return fmt.Errorf("cannot activate bom %s in status %s", b.ID, b.Status)
	}
}

// Obsolete retires the BOM; an obsolete BOM is never the default
func (b *BillOfMaterials) Obsolete() {
	b.Status = BOMStatusObsolete
	b.IsDefault = false
}

// BaseOrOne returns BaseQuantity, treating an unset value as 1
func (b *BillOfMaterials) BaseOrOne() decimal.Decimal {
	if !b.BaseQuantity.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return b.BaseQuantity
}

// BOMLine represents a single component line in a Bill of Materials
type BOMLine struct {
	ID              string
	BOMID           string
	ComponentID     string
	Sequence        int
	QuantityPerUnit decimal.Decimal
	ScrapPercentage decimal.Decimal
	UnitCode        string
	IsOptional      bool
	IsPhantom       bool
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(id, bomID, componentID string, quantityPerUnit decimal.Decimal, unitCode string) (*BOMLine, error) {
	if id == "" {
		return nil, fmt.Errorf("bom line id cannot be empty")
	}
	if bomID == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if componentID == "" {
		return nil, fmt.Errorf("component product id cannot be empty")
	}
	if !quantityPerUnit.IsPositive() {
		return nil, fmt.Errorf("quantity per unit must be positive, got %s", quantityPerUnit)
	}
	if unitCode == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}

	return &BOMLine{
		ID:              id,
		BOMID:           bomID,
		ComponentID:     componentID,
		QuantityPerUnit: quantityPerUnit,
		UnitCode:        unitCode,
	}, nil
}

// Validate checks the scrap percentage bounds
func (l *BOMLine) Validate() error {
	if l.ScrapPercentage.IsNegative() || l.ScrapPercentage.GreaterThan(hundred) {
		return fmt.Errorf("scrap percentage must be between 0 and 100, got %s", l.ScrapPercentage)
	}
	return nil
}

// RequiredQuantity is qty_per_unit × parentQty / baseQty × (1 + scrap/100)
func (l *BOMLine) RequiredQuantity(parentQty, baseQty decimal.Decimal) decimal.Decimal {
	qty := l.QuantityPerUnit.Mul(parentQty)
	if baseQty.IsPositive() && !baseQty.Equal(decimal.NewFromInt(1)) {
		qty = qty.Div(baseQty)
	}
	if !l.ScrapPercentage.IsZero() {
		qty = qty.Mul(decimal.NewFromInt(1).Add(l.ScrapPercentage.Div(hundred)))
	}
	return qty
}

// OverlapsEffectivity reports whether the [from, expires) windows of the two
// BOMs share any instant; missing bounds are open
func (b *BillOfMaterials) OverlapsEffectivity(other *BillOfMaterials) bool {
	if b.ExpiresAt != nil && other.EffectiveFrom != nil && !b.ExpiresAt.After(*other.EffectiveFrom) {
		return false
	}
	if other.ExpiresAt != nil && b.EffectiveFrom != nil && !other.ExpiresAt.After(*b.EffectiveFrom) {
		return false
	}
	return true
}

// ConflictsWith reports whether both BOMs would be active defaults of the
// same product at a shared instant
func (b *BillOfMaterials) ConflictsWith(other *BillOfMaterials) bool {
	return b.ID != other.ID &&
		b.ProductID == other.ProductID &&
		other.Status == BOMStatusActive && other.IsDefault &&
		b.OverlapsEffectivity(other)
}
