package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrCyclicStructure       = errors.New("cyclic structure")
	ErrUnitConversion        = errors.New("unit conversion failed")
	ErrInvalidTransition     = errors.New("invalid state transition")
	ErrDuplicateDefaultBOM   = errors.New("product already has an active default bom")
	ErrMaxDepthExceeded      = errors.New("maximum explosion depth exceeded")
	ErrRunNotFound           = fmt.Errorf("mrp run %w", ErrNotFound)
	ErrRecommendationMissing = fmt.Errorf("recommendation %w", ErrNotFound)
)

// BOMNotFoundError is returned for an unknown BOM id
type BOMNotFoundError struct {
	BOMID string
}

func (e *BOMNotFoundError) Error() string { return fmt.Sprintf("bom not found: %s", e.BOMID) }
func (e *BOMNotFoundError) Unwrap() error { return ErrNotFound }

// ProductNotFoundError is returned for an unknown product id
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}
func (e *ProductNotFoundError) Unwrap() error { return ErrNotFound }

// WorkCenterNotFoundError is returned for an unknown work center id
type WorkCenterNotFoundError struct {
	WorkCenterID string
}

func (e *WorkCenterNotFoundError) Error() string {
	return fmt.Sprintf("work center not found: %s", e.WorkCenterID)
}
func (e *WorkCenterNotFoundError) Unwrap() error { return ErrNotFound }

// CyclicBOMError carries the BOM id chain that closes on itself
type CyclicBOMError struct {
	Path []string
}

func (e *CyclicBOMError) Error() string {
	return fmt.Sprintf("cyclic bom detected: %s", strings.Join(e.Path, " -> "))
}
func (e *CyclicBOMError) Unwrap() error { return ErrCyclicStructure }

// ProductCycleError carries the product chain of a dependency cycle
type ProductCycleError struct {
	Path []string
}

func (e *ProductCycleError) Error() string {
	return fmt.Sprintf("cyclic product dependency: %s", strings.Join(e.Path, " -> "))
}
func (e *ProductCycleError) Unwrap() error { return ErrCyclicStructure }

// UnitConversionError reports incompatible units
type UnitConversionError struct {
	ProductID string
	FromUnit  string
	ToUnit    string
}

func (e *UnitConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s for product %s", e.FromUnit, e.ToUnit, e.ProductID)
}
func (e *UnitConversionError) Unwrap() error { return ErrUnitConversion }

// MaxDepthExceededError is a truncation warning, never a hard failure
type MaxDepthExceededError struct {
	BOMID    string
	MaxDepth int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("explosion truncated at depth %d below bom %s", e.MaxDepth, e.BOMID)
}
func (e *MaxDepthExceededError) Unwrap() error { return ErrMaxDepthExceeded }

// InvalidTransitionError reports a rejected state machine move
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}
func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
