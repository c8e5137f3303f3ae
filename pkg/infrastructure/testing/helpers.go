package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

// Scenario bundles the in-memory repositories of one planning data set
type Scenario struct {
	Products  *memory.ProductRepository
	BOMs      *memory.BOMRepository
	Units     *memory.UnitRepository
	Stock     *memory.StockRepository
	Demand    *memory.DemandRepository
	Capacity  *memory.CapacityRepository
	Runs      *memory.RunRepository
	Converter *services.UnitConverter
}

// NewScenario creates empty repositories with the standard units loaded
func NewScenario() *Scenario {
	units := memory.NewStandardUnitRepository()

	return &Scenario{
		Products:  memory.NewProductRepository(16),
		BOMs:      memory.NewBOMRepository(8),
		Units:     units,
		Stock:     memory.NewStockRepository(),
		Demand:    memory.NewDemandRepository(),
		Capacity:  memory.NewCapacityRepository(),
		Runs:      memory.NewRunRepository(),
		Converter: services.NewUnitConverter(units),
	}
}

// Qty parses a decimal literal, panicking on malformed input
func Qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MustProduct creates a product - panics on validation error
func MustProduct(id, unit string, leadTimeDays int, manufactured bool) *entities.Product {
	p, err := entities.NewProduct(id, id, unit, leadTimeDays)
	if err != nil {
		panic(err)
	}
	p.CanBeManufactured = manufactured
	p.CanBePurchased = !manufactured
	return p
}

// MustActiveBOM creates an active default BOM - panics on validation error
func MustActiveBOM(id, productID, baseQty, unit string) *entities.BillOfMaterials {
	bom, err := entities.NewBillOfMaterials(id, productID, Qty(baseQty), unit)
	if err != nil {
		panic(err)
	}
	if err := bom.Activate(); err != nil {
		panic(err)
	}
	bom.IsDefault = true
	return bom
}

// MustLine creates a BOM line - panics on validation error
func MustLine(id, bomID, componentID, qtyPer, unit string, sequence int) *entities.BOMLine {
	line, err := entities.NewBOMLine(id, bomID, componentID, Qty(qtyPer), unit)
	if err != nil {
		panic(err)
	}
	line.Sequence = sequence
	return line
}

// AddWorkingCalendar writes Mon-Fri working days of hoursPerDay and weekend
// days for [from, from+days)
func (s *Scenario) AddWorkingCalendar(workCenterID string, from time.Time, days int, hoursPerDay string) {
	entries := make([]*entities.CalendarEntry, 0, days)
	start := entities.DateOnly(from)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		entry := &entities.CalendarEntry{
			WorkCenterID:   workCenterID,
			Date:           d,
			AvailableHours: Qty(hoursPerDay),
			DayType:        entities.DayTypeWorking,
		}
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			entry.DayType = entities.DayTypeWeekend
		}
		entries = append(entries, entry)
	}
	if err := s.Capacity.SaveEntries(context.Background(), entries); err != nil {
		panic(err)
	}
}

// BuildBicycleScenario builds a small bicycle plant. BIKE is made from a
// phantom FRAME-ASSY (FRAME + 4 BOLT at 10% scrap), 2 WHEEL, an optional
// BELL and 500 g of PAINT tracked in kg.
func BuildBicycleScenario(start time.Time) *Scenario {
	s := NewScenario()
	ctx := context.Background()
	start = entities.DateOnly(start)

	bike := MustProduct("BIKE", "pcs", 0, true)
	frameAssy := MustProduct("FRAME-ASSY", "pcs", 0, true)
	frame := MustProduct("FRAME", "pcs", 5, false)
	bolt := MustProduct("BOLT", "pcs", 2, false)
	wheel := MustProduct("WHEEL", "pcs", 3, false)
	paint := MustProduct("PAINT", "kg", 1, false)
	bell := MustProduct("BELL", "pcs", 1, false)
	frame.CategoryID = "structure"
	bolt.CategoryID = "hardware"

	if err := s.Products.LoadProducts([]*entities.Product{bike, frameAssy, frame, bolt, wheel, paint, bell}); err != nil {
		panic(err)
	}

	bikeBOM := MustActiveBOM("B-BIKE", "BIKE", "1", "pcs")
	frameBOM := MustActiveBOM("B-FRAME", "FRAME-ASSY", "1", "pcs")

	frameLine := MustLine("L-FRAME-ASSY", "B-BIKE", "FRAME-ASSY", "1", "pcs", 10)
	frameLine.IsPhantom = true
	bellLine := MustLine("L-BELL", "B-BIKE", "BELL", "1", "pcs", 30)
	bellLine.IsOptional = true
	boltLine := MustLine("F-BOLT", "B-FRAME", "BOLT", "4", "pcs", 20)
	boltLine.ScrapPercentage = Qty("10")

	lines := []*entities.BOMLine{
		frameLine,
		MustLine("L-WHEEL", "B-BIKE", "WHEEL", "2", "pcs", 20),
		bellLine,
		MustLine("L-PAINT", "B-BIKE", "PAINT", "500", "g", 40),
		MustLine("F-FRAME", "B-FRAME", "FRAME", "1", "pcs", 10),
		boltLine,
	}
	if err := s.BOMs.LoadBOMs([]*entities.BillOfMaterials{bikeBOM, frameBOM}, lines); err != nil {
		panic(err)
	}

	assembly, err := entities.NewWorkCenter("ASSEMBLY", "Final assembly", Qty("8"))
	if err != nil {
		panic(err)
	}
	if err := s.Capacity.SaveWorkCenter(ctx, assembly); err != nil {
		panic(err)
	}
	s.AddWorkingCalendar("ASSEMBLY", start, 60, "8")
	s.Capacity.SaveRouting(entities.Routing{
		ProductID:    "BIKE",
		LeadTimeDays: 2,
		Operations: []entities.RoutingOperation{
			{Sequence: 10, WorkCenterID: "ASSEMBLY", SetupHours: Qty("1"), RunHoursPerUnit: Qty("0.5")},
		},
	})

	s.Stock.SetOnHand("BIKE", "MAIN", Qty("2"))
	s.Stock.SetOnHand("WHEEL", "MAIN", Qty("5"))
	s.Stock.AddReceipt(memory.Receipt{ProductID: "BOLT", WarehouseID: "MAIN", Quantity: Qty("20"), DueDate: start.AddDate(0, 0, 3)})

	if err := s.Demand.LoadDemands([]*entities.DemandLine{
		{ProductID: "BIKE", WarehouseID: "MAIN", Quantity: Qty("10"), DueDate: start.AddDate(0, 0, 20), SourceRef: "SO-1001"},
	}); err != nil {
		panic(err)
	}
	return s
}
